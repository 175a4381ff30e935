package parse

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/model"
)

// Defaults applied when a field is missing or carries an incompatible type.
const (
	DefaultAuthor   = "unknown"
	DefaultCategory = "uncategorized"
)

// Whole-record rejections.  Callers can test for these with errors.Is.
var (
	ErrMalformedPayload = errors.New("payload is not valid JSON")
	ErrNotAnObject      = errors.New("payload is not a JSON object")
)

// FieldIssue describes a field that was present but unusable.  The record it
// belongs to is still produced, with the field replaced by its default.
type FieldIssue struct {
	Field  string
	Reason string
}

func (i FieldIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Reason)
}

// Timestamp layouts accepted for the timestamp field.  RFC3339 covers the
// Z-suffixed UTC form; the second layout covers instants without an offset.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Record parses one raw payload into a model.Record.  Missing fields fall
// back to their defaults, fields of the wrong type are reported as issues and
// fall back too.  A timestamp that is present but unparseable is treated as
// absent rather than rejecting the record.  Only an undecodable payload or a
// payload that is not a JSON object rejects the whole record.
func Record(payload []byte) (*model.Record, []FieldIssue, error) {
	var raw interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, nil, errors.WithMessage(ErrMalformedPayload, err.Error())
	}

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, nil, errors.WithMessage(ErrNotAnObject, fmt.Sprintf("got %T", raw))
	}

	var issues []FieldIssue
	record := &model.Record{
		Author:   DefaultAuthor,
		Category: DefaultCategory,
	}

	if v, present := fields["author"]; present {
		if s, ok := v.(string); ok {
			record.Author = s
		} else {
			issues = append(issues, FieldIssue{Field: "author", Reason: fmt.Sprintf("expected string, got %T", v)})
		}
	}

	if v, present := fields["category"]; present {
		if s, ok := v.(string); ok {
			record.Category = s
		} else {
			issues = append(issues, FieldIssue{Field: "category", Reason: fmt.Sprintf("expected string, got %T", v)})
		}
	}

	if v, present := fields["sentiment"]; present {
		if f, ok := v.(float64); ok {
			record.Sentiment = f
		} else {
			issues = append(issues, FieldIssue{Field: "sentiment", Reason: fmt.Sprintf("expected number, got %T", v)})
		}
	}

	if v, present := fields["message_length"]; present {
		if f, ok := v.(float64); ok && f >= 0 && f == math.Trunc(f) {
			record.MessageLength = int(f)
		} else {
			issues = append(issues, FieldIssue{Field: "message_length", Reason: fmt.Sprintf("expected non-negative integer, got %v", v)})
		}
	}

	if v, present := fields["timestamp"]; present {
		if s, ok := v.(string); ok {
			if ts, err := parseTimestamp(s); err == nil {
				record.Timestamp = &ts
			} else {
				issues = append(issues, FieldIssue{Field: "timestamp", Reason: fmt.Sprintf("invalid timestamp format: %s", s)})
			}
		} else {
			issues = append(issues, FieldIssue{Field: "timestamp", Reason: fmt.Sprintf("expected string, got %T", v)})
		}
	}

	return record, issues, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var ts time.Time
		ts, err = time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, err
}
