package ingest

import (
	"context"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/aggregate"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/metrics"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/parse"
)

// Loop pulls raw records off the source and folds each one into the dashboard
// state, strictly in arrival order.  Rejected records are logged, counted and
// skipped; they never terminate the loop.
type Loop struct {
	source  RecordSource
	state   *aggregate.State
	metrics *metrics.Metrics
}

func NewLoop(source RecordSource, state *aggregate.State, m *metrics.Metrics) *Loop {
	return &Loop{
		source:  source,
		state:   state,
		metrics: m,
	}
}

// Run processes records until the context is cancelled or the source gives
// out.  The source is closed on every exit path.  The return value tells the
// owner why the loop stopped: nil for cancellation, io.EOF when the source
// was exhausted, any other error for a source failure.
func (l *Loop) Run(ctx context.Context) error {
	defer l.source.Close()
	for {
		payload, err := l.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Ingestion loop: context is done")
				return nil
			}
			if errors.Is(err, io.EOF) {
				log.Info("Record source exhausted, stopping ingestion loop")
				return io.EOF
			}
			return errors.WithMessage(err, "record source failed")
		}
		l.process(payload)
	}
}

func (l *Loop) process(payload []byte) {
	record, issues, err := parse.Record(payload)
	if err != nil {
		kind := metrics.RecordErrorDecode
		if errors.Is(err, parse.ErrNotAnObject) {
			kind = metrics.RecordErrorShape
		}
		l.metrics.RecordRecordError(kind)
		log.WithError(err).Warnf("Rejecting record")
		return
	}
	for _, issue := range issues {
		l.metrics.RecordRecordError(metrics.RecordErrorField)
		log.WithField("field", issue.Field).Warnf("Ignoring record field: %s", issue.Reason)
	}
	l.state.Apply(record)
	l.metrics.RecordProcessed()
}
