package sink

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/model"
)

// SnapshotSink should be implemented by the struct responsible for putting
// snapshots in their final resting place, e.g. a database or a chart
// renderer.  The snapshot handed over is a private copy; sinks may keep it.
type SnapshotSink interface {
	Publish(ctx context.Context, snapshot *model.Snapshot) error
}

// LogSink reports snapshot totals on the application log.  Useful when
// running without Redis.
type LogSink struct{}

func NewLogSink() LogSink {
	return LogSink{}
}

func (LogSink) Publish(_ context.Context, snapshot *model.Snapshot) error {
	log.WithFields(log.Fields{
		"records":    snapshot.AcceptedRecords(),
		"authors":    len(snapshot.AuthorCounts),
		"categories": len(snapshot.CategoryCounts),
		"window":     len(snapshot.SentimentWindow),
	}).Info("dashboard snapshot")
	return nil
}
