package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/aggregate"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/metrics"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/sink"
)

// Scheduler delivers one snapshot of the dashboard state to the sink every
// interval.  Snapshotting copies the state up front, so a slow sink never
// stalls ingestion; it only delays the scheduler's own next period.  There is
// no catch-up: periods missed while the sink was busy are simply skipped.
type Scheduler struct {
	state    *aggregate.State
	sink     sink.SnapshotSink
	interval time.Duration
	metrics  *metrics.Metrics
	clock    clock.Clock
}

func New(state *aggregate.State, snapshotSink sink.SnapshotSink, interval time.Duration, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		state:    state,
		sink:     snapshotSink,
		interval: interval,
		metrics:  m,
		clock:    clock.RealClock{},
	}
}

// Run fires until the context is cancelled.  Cancellation stops future
// firings; it does not wait on a delivery already under way.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		expire := s.clock.After(s.interval)
		select {
		case <-ctx.Done():
			log.Info("Snapshot scheduler: context is done")
			return
		case <-expire:
			snapshot := s.state.Snapshot()
			if err := s.sink.Publish(ctx, snapshot); err != nil {
				s.metrics.RecordSnapshotError()
				log.WithError(err).Warn("Error delivering snapshot")
			} else {
				s.metrics.RecordSnapshotPublished()
			}
		}
	}
}
