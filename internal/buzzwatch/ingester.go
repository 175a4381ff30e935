package buzzwatch

import (
	"context"
	"io"
	"sync"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/aggregate"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/configuration"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/ingest"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/metrics"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/scheduler"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/sink"
	"github.com/buzzwatch/buzzwatch/internal/common"
)

// Run wires up the dashboard ingester: raw buzz records are taken from
// Pulsar and folded into the dashboard state, while snapshots of that state
// are periodically delivered to the configured snapshot sink.  Run returns
// when ctx is cancelled or the record source gives out.
func Run(ctx context.Context, config *configuration.BuzzwatchConfiguration) error {
	log.Info("Buzzwatch Ingester Starting")

	m := metrics.Get()

	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	snapshotSink, closeSink, err := createSink(config)
	if err != nil {
		return err
	}
	defer closeSink()

	source, err := ingest.NewPulsarSource(&config.Pulsar, config.SubscriptionName, m)
	if err != nil {
		return errors.WithMessage(err, "Error creating record source")
	}

	state := aggregate.NewState()
	loop := ingest.NewLoop(source, state, m)
	snapshots := scheduler.New(state, snapshotSink, config.SnapshotInterval, m)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		snapshots.Run(ctx)
	}()

	err = loop.Run(ctx)

	// Stop snapshotting once ingestion is over, whatever the reason.
	cancel()
	wg.Wait()

	if errors.Is(err, io.EOF) {
		log.Info("Record stream ended, shutting down")
		return nil
	}
	return err
}

func createSink(config *configuration.BuzzwatchConfiguration) (sink.SnapshotSink, func(), error) {
	switch config.SnapshotSink {
	case "redis":
		db := redis.NewUniversalClient(&config.Redis)
		closeDb := func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Error("failed to close snapshot Redis client")
			}
		}
		return sink.NewRedisSnapshotStore(db, config.SnapshotRetention), closeDb, nil
	case "log":
		return sink.NewLogSink(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown snapshot sink %q", config.SnapshotSink)
	}
}
