package sink

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/configuration"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/model"
	"github.com/buzzwatch/buzzwatch/internal/common/util"
)

const (
	latestSnapshotKey = "Dashboard:snapshot:latest"
	snapshotStream    = "Dashboard:snapshots"
	dataKey           = "snapshot"
)

// RedisSnapshotStore publishes each snapshot to Redis: the latest snapshot
// under a fixed key for dashboards that only want the current picture, plus
// an entry on a capped history stream.
type RedisSnapshotStore struct {
	db        redis.UniversalClient
	retention configuration.SnapshotRetentionPolicy
}

func NewRedisSnapshotStore(db redis.UniversalClient, retention configuration.SnapshotRetentionPolicy) *RedisSnapshotStore {
	return &RedisSnapshotStore{db: db, retention: retention}
}

func (s *RedisSnapshotStore) Publish(ctx context.Context, snapshot *model.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.WithStack(err)
	}

	start := time.Now()
	err = withRetry(ctx, func() error {
		var expiry time.Duration
		if s.retention.ExpiryEnabled {
			expiry = s.retention.RetentionDuration
		}

		pipe := s.db.Pipeline()
		pipe.Set(latestSnapshotKey, data, expiry)
		pipe.XAdd(&redis.XAddArgs{
			Stream:       snapshotStream,
			MaxLenApprox: s.retention.MaxHistoryLength,
			Values: map[string]interface{}{
				dataKey: data,
			},
		})
		if s.retention.ExpiryEnabled {
			pipe.Expire(snapshotStream, s.retention.RetentionDuration)
		}
		_, err := pipe.Exec()
		return err
	})
	if err != nil {
		return err
	}

	taken := time.Since(start).Milliseconds()
	log.Debugf("Published snapshot covering %d records in %dms", snapshot.AcceptedRecords(), taken)
	return nil
}

func withRetry(ctx context.Context, executeDb func() error) error {
	backOff := 1
	const maxBackoff = 60
	const maxRetries = 10
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = executeDb()

		if err == nil {
			return nil
		}

		if !isNetworkError(err) && !IsRetryableRedisError(err) {
			// Non retryable error
			return err
		}

		backOff = util.Min(2*backOff, maxBackoff)
		log.WithError(err).Warnf("Retryable error encountered publishing to Redis, will wait for %d seconds before retrying", backOff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(backOff) * time.Second):
		}
	}
	return errors.WithMessagef(err, "gave up publishing to Redis after %d retries", maxRetries)
}

// IsRetryableRedisError is largely taken from https://github.com/go-redis/redis/blob/master/error.go#L28
func IsRetryableRedisError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if s == "ERR max number of clients reached" {
		return true
	}
	if strings.HasPrefix(s, "LOADING ") {
		return true
	}
	if strings.HasPrefix(s, "READONLY ") {
		return true
	}
	if strings.HasPrefix(s, "CLUSTERDOWN ") {
		return true
	}
	if strings.HasPrefix(s, "TRYAGAIN ") {
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
