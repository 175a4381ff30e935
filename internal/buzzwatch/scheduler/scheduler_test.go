package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/aggregate"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/metrics"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/model"
)

const testInterval = 5 * time.Second

type mockSink struct {
	mu        sync.Mutex
	errors    []error
	published []*model.Snapshot
}

// If errors contains errors then mockSink will pop the first error and
// return it, otherwise the snapshot is recorded.
func (s *mockSink) Publish(_ context.Context, snapshot *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errors) > 0 {
		err := s.errors[0]
		s.errors = s.errors[1:]
		return err
	}
	s.published = append(s.published, snapshot)
	return nil
}

func (s *mockSink) snapshots() []*model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	published := make([]*model.Snapshot, len(s.published))
	copy(published, s.published)
	return published
}

func runScheduler(state *aggregate.State, snapshotSink *mockSink) (*clock.FakeClock, context.CancelFunc) {
	testClock := clock.NewFakeClock(time.Now())
	s := New(state, snapshotSink, testInterval, metrics.Get())
	s.clock = testClock
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	return testClock, cancel
}

func TestRun_DeliversOneSnapshotPerPeriod(t *testing.T) {
	state := aggregate.NewState()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state.Apply(&model.Record{Author: "Eve", Category: "tech", Timestamp: &ts, Sentiment: 0.8, MessageLength: 12})

	snapshotSink := &mockSink{}
	testClock, cancel := runScheduler(state, snapshotSink)
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, snapshotSink.snapshots(), 1)

	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)
	published := snapshotSink.snapshots()
	assert.Len(t, published, 2)
	assert.Equal(t, map[string]int{"Eve": 1}, published[0].AuthorCounts)
	assert.Equal(t, []int{12}, published[0].MessageLengths)
}

func TestRun_EmptyStateYieldsWellFormedSnapshot(t *testing.T) {
	snapshotSink := &mockSink{}
	testClock, cancel := runScheduler(aggregate.NewState(), snapshotSink)
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)

	published := snapshotSink.snapshots()
	assert.Len(t, published, 1)
	assert.NotNil(t, published[0].AuthorCounts)
	assert.NotNil(t, published[0].CategoryCounts)
	assert.NotNil(t, published[0].SentimentWindow)
	assert.NotNil(t, published[0].MessageLengths)
	assert.Equal(t, 0, published[0].AcceptedRecords())
}

func TestRun_CancellationStopsFutureFirings(t *testing.T) {
	snapshotSink := &mockSink{}
	testClock, cancel := runScheduler(aggregate.NewState(), snapshotSink)

	time.Sleep(100 * time.Millisecond)
	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, snapshotSink.snapshots(), 1)

	cancel()
	time.Sleep(100 * time.Millisecond)
	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, snapshotSink.snapshots(), 1)
}

// slowSink blocks in Publish until release is closed.
type slowSink struct {
	mu        sync.Mutex
	release   chan struct{}
	published int
}

func (s *slowSink) Publish(_ context.Context, _ *model.Snapshot) error {
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
	return nil
}

func (s *slowSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}

func TestRun_PeriodsMissedDuringSlowDeliveryAreSkipped(t *testing.T) {
	snapshotSink := &slowSink{release: make(chan struct{})}
	testClock := clock.NewFakeClock(time.Now())
	s := New(aggregate.NewState(), snapshotSink, testInterval, metrics.Get())
	s.clock = testClock
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)

	// The delivery is stuck in the sink; periods elapsing in the meantime
	// must not queue up further deliveries.
	testClock.Step(3 * testInterval)
	close(snapshotSink.release)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, snapshotSink.count())
}

func TestRun_KeepsFiringAfterSinkError(t *testing.T) {
	snapshotSink := &mockSink{errors: []error{errors.New("sink unavailable")}}
	testClock, cancel := runScheduler(aggregate.NewState(), snapshotSink)
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, snapshotSink.snapshots(), 0)

	testClock.Step(testInterval)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, snapshotSink.snapshots(), 1)
}
