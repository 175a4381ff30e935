package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RecordError string

const (
	RecordErrorDecode RecordError = "decode"
	RecordErrorShape  RecordError = "shape"
	RecordErrorField  RecordError = "field"
)

const BuzzwatchMetricsPrefix = "buzzwatch_"

type Metrics struct {
	recordsProcessed       prometheus.Counter
	recordErrors           *prometheus.CounterVec
	sourceConnectionErrors prometheus.Counter
	snapshotsPublished     prometheus.Counter
	snapshotErrors         prometheus.Counter
}

func NewMetrics(prefix string) *Metrics {
	recordsProcessedOpts := prometheus.CounterOpts{
		Name: prefix + "records_processed",
		Help: "Number of records successfully applied to the dashboard state",
	}
	recordErrorsOpts := prometheus.CounterOpts{
		Name: prefix + "record_errors",
		Help: "Number of record errors grouped by error type",
	}
	sourceConnectionErrorsOpts := prometheus.CounterOpts{
		Name: prefix + "source_connection_errors",
		Help: "Number of record source connection errors",
	}
	snapshotsPublishedOpts := prometheus.CounterOpts{
		Name: prefix + "snapshots_published",
		Help: "Number of snapshots delivered to the snapshot sink",
	}
	snapshotErrorsOpts := prometheus.CounterOpts{
		Name: prefix + "snapshot_errors",
		Help: "Number of snapshot deliveries that failed",
	}
	return &Metrics{
		recordsProcessed:       promauto.NewCounter(recordsProcessedOpts),
		recordErrors:           promauto.NewCounterVec(recordErrorsOpts, []string{"error"}),
		sourceConnectionErrors: promauto.NewCounter(sourceConnectionErrorsOpts),
		snapshotsPublished:     promauto.NewCounter(snapshotsPublishedOpts),
		snapshotErrors:         promauto.NewCounter(snapshotErrorsOpts),
	}
}

var m = NewMetrics(BuzzwatchMetricsPrefix)

func Get() *Metrics {
	return m
}

func (m *Metrics) RecordProcessed() {
	m.recordsProcessed.Inc()
}

func (m *Metrics) RecordRecordError(error RecordError) {
	m.recordErrors.With(map[string]string{"error": string(error)}).Inc()
}

func (m *Metrics) RecordSourceConnectionError() {
	m.sourceConnectionErrors.Inc()
}

func (m *Metrics) RecordSnapshotPublished() {
	m.snapshotsPublished.Inc()
}

func (m *Metrics) RecordSnapshotError() {
	m.snapshotErrors.Inc()
}
