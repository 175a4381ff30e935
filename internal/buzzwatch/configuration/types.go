package configuration

import (
	"time"

	"github.com/go-redis/redis"
)

type BuzzwatchConfiguration struct {
	// Port on which prometheus metrics are served
	MetricsPort uint16
	// General Pulsar configuration
	Pulsar PulsarConfig
	// Pulsar subscription name
	SubscriptionName string `validate:"required"`
	// Period between snapshots delivered to the snapshot sink
	SnapshotInterval time.Duration `validate:"required"`
	// Sink for snapshots, either "redis" or "log"
	SnapshotSink string `validate:"oneof=redis log"`
	// Redis used by the redis snapshot sink
	Redis redis.UniversalOptions
	// Time after which snapshots are deleted from redis
	SnapshotRetention SnapshotRetentionPolicy
}

type PulsarConfig struct {
	// Pulsar URL
	URL string `validate:"required"`
	// Topic on which raw buzz records arrive
	RecordsTopic string `validate:"required"`
	// Number of pulsar messages that will be queued by the pulsar consumer
	ReceiverQueueSize int
	// Maximum allowed Connections per single broker
	MaxConnectionsPerBroker int
	// Time for which the pulsar consumer will wait for a new message before retrying
	ReceiveTimeout time.Duration
	// Time for which the pulsar consumer will back off after receiving an error on trying to receive a message
	BackoffTime time.Duration
	// Path to the trusted TLS certificate file (must exist)
	TLSTrustCertsFilePath string
	// Whether Pulsar client accept untrusted TLS certificate from broker
	TLSAllowInsecureConnection bool
	// Whether the Pulsar client will validate the hostname in the broker's TLS Cert matches the actual hostname.
	TLSValidateHostname bool
	// Whether Authentication is enabled in the Pulsar client
	AuthenticationEnabled bool
	// Authentication type. For now only "JWT" auth is valid
	AuthenticationType string
	// Path to the JWT token
	JwtTokenPath string
}

type SnapshotRetentionPolicy struct {
	ExpiryEnabled     bool
	RetentionDuration time.Duration
	// Maximum number of snapshots kept on the snapshot history stream
	MaxHistoryLength int64
}
