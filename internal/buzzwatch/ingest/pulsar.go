package ingest

import (
	"context"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/configuration"
	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/metrics"
	"github.com/buzzwatch/buzzwatch/internal/common/pulsarutils"
)

var msgLogger = logrus.NewEntry(logrus.StandardLogger())

// PulsarSource is a RecordSource backed by a Pulsar subscription.  Transient
// receive errors are retried internally with a backoff; redelivery policy is
// the subscription's concern, so messages are acked as they are handed out.
type PulsarSource struct {
	client         pulsar.Client
	consumer       pulsar.Consumer
	receiveTimeout time.Duration
	backoffTime    time.Duration
	metrics        *metrics.Metrics

	// Receive statistics, logged periodically.
	logInterval     time.Duration
	lastLogged      time.Time
	numReceived     int
	lastMessageId   pulsar.MessageID
	lastPublishTime time.Time
}

func NewPulsarSource(config *configuration.PulsarConfig, subscriptionName string, m *metrics.Metrics) (*PulsarSource, error) {
	pulsarClient, err := pulsarutils.NewPulsarClient(config)
	if err != nil {
		return nil, errors.WithMessage(err, "Error creating pulsar client")
	}

	consumer, err := pulsarClient.Subscribe(pulsar.ConsumerOptions{
		Topic:                       config.RecordsTopic,
		SubscriptionName:            subscriptionName,
		Type:                        pulsar.Failover,
		ReceiverQueueSize:           config.ReceiverQueueSize,
		SubscriptionInitialPosition: pulsar.SubscriptionPositionEarliest,
	})
	if err != nil {
		pulsarClient.Close()
		return nil, errors.WithMessage(err, "Error creating pulsar consumer")
	}

	return &PulsarSource{
		client:          pulsarClient,
		consumer:        consumer,
		receiveTimeout:  config.ReceiveTimeout,
		backoffTime:     config.BackoffTime,
		metrics:         m,
		logInterval:     60 * time.Second,
		lastLogged:      time.Now(),
		lastPublishTime: time.Now(),
	}, nil
}

func (s *PulsarSource) Next(ctx context.Context) ([]byte, error) {
	for {
		// Periodic logging of receive statistics.
		if time.Since(s.lastLogged) > s.logInterval {
			msgLogger.WithFields(
				logrus.Fields{
					"received":      s.numReceived,
					"interval":      s.logInterval,
					"lastMessageId": s.lastMessageId,
					"timeLag":       time.Since(s.lastPublishTime),
				},
			).Info("message statistics")
			s.numReceived = 0
			s.lastLogged = time.Now()
		}

		// Exit if the context has been cancelled.  Otherwise, get a message from Pulsar.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			ctxWithTimeout, cancel := context.WithTimeout(ctx, s.receiveTimeout)
			msg, err := s.consumer.Receive(ctxWithTimeout)
			cancel()
			if errors.Is(err, context.DeadlineExceeded) {
				msgLogger.Debugf("No message received")
				continue
			}
			if errors.Is(err, context.Canceled) {
				return nil, ctx.Err()
			}
			// If receiving fails, try again in the hope that the problem is transient.
			if err != nil {
				s.metrics.RecordSourceConnectionError()
				msgLogger.WithError(err).
					WithField("lastMessageId", s.lastMessageId).
					Warnf("Pulsar receive failed; backing off for %s", s.backoffTime)
				time.Sleep(s.backoffTime)
				continue
			}

			s.consumer.Ack(msg)
			s.numReceived++
			s.lastPublishTime = msg.PublishTime()
			s.lastMessageId = msg.ID()
			return msg.Payload(), nil
		}
	}
}

func (s *PulsarSource) Close() {
	s.consumer.Close()
	s.client.Close()
}
