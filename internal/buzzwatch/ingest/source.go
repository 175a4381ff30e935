package ingest

import (
	"context"
)

// RecordSource yields raw serialized records.  Implementations own their
// transport entirely, including any reconnect or redelivery policy.
type RecordSource interface {
	// Next blocks until a record is available, the context is cancelled, or
	// the source fails.  It returns io.EOF once the stream is exhausted and
	// the context's error if the context was cancelled.
	Next(ctx context.Context) ([]byte, error)
	// Close releases the source.  It must be safe to call from a different
	// goroutine than the one blocked in Next.
	Close()
}
