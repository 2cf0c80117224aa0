// Package producer publishes ingest messages (event batches and session lifecycle notices) to
// the events topic.
package producer

import (
	"context"

	"device-inspector/backend/internal/ingest"
)

// Producer publishes ingest messages. Messages of one session keep their order.
type Producer interface {
	// Publish sends one message. Implementations may block briefly; it returns an error on
	// write failure so the caller can fall back to a direct write.
	Publish(ctx context.Context, msg *ingest.Message) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
