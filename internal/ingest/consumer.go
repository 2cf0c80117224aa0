package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded message. A returned error makes the consumer retry the message.
type Handler func(ctx context.Context, m *Message) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Retry policy for a failing handler. After the last attempt the message is logged and committed.
const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Consumer reads the events topic and hands each message to a Handler, committing offsets only
// after the handler is done with the message.
type Consumer struct {
	reader  messageReader
	handle  Handler
	backoff time.Duration
}

// NewKafkaConsumer returns a consumer in groupID on topic. Call Close when done.
func NewKafkaConsumer(brokers []string, topic, groupID string, handle Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	return &Consumer{reader: reader, handle: handle, backoff: retryBackoff}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Printf("ingest: kafka fetch error: %v", err)
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}
		c.process(ctx, msg)
		if ctx.Err() != nil {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Printf("ingest: commit offset %d failed: %v", msg.Offset, err)
		}
	}
}

// process decodes and handles msg. Malformed messages and messages that keep failing are
// logged and skipped.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	m, err := DecodeMessage(msg.Value)
	if err != nil {
		log.Printf("ingest: skipping offset %d: %v", msg.Offset, err)
		return
	}
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, m)
		if err == nil {
			return
		}
		if attempt >= maxAttempts || ctx.Err() != nil {
			log.Printf("ingest: giving up on %s for %s after %d attempts: %v", m.Kind, m.SessionID, attempt, err)
			return
		}
		if !sleep(ctx, time.Duration(attempt)*c.backoff) {
			return
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
