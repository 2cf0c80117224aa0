package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"device-inspector/backend/internal/ingest"
)

// writeTimeout bounds one publish so a slow broker does not stall the RPC.
const writeTimeout = 5 * time.Second

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer  messageWriter
	topic   string
	brokers []string
}

// NewKafkaProducer creates a Kafka producer that writes ingest messages to the given topic.
// Returns nil when brokers or topic are empty (Kafka disabled). Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaProducer{writer: writer, topic: topic, brokers: brokers}
}

// Publish serializes msg as JSON and writes it keyed by session id, so one session's messages
// land on one partition in order.
func (p *KafkaProducer) Publish(ctx context.Context, msg *ingest.Message) error {
	if p == nil || p.writer == nil || msg == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(msg.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	})
	if err != nil {
		log.Printf("producer: kafka publish %s for %s failed: %v", msg.Kind, msg.SessionID, err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

// HealthCheck reports whether at least one broker accepts a connection.
func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("producer: no kafka broker reachable: %w", lastErr)
}
