// Worker consumes event batches and session lifecycle messages from Kafka, persists them to
// Postgres and, when LOKI_URL is set, mirrors log and error events to Loki.
// Set DATABASE_URL, KAFKA_BROKERS, EVENTS_KAFKA_TOPIC and KAFKA_GROUP_ID.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"device-inspector/backend/internal/config"
	"device-inspector/backend/internal/db"
	"device-inspector/backend/internal/ingest"
	"device-inspector/backend/internal/persistence"
	"device-inspector/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("worker: db: %v", err)
	}
	defer conn.Close()

	var mirror ingest.Mirror
	if c := loki.NewClient(cfg.LokiURL); c != nil {
		mirror = c
	}

	consumer := ingest.NewKafkaConsumer(brokers, cfg.EventsKafkaTopic, cfg.KafkaGroupID,
		ingest.PersistHandler(persistence.NewService(conn), mirror))
	defer consumer.Close()

	log.Printf("worker: consuming from %s (group %s)", cfg.EventsKafkaTopic, cfg.KafkaGroupID)
	if mirror != nil {
		log.Printf("worker: mirroring to %s", cfg.LokiURL)
	}
	if err := consumer.Run(ctx); err != nil {
		log.Printf("worker: %v", err)
	}
	log.Println("worker: stopped")
}
