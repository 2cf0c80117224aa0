package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"device-inspector/backend/internal/audit"
	auditrepo "device-inspector/backend/internal/audit/repository"
	"device-inspector/backend/internal/config"
	"device-inspector/backend/internal/db"
	"device-inspector/backend/internal/eventstore"
	"device-inspector/backend/internal/ingest"
	"device-inspector/backend/internal/metrics"
	"device-inspector/backend/internal/persistence"
	"device-inspector/backend/internal/policy/engine"
	"device-inspector/backend/internal/server"
	"device-inspector/backend/internal/server/interceptors"
	"device-inspector/backend/internal/session/supervisor"
	"device-inspector/backend/internal/telemetry"
	otelsetup "device-inspector/backend/internal/telemetry/otel"
	"device-inspector/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("config: DATABASE_URL must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)

	prom := metrics.New()
	storeMetrics := metrics.Multi{prom}
	if m, err := otelsetup.NewStoreMetrics(providers.MeterProvider, emitter); err != nil {
		log.Printf("otel: store metrics disabled: %v", err)
	} else {
		storeMetrics = append(storeMetrics, m)
	}

	svc := persistence.NewService(conn)
	opts := cfg.StoreOptions()
	opts.Metrics = storeMetrics
	store := eventstore.New(svc, opts)
	defer store.Close()

	bus := ingest.NewBus()
	store.Attach(bus)

	verifier, err := cfg.ProducerVerifier()
	if err != nil {
		log.Fatalf("%v", err)
	}

	auditRepo := auditrepo.NewPostgresRepository(conn)
	deps := server.Deps{
		Store:        store,
		IngestWriter: svc,
		Bus:          bus,
		Emitter:      emitter,
		AuditRepo:    auditRepo,
		HealthPinger: conn,
		Recorder:     prom,
	}
	if verifier != nil {
		deps.ProducerTokens = verifier
		log.Println("ingest: producer tokens required")
	}
	if cfg.IngestPolicy != "" {
		module, err := engine.LoadModule(cfg.IngestPolicy)
		if err != nil {
			log.Fatalf("%v", err)
		}
		policy, err := engine.NewOPAEvaluator(ctx, module)
		if err != nil {
			log.Fatalf("%v", err)
		}
		deps.IngestPolicy = policy
		log.Println("ingest: admission policy loaded")
	}
	if p := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic); p != nil {
		defer p.Close()
		deps.Producer = p
		deps.HealthBroker = p
		log.Printf("kafka: publishing event batches to %s", cfg.EventsKafkaTopic)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(server.UnaryInterceptors(deps)...),
	)
	server.RegisterServices(s, deps)

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics: %v", err)
			}
		}()
	}

	sup := supervisor.New(svc, store, emitter, audit.NewLogger(auditRepo, interceptors.ClientIP), supervisor.Config{
		IdleTimeout:       cfg.IdleTimeout(),
		CleanupMaxAgeDays: cfg.CleanupMaxAgeDays,
	})
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gRPC server...")
	cancel()
	<-supDone
	s.GracefulStop()
	if metricsSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		done()
	}
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel: shutdown: %v", err)
	}
	log.Println("gRPC server stopped")
}
