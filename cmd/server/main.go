package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	checklisthandler "visadesk/internal/checklist/handler"
	"visadesk/internal/checklist/lock"
	genmetrics "visadesk/internal/checklist/metrics"
	checklistservice "visadesk/internal/checklist/service"
	checkliststore "visadesk/internal/checklist/store"
	"visadesk/internal/enrichment"
	jwttoken "visadesk/internal/jwt_token"
	"visadesk/internal/platform/config"
	"visadesk/internal/platform/httpserver"
	"visadesk/internal/platform/logger"
	"visadesk/internal/platform/metrics"
	platformredis "visadesk/internal/platform/redis"
	"visadesk/internal/profile"
	ruleshandler "visadesk/internal/rules/handler"
	rulesservice "visadesk/internal/rules/service"
	rulesstore "visadesk/internal/rules/store"
	audit "visadesk/pkg/platform/audit"
	auditkafka "visadesk/pkg/platform/audit/kafka"
	auditworker "visadesk/pkg/platform/audit/worker"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise. The
	// in-memory path seeds the bootstrap rule set so dev instances generate
	// rules-backed checklists out of the box.
	var (
		checklists checkliststore.Store
		ruleStore  rulesstore.Store
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		checklists = checkliststore.NewPostgres(pool)

		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("open postgres for rule store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ruleStore = rulesstore.NewPostgres(db)
	} else {
		checklists = checkliststore.NewInMemory()
		memRules := rulesstore.NewInMemory()
		if _, err := rulesstore.SeedBootstrapRuleSet(memRules); err != nil {
			log.Error("seed bootstrap rule set", "error", err)
			os.Exit(1)
		}
		ruleStore = memRules
		log.Info("using in-memory stores with seeded bootstrap rule set")
	}

	// Generation lock: a Redis lease when configured, otherwise in-process.
	var locker lock.Locker = lock.NewInMemory(cfg.Generation.LockTimeout)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient, cfg.Generation.LockTimeout)
		log.Info("using redis generation lock")
	}

	// Audit pipeline: channel publisher, worker, optional Kafka sink.
	auditInbox := make(chan audit.Event, 256)
	publisher := audit.NewChannelPublisher(auditInbox)
	sinks := audit.FanOut{audit.NewInMemoryStore(0)}
	kafkaSink, err := auditkafka.NewPublisher(cfg.Kafka, log)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}
	if kafkaSink != nil {
		defer kafkaSink.Close(context.Background())
		sinks = append(sinks, kafkaSink)
		log.Info("publishing audit events to kafka", "topic", cfg.Kafka.Topic)
	}
	worker := auditworker.NewWorker(sinks, auditInbox)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	httpMetrics := metrics.New()
	engineMetrics := genmetrics.New()
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "visadesk", "visadesk-clients")
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	profiles := profile.NewHTTPSource(cfg.BackendURL)
	enricher := enrichment.NewHTTPClient(cfg.Enrichment, enrichment.WithLogger(log))

	coordinator := checklistservice.NewService(
		checklists,
		ruleStore,
		profiles,
		enricher,
		locker,
		publisher,
		engineMetrics,
		log,
		cfg.Generation,
	)
	ruleService := rulesservice.NewService(ruleStore, publisher, log)

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(redisClient))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	checklisthandler.New(coordinator, log, httpMetrics, jwtValidator).Register(router)
	ruleshandler.New(ruleService, log, httpMetrics, cfg.AdminKeyHash).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting visadesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func healthHandler(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
