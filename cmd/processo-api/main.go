package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Processo/internal/access"
	"github.com/shaiso/Processo/internal/api"
	"github.com/shaiso/Processo/internal/cache"
	"github.com/shaiso/Processo/internal/child"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/mq"
	"github.com/shaiso/Processo/internal/repo"
	"github.com/shaiso/Processo/internal/signature"
	"github.com/shaiso/Processo/internal/storage"
	"github.com/shaiso/Processo/internal/storage/mem"
	"github.com/shaiso/Processo/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "processo_api_http_requests_total",
		Help: "Total HTTP requests handled by processo_api",
	})
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting processo-api")

	ctx := context.Background()

	// Хранилище: Postgres по умолчанию, STORE=memory для dev/тестов.
	var (
		store storage.Storage
		blobs api.BlobStore
	)
	if os.Getenv("STORE") == "memory" {
		st := mem.New()
		store, blobs = st, st
		logger.Info("using in-memory store")
	} else {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := repo.Migrate(ctx, pool); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		st := repo.NewStore(pool)
		store, blobs = st, st
		logger.Info("connected to database")
	}

	// RabbitMQ: best-effort, без брокера API работает без событий.
	var (
		events    engine.Events
		sigEvents signature.Events
		chEvents  child.Events
		audit     engine.Audit
	)
	mqURL := os.Getenv("MQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	conn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events disabled", "error", err)
	} else {
		defer conn.Close()
		if err := mq.SetupTopology(conn); err != nil {
			logger.Error("failed to setup mq topology", "error", err)
			os.Exit(1)
		}
		pub := mq.NewPublisher(conn, logger)
		events, sigEvents, chEvents, audit = pub, pub, pub, pub
		logger.Info("connected to rabbitmq")
	}

	// Кэш: Redis, если задан REDIS_URL, иначе встроенный in-memory.
	var c cache.Cache
	if url := os.Getenv("REDIS_URL"); url != "" {
		rc, err := cache.NewRedis(ctx, url, "processo")
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		c = rc
		logger.Info("connected to redis")
	} else {
		m := cache.NewMemory()
		defer m.Close()
		c = m
	}

	// Справочник пользователей: JSON-файл через DIRECTORY_FILE.
	// Без него назначения на сектора и проверка идентичности отключены.
	var (
		auth     engine.Authorizer
		identity signature.IdentityVerifier
	)
	if path := os.Getenv("DIRECTORY_FILE"); path != "" {
		dir, err := access.LoadDirectory(path)
		if err != nil {
			logger.Error("failed to load directory", "error", err)
			os.Exit(1)
		}
		policy := access.NewPolicy(dir)
		auth, identity = policy, policy
		logger.Info("loaded user directory", "path", path)
	}

	eng := engine.New(engine.Config{
		Store:      store,
		Authorizer: auth,
		Events:     events,
		Audit:      audit,
		Logger:     logger,
	})
	resolver := signature.New(signature.Config{
		Store:    store,
		Identity: identity,
		Events:   sigEvents,
		Audit:    audit,
		Logger:   logger,
	})
	orchestrator := child.New(child.Config{
		Store:  store,
		Engine: eng,
		Events: chEvents,
		Logger: logger,
	})

	handler := api.NewHandler(api.Config{
		Store:        store,
		Blobs:        blobs,
		Engine:       eng,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Cache:        c,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqTotal.Inc()
			mux.ServeHTTP(w, r)
		}),
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-sigCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
