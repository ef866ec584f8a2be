package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Processo/internal/child"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/mq"
	"github.com/shaiso/Processo/internal/repo"
	"github.com/shaiso/Processo/internal/telemetry"
)

// Ключ advisory lock: единственный активный планировщик на кластер.
const schedLockKey int64 = 77031205

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "processo_scheduler_ticks_total",
		Help: "Total scheduler ticks executed as leader",
	})
	spawnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "processo_scheduler_children_spawned_total",
		Help: "Total child processes spawned by the scheduler",
	})
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting processo-scheduler")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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
	logger.Info("connected to database")

	store := repo.NewStore(pool)

	var (
		events   engine.Events
		chEvents child.Events
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
		events, chEvents = pub, pub
		logger.Info("connected to rabbitmq")
	}

	eng := engine.New(engine.Config{
		Store:  store,
		Events: events,
		Logger: logger,
	})
	orchestrator := child.New(child.Config{
		Store:  store,
		Engine: eng,
		Events: chEvents,
		Logger: logger,
	})

	interval := 30 * time.Second
	if v := os.Getenv("SCHEDULER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid SCHEDULER_INTERVAL", "value", v, "error", err)
			os.Exit(1)
		}
		interval = d
	}

	// Тикаем в фоне; лидерство — через pg advisory lock, неудачники
	// простаивают и перепроверяют лидерство каждый тик.
	go func() {
		tk := time.NewTicker(interval)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("advisory lock check failed", "error", err)
						continue
					}
					hasLock = ok
				}
				if !hasLock {
					continue
				}

				ticksTotal.Inc()
				spawned, err := orchestrator.Tick(ctx)
				if err != nil {
					logger.Error("scheduler tick failed", "error", err)
					continue
				}
				if spawned > 0 {
					spawnedTotal.Add(float64(spawned))
					logger.Info("scheduler tick completed", "spawned", spawned)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("stopped")
}
