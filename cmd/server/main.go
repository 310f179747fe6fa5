// Command server runs the glint compliance engine: the immutable audit API,
// the legal hold admin surface, and the scheduled retention purge.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"glint/internal/audit"
	audithandler "glint/internal/audit/handler"
	auditmetrics "glint/internal/audit/metrics"
	"glint/internal/audit/outbox"
	auditstore "glint/internal/audit/store"
	httpapi "glint/internal/http"
	"glint/internal/jwtauth"
	"glint/internal/platform/config"
	"glint/internal/platform/httpserver"
	"glint/internal/platform/logger"
	platformredis "glint/internal/platform/redis"
	"glint/internal/retention"
	retentionhandler "glint/internal/retention/handler"
	"glint/internal/retention/legalhold"
	"glint/internal/retention/purge"
	purgemetrics "glint/internal/retention/purge/metrics"
	eventstore "glint/internal/retention/store"
	"glint/internal/scheduler"
	"glint/migrations"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline.
	auditMetrics := auditmetrics.New()
	auditSvc, err := audit.NewService(auditstore.NewPostgres(db),
		audit.WithLogger(log),
		audit.WithMetrics(auditMetrics),
	)
	if err != nil {
		log.Error("audit service init failed", "error", err)
		os.Exit(1)
	}
	interceptor, err := audit.NewInterceptor(auditSvc, newAuditPostgresTx(db), log)
	if err != nil {
		log.Error("audit interceptor init failed", "error", err)
		os.Exit(1)
	}

	// Retention.
	policy := retention.FromConfig(cfg.Retention)
	registry, err := legalhold.NewRegistry(legalhold.NewPostgres(db), legalhold.WithLogger(log))
	if err != nil {
		log.Error("legal hold registry init failed", "error", err)
		os.Exit(1)
	}
	events := eventstore.NewPostgres(db)

	var locker purge.Locker
	if redisClient != nil {
		locker = purge.NewRedisLocker(redisClient.Client)
	} else {
		log.Warn("redis not configured; purge lock is process-local")
		locker = purge.NewMemoryLocker()
	}

	runner, err := purge.NewRunner(auditstore.NewPostgres(db), registry, events, locker, policy,
		purge.WithLogger(log),
		purge.WithMetrics(purgemetrics.New()),
		purge.WithBatchSize(cfg.Retention.BatchSize),
		purge.WithMaxAttempts(cfg.Retention.MaxAttempts),
		purge.WithBatchTimeout(cfg.Retention.BatchTimeout),
		purge.WithLockTTL(cfg.Retention.LockTTL),
	)
	if err != nil {
		log.Error("purge runner init failed", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(log)
	if err := sched.AddTask(scheduler.Task{
		Name:     "retention_purge",
		Schedule: cfg.Retention.Schedule,
		Run: func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		},
	}); err != nil {
		log.Error("purge schedule invalid", "error", err)
		os.Exit(1)
	}

	// HTTP surface.
	router := httpapi.New(httpapi.Deps{
		Logger:            log,
		Audit:             audithandler.New(auditSvc, log),
		Retention:         retentionhandler.New(registry, runner, events, interceptor, policy, log),
		OperatorTokenHash: cfg.OperatorTokenHash,
		JWT:               jwtauth.New(cfg.JWTSigningKey, "glint", "glint-audit"),
		Health: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	// Outbox drain to the Kafka compliance stream, when brokers are set.
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		worker := outbox.NewWorker(outbox.NewPostgres(db), publisher, log,
			outbox.WithMetrics(auditMetrics),
		)
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("kafka not configured; audit outbox will accumulate")
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
