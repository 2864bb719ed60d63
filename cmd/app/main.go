package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/config"
	"orbit-redemption/internal/domain/ports/adapter"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/db/memory"
	pg "orbit-redemption/internal/infra/db/postgres"
	"orbit-redemption/internal/infra/events"
	"orbit-redemption/internal/infra/logging"
	"orbit-redemption/internal/infra/metrics"
	red "orbit-redemption/internal/infra/redis"
	"orbit-redemption/internal/infra/sched"
	"orbit-redemption/internal/infra/security"
	"orbit-redemption/internal/infra/web"
	"orbit-redemption/internal/infra/worker"
	"orbit-redemption/internal/usecase"
)

// set via -ldflags
var (
	version = "dev"
	commit  = "none"
)

type stores struct {
	codes        repository.CodeRepository
	batches      repository.BatchRepository
	distributors repository.DistributorRepository
	tm           repository.TransactionManager
	pool         *pgxpool.Pool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("development mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("reports timezone")
	}

	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
	}

	// ---- Storage ----
	st, err := openStores(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	if st.pool != nil {
		defer st.pool.Close()
	}

	// ---- Events ----
	var sink adapter.EventPublisher = events.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq")
		}
		defer amqpPub.Close()
		sink = amqpPub
	}
	eventPool := worker.NewPool(cfg.AMQP.Workers, cfg.AMQP.QueueSize, logger)
	eventPool.Start(ctx)
	publisher := events.NewAsyncPublisher(sink, eventPool, 5*time.Second, logger)

	// ---- Security ----
	hasher := security.NewBcryptHasher(0)
	tokens := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// ---- Use cases ----
	batchUC := usecase.NewBatchUseCase(st.batches, st.codes, st.distributors, st.tm, publisher,
		usecase.CodeOptions{SegmentLength: cfg.Codes.SegmentLength, MaxAttempts: cfg.Codes.MaxAttempts}, logger)
	redemptionUC := usecase.NewRedemptionUseCase(st.codes, publisher, logger, cfg.Runtime.Dev)
	codeUC := usecase.NewCodeUseCase(st.codes, st.tm, logger, cfg.Runtime.Dev)
	statsUC := usecase.NewStatsUseCase(st.codes, st.distributors, loc, logger)
	distributorUC := usecase.NewDistributorUseCase(st.distributors, st.tm, hasher, tokens, logger)

	// ---- HTTP ----
	deps := web.Deps{
		Batches:         batchUC,
		Redemption:      redemptionUC,
		Codes:           codeUC,
		Stats:           statsUC,
		Distributors:    distributorUC,
		Auth:            web.NewAuthenticator(cfg.Auth.AdminKey, tokens, logger),
		RedeemPerMinute: cfg.RateLimit.RedeemPerMinute,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
	}
	var locker red.Locker
	if redisClient != nil {
		deps.Limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
	}
	srv := web.NewHTTPServer(cfg.HTTP, web.NewServer(deps, logger).Router())

	// ---- Scheduler ----
	scheduler := sched.NewScheduler(loc, time.Minute, logger)
	snapshot := sched.NewSnapshotJob(statsUC, locker, 2*time.Minute, logger)
	if err := scheduler.Add("settlement_snapshot", cfg.Scheduler.SnapshotCron, snapshot.Run); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	if st.pool != nil {
		if err := scheduler.Add("db_pool_stats", "@every 30s", sched.PoolStatsJob(st.pool)); err != nil {
			logger.Fatal().Err(err).Msg("scheduler")
		}
	}
	scheduler.Start()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop(shutdownCtx)
	eventPool.Stop()
	logger.Info().Msg("bye")
}

// openStores picks Postgres when a database URL is configured and the
// in-memory store otherwise (dev only, enforced by config validation).
func openStores(ctx context.Context, cfg *config.Config, cache *red.Client, logger *zerolog.Logger) (*stores, error) {
	if cfg.Database.URL == "" {
		logger.Warn().Msg("no database configured, using in-memory store")
		s := memory.NewStore()
		return &stores{
			codes:        memory.NewCodeRepo(s),
			batches:      memory.NewBatchRepo(s),
			distributors: memory.NewDistributorRepo(s),
			tm:           memory.NewTxManager(s),
		}, nil
	}

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.ApplySchema {
		if err := pg.ApplySchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	var distributors repository.DistributorRepository = pg.NewPostgresDistributorRepo(pool)
	if cache != nil {
		distributors = pg.NewDistributorRepoCacheDecorator(distributors, cache, cfg.Redis.TTL)
	}
	return &stores{
		codes:        pg.NewPostgresCodeRepo(pool),
		batches:      pg.NewPostgresBatchRepo(pool),
		distributors: distributors,
		tm:           pg.NewTxManager(pool),
		pool:         pool,
	}, nil
}
