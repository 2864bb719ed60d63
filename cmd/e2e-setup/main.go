package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/config"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/infra/db/postgres"
	"orbit-redemption/internal/infra/events"
	"orbit-redemption/internal/infra/logging"
	"orbit-redemption/internal/infra/redis"
	"orbit-redemption/internal/infra/security"
	"orbit-redemption/internal/usecase"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove stale distributors and rate counters.
	log.Println("[1/4] Wiping Redis cache...")
	if cfg.Redis.URL != "" {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisClient.Close()
		if err := redisClient.FlushDB(ctx); err != nil {
			log.Fatalf("failed to flush redis: %v", err)
		}
	}

	// 2. Clean the database completely.
	log.Println("[2/4] Wiping all existing database data...")
	if err := postgres.ApplySchema(ctx, pool); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE codes, code_batches, distributors;`); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed one distributor with a fixed login.
	log.Println("[3/4] Seeding demo distributor...")
	d := seedDistributor(ctx, cfg, pool, logger)

	// 4. One small batch per owner so redemption can be tried right away.
	log.Println("[4/4] Seeding demo batches...")
	seedBatches(ctx, pool, d, logger)

	log.Println("--- E2E Environment Setup Complete ---")
}

func seedDistributor(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zerolog.Logger) *model.Distributor {
	uc := usecase.NewDistributorUseCase(
		postgres.NewPostgresDistributorRepo(pool),
		postgres.NewTxManager(pool),
		security.NewBcryptHasher(0),
		security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		logger,
	)
	d, err := uc.Create(ctx, model.AdminCaller(), usecase.CreateDistributorRequest{
		Name:           "Demo Reseller",
		Email:          "demo@orbit.local",
		Password:       "demo-password",
		CommissionRate: decimal.NewFromInt(20),
		CodePrefix:     "DEMO",
	})
	if err != nil {
		log.Fatalf("failed to create distributor: %v", err)
	}
	log.Printf("distributor %s (login demo@orbit.local / demo-password)", d.ID)
	return d
}

func seedBatches(ctx context.Context, pool *pgxpool.Pool, d *model.Distributor, logger *zerolog.Logger) {
	uc := usecase.NewBatchUseCase(
		postgres.NewPostgresBatchRepo(pool),
		postgres.NewPostgresCodeRepo(pool),
		postgres.NewPostgresDistributorRepo(pool),
		postgres.NewTxManager(pool),
		events.NoopPublisher{},
		usecase.CodeOptions{},
		logger,
	)
	for _, req := range []usecase.GenerateRequest{
		{Type: "monthly", Count: 3},
		{DistributorID: d.ID, Type: "yearly", Count: 3},
	} {
		b, codes, err := uc.Generate(ctx, model.AdminCaller(), req)
		if err != nil {
			log.Printf("failed to generate %s batch: %v", req.Type, err)
			continue
		}
		log.Printf("batch %s owner=%s codes=%v", b.ID, b.Owner.String(), codes)
	}
}
