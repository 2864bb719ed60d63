package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"orbit-redemption/internal/config"
	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
	pg "orbit-redemption/internal/infra/db/postgres"
	"orbit-redemption/internal/infra/logging"
	"orbit-redemption/internal/infra/security"
	"orbit-redemption/internal/usecase"
)

func main() {
	name := flag.String("name", "", "distributor display name")
	email := flag.String("email", "", "distributor login email")
	password := flag.String("password", "", "distributor password")
	rate := flag.String("rate", "0", "commission rate, percent (0-100)")
	prefix := flag.String("prefix", "", "optional code prefix")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	commission, err := decimal.NewFromString(*rate)
	if err != nil {
		log.Fatalf("rate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if cfg.Database.ApplySchema {
		if err := pg.ApplySchema(ctx, pool); err != nil {
			log.Fatalf("schema: %v", err)
		}
	}

	distRepo := pg.NewPostgresDistributorRepo(pool)

	// If the distributor already exists, do nothing
	existing, err := distRepo.FindByEmail(ctx, repository.NoTX, *email)
	switch {
	case err == nil:
		fmt.Printf("distributor %s already present (id=%s, active=%v). No changes.\n", existing.Email, existing.ID, existing.IsActive)
		return
	case !errors.Is(err, domain.ErrDistributorNotFound):
		log.Fatalf("lookup distributor: %v", err)
	}

	distUC := usecase.NewDistributorUseCase(
		distRepo,
		pg.NewTxManager(pool),
		security.NewBcryptHasher(0),
		security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		logger,
	)
	d, err := distUC.Create(ctx, model.AdminCaller(), usecase.CreateDistributorRequest{
		Name:           *name,
		Email:          *email,
		Password:       *password,
		CommissionRate: commission,
		CodePrefix:     *prefix,
	})
	if err != nil {
		log.Fatalf("create distributor: %v", err)
	}
	fmt.Printf("seeded: %s <%s> (id=%s, rate=%s%%, prefix=%q)\n", d.Name, d.Email, d.ID, d.CommissionRate.String(), d.CodePrefix)
}
