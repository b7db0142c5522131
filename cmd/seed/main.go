// Package main provides a CLI tool for preparing the database: schema,
// admin user, and optional demo catalog.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"skusync/internal/core/types"
	"skusync/internal/domain/activity"
	"skusync/internal/domain/auth"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/settings"
	"skusync/internal/infrastructure/storage/postgres"
	"skusync/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		log.Fatalw("failed to apply schema", "error", err)
	}
	log.Info("schema applied")

	txManager := postgres.NewTxManager(pool)
	userRepo := postgres.NewUserRepo(txManager)

	if err := seedAdminUser(ctx, userRepo, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoCatalog(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo catalog", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, repo auth.Repository, log *logger.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@skusync.local"
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	if existing, err := repo.GetByEmail(ctx, email); err == nil {
		log.Infow("admin user already exists", "email", email, "user_id", existing.ID)
		return nil
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := auth.NewUser(email, "Administrator", auth.RoleAdmin, string(passwordHash))
	if err := repo.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	log.Infow("admin user created", "email", email, "user_id", user.ID)
	return nil
}

// seedDemoCatalog creates a couple of simple products and one composite
// through the regular save pipeline, so prices and cost roll-up are
// computed the same way the API would.
func seedDemoCatalog(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	productRepo := postgres.NewProductRepo(txManager)
	marginRepo := postgres.NewMarginRepo(txManager)
	integrationRepo := postgres.NewIntegrationRepo(txManager)
	settingsRepo := postgres.NewSettingsRepo(integrationRepo)

	activityRepo, err := postgres.NewActivityRepo(txManager)
	if err != nil {
		return fmt.Errorf("init activity storage: %w", err)
	}

	settingsService := settings.NewService(settingsRepo)
	activityService := activity.NewService(activityRepo)
	catalogService := catalog.NewService(productRepo, marginRepo, settingsService, activityService)

	existing, err := catalogService.List(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		log.Infow("catalog is not empty, skipping demo data", "products", len(existing))
		return nil
	}

	margin := 20.0
	simple := func(sku, name string, cost float64) *catalog.Product {
		p := catalog.NewProduct(catalog.KindSimple, nil)
		p.SKU = sku
		p.Name = name
		p.PurchaseCost = types.NewMoney(cost)
		for i := range p.Prices {
			m := margin
			p.Prices[i].Discount = &m
		}
		return p
	}

	frame := simple("FRM-100", "Frame 100cm", 42.50)
	panel := simple("PNL-060", "Panel 60cm", 18.00)

	for _, p := range []*catalog.Product{frame, panel} {
		if _, err := catalogService.Save(ctx, p); err != nil {
			return fmt.Errorf("save demo product %s: %w", p.SKU, err)
		}
	}

	kit := catalog.NewProduct(catalog.KindComposite, nil)
	kit.SKU = "KIT-160"
	kit.Name = "Frame and panel kit"
	kit.Components = []catalog.Component{
		{ComponentID: frame.ID, Quantity: 1},
		{ComponentID: panel.ID, Quantity: 2},
	}
	for i := range kit.Prices {
		m := margin
		kit.Prices[i].Discount = &m
	}

	if _, err := catalogService.Save(ctx, kit); err != nil {
		return fmt.Errorf("save demo kit: %w", err)
	}

	log.Infow("demo catalog created", "products", 3)
	return nil
}
