package main

// Run database migrations and optionally seed the blank catalog:
//   go run ./cmd/migrate                 # apply pending migrations
//   go run ./cmd/migrate -status         # print migration status
//   go run ./cmd/migrate -down           # roll back the latest migration
//   go run ./cmd/migrate -seed assets/blanks.yaml

import (
	"context"
	"flag"
	"fmt"
	"os"

	"policy-backend/internal/blanks"
	"policy-backend/internal/shared/config"
	"policy-backend/internal/shared/storage/db"
	"policy-backend/internal/shared/telemetry"
)

func main() {
	status := flag.Bool("status", false, "print migration status and exit")
	down := flag.Bool("down", false, "roll back the most recent migration")
	seed := flag.String("seed", "", "blank catalog YAML to upsert after migrating")
	flag.Parse()

	if err := run(*status, *down, *seed); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"err": err})
		os.Exit(1)
	}
}

func run(status, down bool, seed string) error {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	switch {
	case status:
		return db.MigrationStatus(ctx, sqlDB)
	case down:
		return db.RollbackMigration(ctx, sqlDB)
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	telemetry.Info("migrate.applied", nil)

	if seed == "" {
		return nil
	}
	catalog, err := blanks.LoadCatalogFile(seed)
	if err != nil {
		return err
	}
	registry := &blanks.PGRegistry{DB: sqlDB}
	if err := registry.Seed(ctx, catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	telemetry.Info("migrate.seeded", map[string]any{
		"catalog":  seed,
		"policies": len(catalog.Policies()),
		"blanks":   len(catalog.Blanks(blanks.Filter{})),
	})
	return nil
}
