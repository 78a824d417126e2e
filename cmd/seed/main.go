// Package main implements the database seed tool: it optionally applies
// migrations, optionally resets the products table, and inserts a number of
// random products with non-negative quantities and 2-decimal prices.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/abgdnv/goinventory/internal/config"
	"github.com/abgdnv/goinventory/internal/store"
	"github.com/abgdnv/goinventory/pkg/bootstrap"
	"github.com/abgdnv/goinventory/pkg/config/configloader"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const serviceName = "inventory"

var adjectives = []string{"Rustic", "Sleek", "Sturdy", "Compact", "Heavy-Duty", "Ergonomic", "Portable", "Refurbished"}
var nouns = []string{"Wrench", "Crate", "Pallet", "Drill", "Ladder", "Toolbox", "Generator", "Workbench", "Shelf", "Cart"}

func main() {
	count := flag.Int("count", 50, "number of products to insert")
	reset := flag.Bool("reset", false, "truncate the products table before seeding")
	applyMigrations := flag.Bool("migrate", false, "apply database migrations before seeding")
	migrationsPath := flag.String("migrations", "migrations", "path to the migrations directory")
	flag.Parse()

	if err := run(context.Background(), *count, *reset, *applyMigrations, *migrationsPath); err != nil {
		log.Printf("seed failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, count int, reset, applyMigrations bool, migrationsPath string) error {
	if count < 0 {
		return fmt.Errorf("count must be a non-negative integer, got %d", count)
	}

	cfg, err := configloader.Load[*config.Config](serviceName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if applyMigrations {
		m, err := migrate.New("file://"+migrationsPath, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Println("migrations applied")
	}

	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create database connection pool: %w", err)
	}
	defer dbPool.Close()

	if reset {
		if _, err := dbPool.Exec(ctx, "TRUNCATE TABLE products"); err != nil {
			return fmt.Errorf("failed to truncate products table: %w", err)
		}
		log.Println("products table truncated")
	}

	productStore := store.NewPgStore(dbPool)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("%s %s", adjectives[rand.IntN(len(adjectives))], nouns[rand.IntN(len(nouns))])
		quantity := int32(rand.IntN(1000))
		price := float64(rand.IntN(100_000)) / 100
		if _, err := productStore.Create(ctx, name, quantity, price); err != nil {
			return fmt.Errorf("failed to insert product %d of %d: %w", i+1, count, err)
		}
	}
	log.Printf("inserted %d products", count)
	return nil
}
