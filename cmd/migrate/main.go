// Package main provides a CLI tool for creating the database sink schemas.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/leaderboard-collector/internal/config"
	"github.com/leaderboard-collector/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse")
		dir    = flag.String("dir", "migrations", "Root directory holding per-database migrations")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch *dbType {
	case "postgres":
		if err := runPostgresMigrations(cfg, *action, *dir+"/postgres"); err != nil {
			log.Fatalf("Postgres migration failed: %v", err)
		}
	case "clickhouse":
		if err := runClickHouseMigrations(cfg, *action, *dir+"/clickhouse"); err != nil {
			log.Fatalf("ClickHouse migration failed: %v", err)
		}
	default:
		log.Fatalf("Unknown database type: %s", *dbType)
	}
}

func runPostgresMigrations(cfg *config.Config, action, migrationsPath string) error {
	databaseURL := cfg.Database.Postgres.URL()

	switch action {
	case "up":
		log.Println("Running Postgres migrations...")
		if err := storage.RunMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		log.Println("Postgres migrations completed successfully")

	case "down":
		log.Println("Rolling back Postgres migration...")
		if err := storage.RollbackMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		log.Println("Postgres migration rolled back successfully")

	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, migrationsPath)
		if err != nil {
			return err
		}
		log.Printf("Current Postgres migration version: %d (dirty: %v)", version, dirty)

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}

func runClickHouseMigrations(cfg *config.Config, action, migrationsPath string) error {
	if action != "up" {
		return fmt.Errorf("ClickHouse migrations only support 'up' action")
	}
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory not found: %s", migrationsPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Println("Connecting to ClickHouse...")
	conn, err := storage.NewClickHouseConn(ctx, &cfg.Database.ClickHouse)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Error closing ClickHouse connection: %v", err)
		}
	}()

	log.Println("Running ClickHouse migrations...")
	applied, err := storage.RunClickHouseMigrations(ctx, conn, migrationsPath)
	if err != nil {
		return err
	}

	log.Printf("ClickHouse migrations completed successfully (%d files)", len(applied))
	return nil
}
