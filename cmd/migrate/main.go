package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wingo/internal/config"
	"wingo/internal/database"
)

const migrationsDir = "./internal/database/migrations"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "create" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate create <migration_name>")
		}
		createMigration(os.Args[2])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := database.New(context.Background(), cfg.Database, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer srv.Close()
	db := srv.DB()

	switch command {
	case "up":
		log.Println("Running migrations...")
		if err := database.RunMigrations(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")

	case "down":
		log.Println("Rolling back last migration...")
		if err := database.RollbackMigration(db); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rollback completed successfully")

	case "version":
		version, dirty, err := database.GetMigrationVersion(db)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		if dirty {
			log.Printf("Current version: %d (DIRTY - needs manual intervention)", version)
		} else {
			log.Printf("Current version: %d", version)
		}

	default:
		log.Printf("Unknown command: %s", command)
		printUsage()
		os.Exit(1)
	}
}

// createMigration writes an empty up/down pair. New files are embedded into
// the binary on the next build.
func createMigration(name string) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		log.Fatalf("Failed to read migrations directory: %v", err)
	}

	nextVersion := 1
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			nextVersion++
		}
	}

	upFile := filepath.Join(migrationsDir, fmt.Sprintf("%06d_%s.up.sql", nextVersion, name))
	downFile := filepath.Join(migrationsDir, fmt.Sprintf("%06d_%s.down.sql", nextVersion, name))

	upContent := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n\n-- Add your SQL here\n", name, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(upFile, []byte(upContent), 0644); err != nil {
		log.Fatalf("Failed to create up migration: %v", err)
	}
	downContent := fmt.Sprintf("-- Rollback: %s\n\n-- Add your rollback SQL here\n", name)
	if err := os.WriteFile(downFile, []byte(downContent), 0644); err != nil {
		log.Fatalf("Failed to create down migration: %v", err)
	}

	log.Printf("Created migration files:")
	log.Printf("   - %s", upFile)
	log.Printf("   - %s", downFile)
}

func printUsage() {
	fmt.Println("Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate up              Run all pending migrations")
	fmt.Println("  migrate down            Rollback the last migration")
	fmt.Println("  migrate version         Show current migration version")
	fmt.Println("  migrate create <name>   Create a new migration file")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_HOST                 Database host (default: localhost)")
	fmt.Println("  DB_PORT                 Database port (default: 5432)")
	fmt.Println("  DB_DATABASE             Database name (default: wingo)")
	fmt.Println("  DB_USERNAME             Database user (default: postgres)")
	fmt.Println("  DB_PASSWORD             Database password (default: postgres)")
	fmt.Println("  DB_SCHEMA               Schema (default: public)")
}
