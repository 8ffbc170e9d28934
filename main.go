package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gospike/adapters/postgres"
	"gospike/internal"
	"gospike/internal/config"
	"gospike/internal/migration"
	"gospike/ports"
	"gospike/ui"
)

// initDatabase connects to PostgreSQL and runs migrations. Returns nil when
// no DATABASE_URL is configured; the server then runs without persistence.
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, nil
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.DefaultLogger

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	var runs ports.RunRepository
	if db != nil {
		defer db.Close()
		runs = postgres.NewRunRepository(db)
		logger.Info("Run persistence enabled")
	} else {
		logger.Warn("DATABASE_URL not set, run persistence disabled")
	}

	server := ui.NewServer(appConfig, runs)
	if err := server.Start(":" + appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
