package main

import (
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"requisas/config"
	"requisas/loader"
	"requisas/requisition"
)

// dsnParams serializes every write transaction up front (_txlock=immediate),
// which is what the approval path relies on instead of SELECT ... FOR UPDATE.
const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	log.Println("Connecting to database...")
	dbConn, err := sqlx.Open("sqlite3", cfg.DBPath+dsnParams)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer dbConn.Close()
	log.Println("Database connection successful.")

	if err := loader.InitDatabase(dbConn); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	if err := loader.SeedDemoData(dbConn); err != nil {
		log.Fatalf("Database seeding failed: %v", err)
	}
	log.Println("Database initialization complete.")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone '%s': %v", cfg.Timezone, err)
	}

	svc := &requisition.Service{DB: dbConn, Loc: loc}

	mux := http.NewServeMux()
	SetupRoutes(mux, dbConn, svc, cfg)

	log.Printf("Starting server on http://localhost%s", cfg.Port)
	if err := http.ListenAndServe(cfg.Port, mux); err != nil {
		log.Fatalf("server start error: %v", err)
	}
}
