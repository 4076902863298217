package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/helloakshay27/hi-society-assets/internal/assetapi"
	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/prefs"
	"github.com/helloakshay27/hi-society-assets/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local runs; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	if err := category.Init(); err != nil {
		log.Fatalf("loading category rules: %v", err)
	}

	baseURL := os.Getenv("ASSET_API_BASE_URL")
	if baseURL == "" {
		log.Fatal("ASSET_API_BASE_URL is required")
	}
	token := os.Getenv("ASSET_API_TOKEN")
	if token == "" {
		log.Fatal("ASSET_API_TOKEN is required")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "file:assets.db?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	store := prefs.NewSQLiteStore(db)
	if err := store.CreateTable(ctx); err != nil {
		log.Fatalf("creating preferences table: %v", err)
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	err = server.Run(ctx, server.Config{
		Port:     port,
		Upstream: assetapi.New(baseURL, token),
		Prefs:    store,
	})
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}
