package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"marketplace-assistant-be/internal/bootstrap"
	"marketplace-assistant-be/internal/config"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/internal/repository/unitofwork"
	"marketplace-assistant-be/internal/service"
	"marketplace-assistant-be/pkg/database"
)

// Indexes a catalog file synchronously: every line is parsed before anything is embedded
func main() {
	path := flag.String("file", "data/produtos.txt", "catalog file, one 'Category: Product - Price' per line")
	source := flag.String("source", "", "source tag stored with each product (defaults to the file name)")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	ingest := service.NewIngestService(
		unitofwork.NewRepositoryFactory(db),
		bootstrap.NewEmbeddingProvider(cfg),
		nil,
		sysLogger,
	)

	products, err := ingest.LoadFile(*path)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	tag := *source
	if tag == "" {
		tag = filepath.Base(*path)
	}
	n, err := ingest.Index(context.Background(), products, tag)
	if err != nil {
		log.Fatalf("Error: indexing failed, previous rows kept: %v", err)
	}
	log.Printf("✅ Indexed %d products from %s", n, tag)
}
