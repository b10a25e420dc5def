package main

import (
	"flag"
	"fmt"
	"log"

	"labelstation/internal/app"
	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service/storage"
)

// migrate indexes captures that already sit in the capture directory, for
// example after the database was deleted or when upgrading from a plain
// directory queue.
func main() {
	cfg := config.Load()
	capturesDir := flag.String("captures", cfg.CaptureDirectory, "Directory containing captured frames")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	if *dbPath == "" {
		log.Fatalf("A database path is required; the in-memory index does not survive this command")
	}
	cfg.CaptureDirectory = *capturesDir
	cfg.DatabasePath = *dbPath

	fmt.Printf("Migrating captures from %s to database %s\n", *capturesDir, *dbPath)

	index, err := app.OpenIndex(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer index.Close()

	l := logger.NewLogger(cfg)
	defer l.Close()

	captures, err := storage.NewCaptureStore(*capturesDir, index.Captures, l)
	if err != nil {
		log.Fatalf("Failed to open capture directory: %v", err)
	}

	n, err := captures.Adopt()
	if err != nil {
		log.Fatalf("Failed to index captures: %v", err)
	}
	if n == 0 {
		fmt.Println("No new captures found to migrate")
	} else {
		fmt.Printf("✅ Successfully indexed %d captures\n", n)
	}

	// Show stats
	counts, err := index.Captures.CountByState()
	if err == nil {
		fmt.Printf("\n📊 Queue Statistics:\n")
		for _, state := range []model.CaptureState{model.CapturePending, model.CaptureIntegrated, model.CaptureDiscarded, model.CaptureMissing} {
			fmt.Printf("   %s: %d\n", state, counts[state])
		}
	}
}
