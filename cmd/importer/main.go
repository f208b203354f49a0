package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"stash-tracker/internal/config"
	"stash-tracker/internal/database"
	"stash-tracker/internal/ingest"
	"stash-tracker/internal/store"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
)

// Bulk importer for CSV exports, for backfills too large or too frequent for
// the upload endpoint. Reads a local file or downloads from a URL and writes
// straight to the event store.
var (
	filePath = flag.String("file", "", "path to a CSV export")
	fileURL  = flag.String("url", "", "URL of a CSV export to download")
	dsn      = flag.String("dsn", "", "database DSN (defaults to DATABASE_URL)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if *dsn == "" {
		*dsn = cfg.DatabaseURL
	}

	csvText, err := readSource()
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	result, err := ingest.Normalize(csvText)
	if err != nil {
		log.Fatalf("Failed to parse CSV: %v", err)
	}
	log.Printf("Parsed %d rows: %d valid, %d invalid", result.Total, len(result.Valid), result.InvalidCount)
	for _, sample := range result.InvalidSamples {
		log.Printf("  rejected row: %v (issues: %v)", sample.Row, sample.Issues)
	}
	if len(result.Valid) == 0 {
		log.Fatal("No valid records found, nothing to import")
	}

	db, err := database.Initialize(*dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := store.NewEventStore(db).InsertEvents(result.Valid)
	if err != nil {
		log.Fatalf("Failed to store events: %v", err)
	}
	log.Printf("Done: %d inserted, %d duplicates (of %d)", summary.Inserted, summary.Duplicates, summary.Total)
}

func readSource() (string, error) {
	switch {
	case *filePath != "" && *fileURL != "":
		return "", fmt.Errorf("use either -file or -url, not both")
	case *filePath != "":
		data, err := os.ReadFile(*filePath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case *fileURL != "":
		client := resty.New()
		client.SetTimeout(30 * time.Second)
		resp, err := client.R().Get(*fileURL)
		if err != nil {
			return "", err
		}
		if resp.StatusCode() != 200 {
			return "", fmt.Errorf("download failed with status %d", resp.StatusCode())
		}
		return string(resp.Body()), nil
	default:
		return "", fmt.Errorf("one of -file or -url is required")
	}
}
