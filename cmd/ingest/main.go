// Command ingest rebuilds the trajectory database from a raw dataset
// directory. The rebuild is destructive: the three collections are dropped
// and repopulated from scratch on every run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/geolife"
)

var (
	dataRoot      = flag.String("data", "dataset", "Path to the dataset root (holds labeled_ids.txt and Data/)")
	dbPath        = flag.String("db", "trajectory.db", "Path to the sqlite database")
	migrationsDir = flag.String("migrations", "migrations", "Path to the migrations directory")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Printf("ingest failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		return err
	}

	runID, err := database.StartIngestRun(time.Now())
	if err != nil {
		return err
	}
	log.Printf("ingest run %s started", runID)

	if err := database.ResetCollections(); err != nil {
		return err
	}

	ds, err := geolife.NewAssembler(*dataRoot).Build()
	if err != nil {
		return err
	}

	if err := database.InsertDataset(ds); err != nil {
		return err
	}

	if err := database.FinishIngestRun(runID, time.Now(),
		int64(len(ds.Users)), int64(len(ds.Activities)),
		int64(len(ds.TrackPoints)), int64(ds.SkippedActivities)); err != nil {
		return err
	}

	fmt.Printf("users:               %d\n", len(ds.Users))
	fmt.Printf("activities:          %d\n", len(ds.Activities))
	fmt.Printf("trackpoints:         %d\n", len(ds.TrackPoints))
	fmt.Printf("skipped activities:  %d\n", ds.SkippedActivities)
	return nil
}
