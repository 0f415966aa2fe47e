// Package db wraps the sqlite dataset store: schema bootstrap, bulk
// persistence of a rebuild, and the analytics queries.
package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/trajectory.report/internal/geolife"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the dataset database at path and
// bootstraps the schema. Use ":memory:" for an ephemeral database.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &DB{db}
	if err := d.createCollections(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// createCollections creates the three dataset collections and the ingest-run
// log if they do not exist yet.
func (db *DB) createCollections() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                INTEGER PRIMARY KEY,
			has_labels        BOOLEAN NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS activities (
			id                  INTEGER PRIMARY KEY,
			user_id             INTEGER NOT NULL,
			transportation_mode TEXT,
			start_time          TEXT NOT NULL,
			end_time            TEXT NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS trackpoints (
			id                INTEGER PRIMARY KEY,
			activity_id       INTEGER NOT NULL,
			lat               DOUBLE NOT NULL,
			lon               DOUBLE NOT NULL,
			altitude          DOUBLE NOT NULL,
			date_time         TEXT NOT NULL,
			FOREIGN KEY(activity_id) REFERENCES activities(id)
		);
		CREATE INDEX IF NOT EXISTS idx_activities_user_id ON activities(user_id);
		CREATE INDEX IF NOT EXISTS idx_activities_mode ON activities(transportation_mode);
		CREATE INDEX IF NOT EXISTS idx_trackpoints_activity_id ON trackpoints(activity_id);
		CREATE TABLE IF NOT EXISTS ingest_runs (
			run_id              TEXT PRIMARY KEY,
			started_at          TEXT NOT NULL,
			finished_at         TEXT,
			users               BIGINT,
			activities          BIGINT,
			trackpoints         BIGINT,
			skipped_activities  BIGINT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create collections: %w", err)
	}
	return nil
}

// ResetCollections drops and recreates the three dataset collections.
// Re-running ingestion from scratch is the only supported recovery path, so
// a rebuild always starts here. The ingest-run log survives resets.
func (db *DB) ResetCollections() error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS trackpoints;
		DROP TABLE IF EXISTS activities;
		DROP TABLE IF EXISTS users;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop collections: %w", err)
	}
	return db.createCollections()
}

// InsertDataset persists a fully assembled dataset in a single transaction.
// Atomicity across the three batches guarantees a concurrent reader never
// observes a user referencing a missing activity or an activity referencing
// a missing trackpoint.
func (db *DB) InsertDataset(ds *geolife.Dataset) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := insertUsers(tx, ds.Users); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertActivities(tx, ds.Activities); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertTrackPoints(tx, ds.TrackPoints); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	log.Printf("persisted %d users, %d activities, %d trackpoints",
		len(ds.Users), len(ds.Activities), len(ds.TrackPoints))
	return nil
}

func insertUsers(tx *sql.Tx, users []geolife.User) error {
	stmt, err := tx.Prepare(`INSERT INTO users (id, has_labels) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.Exec(u.ID, u.HasLabels); err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.ID, err)
		}
	}
	return nil
}

func insertActivities(tx *sql.Tx, activities []geolife.Activity) error {
	stmt, err := tx.Prepare(`
		INSERT INTO activities (id, user_id, transportation_mode, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare activity insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range activities {
		_, err := stmt.Exec(a.ID, a.UserID, a.TransportationMode,
			timeutil.Format(a.StartTime), timeutil.Format(a.EndTime))
		if err != nil {
			return fmt.Errorf("failed to insert activity %d: %w", a.ID, err)
		}
	}
	return nil
}

func insertTrackPoints(tx *sql.Tx, points []geolife.TrackPoint) error {
	stmt, err := tx.Prepare(`
		INSERT INTO trackpoints (id, activity_id, lat, lon, altitude, date_time)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trackpoint insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.ID, p.ActivityID, p.Lat, p.Lon, p.Altitude,
			timeutil.Format(p.DateTime))
		if err != nil {
			return fmt.Errorf("failed to insert trackpoint %d: %w", p.ID, err)
		}
	}
	return nil
}
