package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

// IngestRun records one full rebuild of the dataset. Runs survive collection
// resets, so the log doubles as a rebuild history.
type IngestRun struct {
	RunID             string
	StartedAt         time.Time
	FinishedAt        *time.Time
	Users             int64
	Activities        int64
	TrackPoints       int64
	SkippedActivities int64
}

// StartIngestRun opens a new run record and returns its id.
func (db *DB) StartIngestRun(startedAt time.Time) (string, error) {
	runID := uuid.NewString()
	_, err := db.Exec(`INSERT INTO ingest_runs (run_id, started_at) VALUES (?, ?)`,
		runID, timeutil.Format(startedAt))
	if err != nil {
		return "", fmt.Errorf("failed to record ingest run start: %w", err)
	}
	return runID, nil
}

// FinishIngestRun closes a run record with its final counts.
func (db *DB) FinishIngestRun(runID string, finishedAt time.Time, users, activities, trackpoints, skipped int64) error {
	res, err := db.Exec(`
		UPDATE ingest_runs
		SET finished_at = ?, users = ?, activities = ?, trackpoints = ?, skipped_activities = ?
		WHERE run_id = ?`,
		timeutil.Format(finishedAt), users, activities, trackpoints, skipped, runID)
	if err != nil {
		return fmt.Errorf("failed to record ingest run finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown ingest run %s", runID)
	}
	return nil
}

// LatestIngestRun returns the most recently started run, or nil when the log
// is empty.
func (db *DB) LatestIngestRun() (*IngestRun, error) {
	row := db.QueryRow(`
		SELECT run_id, started_at, finished_at,
		       COALESCE(users, 0), COALESCE(activities, 0),
		       COALESCE(trackpoints, 0), COALESCE(skipped_activities, 0)
		FROM ingest_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1`)

	var r IngestRun
	var started string
	var finished *string
	err := row.Scan(&r.RunID, &started, &finished,
		&r.Users, &r.Activities, &r.TrackPoints, &r.SkippedActivities)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest ingest run: %w", err)
	}

	if r.StartedAt, err = timeutil.Parse(started); err != nil {
		return nil, fmt.Errorf("bad started_at in ingest run %s: %w", r.RunID, err)
	}
	if finished != nil {
		ts, err := timeutil.Parse(*finished)
		if err != nil {
			return nil, fmt.Errorf("bad finished_at in ingest run %s: %w", r.RunID, err)
		}
		r.FinishedAt = &ts
	}
	return &r, nil
}
