package db

import (
	"os"
	"testing"
	"time"

	"github.com/banshee-data/trajectory.report/internal/geolife"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	db, err := NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db
}

func cleanupTestDB(t *testing.T, db *DB) {
	t.Helper()
	fname := t.Name() + ".db"
	db.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := timeutil.Parse(value)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", value, err)
	}
	return ts
}

// seedTestDataset persists a three-user fixture:
//
//	user 10 (labeled)   two walk activities, one holding an exact 5-minute gap
//	user 20 (labeled)   two bus activities and one walk activity
//	user 30 (unlabeled) one activity with a 4:59 gap, placed near (30, 100)
func seedTestDataset(t *testing.T, db *DB) *geolife.Dataset {
	t.Helper()

	pt := func(id, activityID int64, lat, lon, altitude float64, when string) geolife.TrackPoint {
		return geolife.TrackPoint{
			ID:         id,
			ActivityID: activityID,
			Lat:        lat,
			Lon:        lon,
			Altitude:   altitude,
			DateTime:   mustParseTime(t, when),
		}
	}
	act := func(id, userID int64, mode *string, start, end string) geolife.Activity {
		return geolife.Activity{
			ID:                 id,
			UserID:             userID,
			TransportationMode: mode,
			StartTime:          mustParseTime(t, start),
			EndTime:            mustParseTime(t, end),
		}
	}

	ds := &geolife.Dataset{
		Users: []geolife.User{
			{ID: 10, HasLabels: true, ActivityIDs: []int64{0, 1}},
			{ID: 20, HasLabels: true, ActivityIDs: []int64{2, 3, 4}},
			{ID: 30, HasLabels: false, ActivityIDs: []int64{5}},
		},
		Activities: []geolife.Activity{
			act(0, 10, strPtr("walk"), "2008-06-01 12:00:00", "2008-06-01 12:02:00"),
			act(1, 10, strPtr("walk"), "2008-06-02 08:00:00", "2008-06-02 08:05:00"),
			act(2, 20, strPtr("bus"), "2008-07-01 10:00:00", "2008-07-01 10:30:00"),
			act(3, 20, strPtr("bus"), "2009-03-01 10:00:00", "2009-03-01 20:00:00"),
			act(4, 20, strPtr("walk"), "2009-04-01 09:00:00", "2009-04-01 19:00:00"),
			act(5, 30, nil, "2008-08-01 07:00:00", "2008-08-01 07:04:59"),
		},
		TrackPoints: []geolife.TrackPoint{
			pt(0, 0, 39.90, 116.40, 100, "2008-06-01 12:00:00"),
			pt(1, 0, 39.91, 116.41, 80, "2008-06-01 12:01:00"),
			pt(2, 0, 39.92, 116.42, 120, "2008-06-01 12:02:00"),
			// Exact 300 s gap
			pt(3, 1, 40.000, 116.500, geolife.UnknownAltitude, "2008-06-02 08:00:00"),
			pt(4, 1, 40.001, 116.501, 50, "2008-06-02 08:05:00"),
			pt(5, 2, 39.00, 116.00, 10, "2008-07-01 10:00:00"),
			pt(6, 2, 39.01, 116.01, 30, "2008-07-01 10:04:00"),
			pt(7, 3, 41.00, 117.00, 0, "2009-03-01 10:00:00"),
			pt(8, 3, 41.00, 117.00, 0, "2009-03-01 10:04:00"),
			pt(9, 4, 42.00, 118.00, 5, "2009-04-01 09:00:00"),
			pt(10, 4, 42.00, 118.00, 5, "2009-04-01 09:02:00"),
			// 299 s gap, one second short of invalid
			pt(11, 5, 30.000, 100.000, 0, "2008-08-01 07:00:00"),
			pt(12, 5, 30.001, 100.001, 0, "2008-08-01 07:04:59"),
		},
	}

	if err := db.InsertDataset(ds); err != nil {
		t.Fatalf("InsertDataset failed: %v", err)
	}
	return ds
}
