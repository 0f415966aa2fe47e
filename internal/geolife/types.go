// Package geolife ingests raw Geolife-style trajectory logs and produces the
// normalized user/activity/trackpoint dataset.
package geolife

import "time"

const (
	// MaxActivityPoints is the hard per-activity size cap. Activities with
	// more raw rows than this are dropped entirely: their points never
	// enter the trackpoint collection and the activity is never recorded
	// against its user.
	MaxActivityPoints = 2500

	// UnknownAltitude is the sentinel recorded when a fix has no altitude.
	// It must be excluded from altitude computations.
	UnknownAltitude = -777.0
)

// User is one recorded participant, keyed by the integer parsed from its
// zero-padded source directory name.
type User struct {
	ID          int64   `json:"id"`
	HasLabels   bool    `json:"has_labels"`
	ActivityIDs []int64 `json:"activity_ids"`
}

// Activity is one recorded trip: an ordered run of trackpoints with derived
// start/end times and an optional transportation mode.
type Activity struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	TransportationMode *string   `json:"transportation_mode"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	TrackPointIDs      []int64   `json:"trackpoint_ids"`
}

// TrackPoint is one GPS fix belonging to exactly one activity.
type TrackPoint struct {
	ID         int64     `json:"id"`
	ActivityID int64     `json:"activity_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Altitude   float64   `json:"altitude"`
	DateTime   time.Time `json:"date_time"`
}

// LabelSpan is one externally supplied transportation-mode assertion for an
// exact [start, end] trip window.
type LabelSpan struct {
	Start time.Time
	End   time.Time
	Mode  string
}

// Dataset is the fully assembled output of one rebuild: three complete
// batches with consistent cross-references, ready for bulk persistence.
type Dataset struct {
	Users       []User
	Activities  []Activity
	TrackPoints []TrackPoint

	// SkippedActivities counts activities dropped by the size cap.
	SkippedActivities int
}
