package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/geolife"
	"github.com/banshee-data/trajectory.report/internal/units"
)

// ErrNoUsers is returned by averages that are undefined on an empty dataset.
var ErrNoUsers = errors.New("no users in dataset")

// DefaultTopN is the result length used when a caller passes n <= 0.
const DefaultTopN = 20

// invalidGapSeconds is the minimum timestamp gap between consecutive
// trackpoints that marks an activity invalid.
const invalidGapSeconds = 300

type EntityCounts struct {
	Users       int64
	Activities  int64
	TrackPoints int64
}

type UserActivityCount struct {
	UserID     int64
	Activities int64
}

type ModeCount struct {
	Mode       string
	Activities int64
}

type YearActivityCount struct {
	Year       int
	Activities int64
}

type YearHours struct {
	Year  int
	Hours float64
}

type UserAltitudeGain struct {
	UserID       int64
	MetersGained float64
}

type UserInvalidCount struct {
	UserID            int64
	InvalidActivities int64
}

type UserFavoriteMode struct {
	UserID int64
	Mode   string
}

// CountEntities returns the size of each of the three collections.
func (db *DB) CountEntities() (EntityCounts, error) {
	var c EntityCounts
	row := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM activities),
			(SELECT COUNT(*) FROM trackpoints)`)
	if err := row.Scan(&c.Users, &c.Activities, &c.TrackPoints); err != nil {
		return EntityCounts{}, fmt.Errorf("failed to count entities: %w", err)
	}
	return c, nil
}

// AverageActivitiesPerUser returns the mean activity count across all users.
// Returns ErrNoUsers when the users collection is empty.
func (db *DB) AverageActivitiesPerUser() (float64, error) {
	counts, err := db.CountEntities()
	if err != nil {
		return 0, err
	}
	if counts.Users == 0 {
		return 0, ErrNoUsers
	}
	return float64(counts.Activities) / float64(counts.Users), nil
}

// TopUsersByActivityCount returns the n users with the most activities,
// descending. Ties break on ascending user id.
func (db *DB) TopUsersByActivityCount(n int) ([]UserActivityCount, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	rows, err := db.Query(`
		SELECT user_id, COUNT(*) AS n
		FROM activities
		GROUP BY user_id
		ORDER BY n DESC, user_id ASC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var out []UserActivityCount
	for rows.Next() {
		var uc UserActivityCount
		if err := rows.Scan(&uc.UserID, &uc.Activities); err != nil {
			return nil, fmt.Errorf("failed to scan top user row: %w", err)
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

// UsersByMode returns the ids of users with at least one activity labeled
// with exactly the given mode, ascending.
func (db *DB) UsersByMode(mode string) ([]int64, error) {
	rows, err := db.Query(`
		SELECT DISTINCT user_id
		FROM activities
		WHERE transportation_mode = ?
		ORDER BY user_id ASC`, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by mode: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// ModeHistogram returns activity counts per transportation mode, descending.
// Unlabeled activities are excluded. Ties break on ascending mode name.
func (db *DB) ModeHistogram() ([]ModeCount, error) {
	rows, err := db.Query(`
		SELECT transportation_mode, COUNT(*) AS n
		FROM activities
		WHERE transportation_mode IS NOT NULL
		GROUP BY transportation_mode
		ORDER BY n DESC, transportation_mode ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mode histogram: %w", err)
	}
	defer rows.Close()

	var out []ModeCount
	for rows.Next() {
		var mc ModeCount
		if err := rows.Scan(&mc.Mode, &mc.Activities); err != nil {
			return nil, fmt.Errorf("failed to scan mode row: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// ActivityDurationsHours returns every activity's end-start duration in
// hours, ordered by activity id.
func (db *DB) ActivityDurationsHours() ([]float64, error) {
	rows, err := db.Query(`
		SELECT (strftime('%s', end_time) - strftime('%s', start_time)) / 3600.0
		FROM activities
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity durations: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var hours float64
		if err := rows.Scan(&hours); err != nil {
			return nil, fmt.Errorf("failed to scan duration row: %w", err)
		}
		out = append(out, hours)
	}
	return out, rows.Err()
}

// ActivityCountsByYear returns activity counts grouped by start year,
// ascending by year.
func (db *DB) ActivityCountsByYear() ([]YearActivityCount, error) {
	rows, err := db.Query(`
		SELECT CAST(strftime('%Y', start_time) AS INTEGER) AS year, COUNT(*) AS n
		FROM activities
		GROUP BY year
		ORDER BY year ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query yearly counts: %w", err)
	}
	defer rows.Close()

	var out []YearActivityCount
	for rows.Next() {
		var yc YearActivityCount
		if err := rows.Scan(&yc.Year, &yc.Activities); err != nil {
			return nil, fmt.Errorf("failed to scan yearly count row: %w", err)
		}
		out = append(out, yc)
	}
	return out, rows.Err()
}

// BusiestYearByActivityCount returns the year with the most started
// activities, or nil when no activities exist. Ties break on earliest year.
func (db *DB) BusiestYearByActivityCount() (*YearActivityCount, error) {
	row := db.QueryRow(`
		SELECT CAST(strftime('%Y', start_time) AS INTEGER) AS year, COUNT(*) AS n
		FROM activities
		GROUP BY year
		ORDER BY n DESC, year ASC
		LIMIT 1`)

	var yc YearActivityCount
	if err := row.Scan(&yc.Year, &yc.Activities); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query busiest year: %w", err)
	}
	return &yc, nil
}

// BusiestYearByRecordedHours returns the year with the most recorded hours,
// summing each activity's end-start duration into the year it started, or
// nil when no activities exist.
func (db *DB) BusiestYearByRecordedHours() (*YearHours, error) {
	row := db.QueryRow(`
		SELECT CAST(strftime('%Y', start_time) AS INTEGER) AS year,
		       SUM((strftime('%s', end_time) - strftime('%s', start_time)) / 3600.0) AS hours
		FROM activities
		GROUP BY year
		ORDER BY hours DESC, year ASC
		LIMIT 1`)

	var yh YearHours
	if err := row.Scan(&yh.Year, &yh.Hours); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query busiest year by hours: %w", err)
	}
	return &yh, nil
}

// DistanceTraveledKm sums great-circle distances between consecutive
// trackpoints of every activity a user recorded with the given mode.
// Distance never chains across activity boundaries. A non-nil year
// restricts to activities started that year.
func (db *DB) DistanceTraveledKm(userID int64, mode string, year *int) (float64, error) {
	query := `
		SELECT t.activity_id, t.lat, t.lon
		FROM trackpoints t
		JOIN activities a ON a.id = t.activity_id
		WHERE a.user_id = ? AND a.transportation_mode = ?`
	args := []any{userID, mode}
	if year != nil {
		query += ` AND CAST(strftime('%Y', a.start_time) AS INTEGER) = ?`
		args = append(args, *year)
	}
	query += ` ORDER BY t.id ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query trackpoints for distance: %w", err)
	}
	defer rows.Close()

	var (
		total          float64
		prevActivityID int64 = -1
		prevLat        float64
		prevLon        float64
	)
	for rows.Next() {
		var activityID int64
		var lat, lon float64
		if err := rows.Scan(&activityID, &lat, &lon); err != nil {
			return 0, fmt.Errorf("failed to scan distance row: %w", err)
		}
		if activityID == prevActivityID {
			total += geo.HaversineKm(prevLat, prevLon, lat, lon)
		}
		prevActivityID, prevLat, prevLon = activityID, lat, lon
	}
	return total, rows.Err()
}

// TopUsersByAltitudeGain returns the n users who gained the most altitude,
// descending. Gain sums positive deltas between consecutive valid-altitude
// points within one activity; the -777 sentinel never contributes a delta.
// Feet convert to meters once per user total. Ties break on ascending id.
func (db *DB) TopUsersByAltitudeGain(n int) ([]UserAltitudeGain, error) {
	if n <= 0 {
		n = DefaultTopN
	}

	rows, err := db.Query(`
		SELECT a.user_id, t.activity_id, t.altitude
		FROM trackpoints t
		JOIN activities a ON a.id = t.activity_id
		WHERE t.altitude != ?
		ORDER BY t.id ASC`, geolife.UnknownAltitude)
	if err != nil {
		return nil, fmt.Errorf("failed to query altitudes: %w", err)
	}
	defer rows.Close()

	gainFeet := make(map[int64]float64)
	var order []int64

	var (
		prevActivityID int64 = -1
		prevAltitude   float64
	)
	for rows.Next() {
		var userID, activityID int64
		var altitude float64
		if err := rows.Scan(&userID, &activityID, &altitude); err != nil {
			return nil, fmt.Errorf("failed to scan altitude row: %w", err)
		}
		if _, seen := gainFeet[userID]; !seen {
			gainFeet[userID] = 0
			order = append(order, userID)
		}
		if activityID == prevActivityID && altitude > prevAltitude {
			gainFeet[userID] += altitude - prevAltitude
		}
		prevActivityID, prevAltitude = activityID, altitude
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]UserAltitudeGain, 0, len(order))
	for _, id := range order {
		out = append(out, UserAltitudeGain{
			UserID:       id,
			MetersGained: units.AltitudeGainMeters(gainFeet[id]),
		})
	}
	sortAltitudeGains(out)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func sortAltitudeGains(gains []UserAltitudeGain) {
	sort.Slice(gains, func(i, j int) bool {
		if gains[i].MetersGained != gains[j].MetersGained {
			return gains[i].MetersGained > gains[j].MetersGained
		}
		return gains[i].UserID < gains[j].UserID
	})
}

// InvalidActivityCounts returns, per user, the number of activities holding
// at least one pair of consecutive trackpoints five or more minutes apart.
// Sorted by count descending, then user id ascending. Users with no invalid
// activities do not appear.
func (db *DB) InvalidActivityCounts() ([]UserInvalidCount, error) {
	rows, err := db.Query(`
		WITH ordered AS (
			SELECT activity_id,
			       CAST(strftime('%s', date_time) AS INTEGER) AS ts,
			       LEAD(CAST(strftime('%s', date_time) AS INTEGER))
			           OVER (PARTITION BY activity_id ORDER BY id) AS next_ts
			FROM trackpoints
		),
		invalid AS (
			SELECT DISTINCT activity_id
			FROM ordered
			WHERE next_ts IS NOT NULL AND next_ts - ts >= ?
		)
		SELECT a.user_id, COUNT(*) AS n
		FROM invalid i
		JOIN activities a ON a.id = i.activity_id
		GROUP BY a.user_id
		ORDER BY n DESC, a.user_id ASC`, invalidGapSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to query invalid activities: %w", err)
	}
	defer rows.Close()

	var out []UserInvalidCount
	for rows.Next() {
		var uc UserInvalidCount
		if err := rows.Scan(&uc.UserID, &uc.InvalidActivities); err != nil {
			return nil, fmt.Errorf("failed to scan invalid activity row: %w", err)
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

// UsersInBoundingBox returns the ids of users with at least one trackpoint
// strictly inside the box, ascending.
func (db *DB) UsersInBoundingBox(box geo.BoundingBox) ([]int64, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("invalid bounding box: %+v", box)
	}
	rows, err := db.Query(`
		SELECT DISTINCT a.user_id
		FROM trackpoints t
		JOIN activities a ON a.id = t.activity_id
		WHERE t.lat > ? AND t.lat < ? AND t.lon > ? AND t.lon < ?
		ORDER BY a.user_id ASC`,
		box.LatMin, box.LatMax, box.LonMin, box.LonMax)
	if err != nil {
		return nil, fmt.Errorf("failed to query bounding box: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// FavoriteModesByLabeledUser returns, per labeled user ascending, the mode
// that labels the most of their activities. Ties break on ascending mode
// name. Labeled users with no labeled activities are skipped.
func (db *DB) FavoriteModesByLabeledUser() ([]UserFavoriteMode, error) {
	rows, err := db.Query(`
		SELECT a.user_id, a.transportation_mode, COUNT(*) AS n
		FROM activities a
		JOIN users u ON u.id = a.user_id
		WHERE u.has_labels = 1 AND a.transportation_mode IS NOT NULL
		GROUP BY a.user_id, a.transportation_mode
		ORDER BY a.user_id ASC, n DESC, a.transportation_mode ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorite modes: %w", err)
	}
	defer rows.Close()

	var out []UserFavoriteMode
	var lastUser int64 = -1
	for rows.Next() {
		var userID int64
		var mode string
		var n int64
		if err := rows.Scan(&userID, &mode, &n); err != nil {
			return nil, fmt.Errorf("failed to scan favorite mode row: %w", err)
		}
		if userID == lastUser {
			continue
		}
		out = append(out, UserFavoriteMode{UserID: userID, Mode: mode})
		lastUser = userID
	}
	return out, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
