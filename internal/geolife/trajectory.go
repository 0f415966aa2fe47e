package geolife

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

// pltHeaderRows is the number of preamble rows in every raw trajectory file.
const pltHeaderRows = 6

// ActivityMeta is the derived metadata of one normalized activity.
type ActivityMeta struct {
	StartTime          time.Time
	EndTime            time.Time
	TransportationMode *string
}

// rawRow is one parsed trajectory file row before identifier assignment.
type rawRow struct {
	lat      float64
	lon      float64
	altitude float64
	dateTime time.Time
}

// NormalizeActivity converts one raw per-activity point log into an ordered
// trackpoint batch plus derived activity metadata.
//
// Point ids are assigned as a contiguous increasing range starting at
// nextPointID, preserving file order; the returned counter is the next free
// id. Activity ids are the caller's to stamp.
//
// An activity with more than MaxActivityPoints rows is rejected: accepted is
// false, the counter is returned unchanged, and no error is raised. This is
// a policy cutoff, not a failure.
func NormalizeActivity(data []byte, user string, nextPointID int64, labels *LabelIndex) (points []TrackPoint, meta ActivityMeta, next int64, accepted bool, err error) {
	rows, err := parseTrajectory(data)
	if err != nil {
		return nil, ActivityMeta{}, nextPointID, false, err
	}
	if len(rows) == 0 {
		return nil, ActivityMeta{}, nextPointID, false, fmt.Errorf("trajectory has no data rows")
	}

	if len(rows) > MaxActivityPoints {
		return nil, ActivityMeta{}, nextPointID, false, nil
	}

	meta.StartTime = rows[0].dateTime
	meta.EndTime = rows[len(rows)-1].dateTime

	meta.TransportationMode, err = labels.ModeFor(user, meta.StartTime, meta.EndTime)
	if err != nil {
		return nil, ActivityMeta{}, nextPointID, false, err
	}

	points = make([]TrackPoint, len(rows))
	for i, r := range rows {
		points[i] = TrackPoint{
			ID:       nextPointID + int64(i),
			Lat:      r.lat,
			Lon:      r.lon,
			Altitude: r.altitude,
			DateTime: r.dateTime,
		}
	}

	return points, meta, nextPointID + int64(len(rows)), true, nil
}

// parseTrajectory parses the raw .plt format: six header rows, then
// comma-separated rows of lat, lon, unused, altitude, day-count, date, time.
// Rows are assumed already chronological; altitude values (including the
// unknown sentinel) pass through unmodified.
func parseTrajectory(data []byte) ([]rawRow, error) {
	var rows []rawRow

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		if line <= pltHeaderRows {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, ",")
		if len(fields) != 7 {
			return nil, fmt.Errorf("trajectory row %d: expected 7 fields, got %d", line, len(fields))
		}

		lat, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: failed to parse lat: %w", line, err)
		}
		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: failed to parse lon: %w", line, err)
		}
		altitude, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: failed to parse altitude: %w", line, err)
		}

		dateTime, err := timeutil.Parse(fields[5] + " " + fields[6])
		if err != nil {
			return nil, fmt.Errorf("trajectory row %d: %w", line, err)
		}

		rows = append(rows, rawRow{
			lat:      lat,
			lon:      lon,
			altitude: altitude,
			dateTime: dateTime,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trajectory: %w", err)
	}

	return rows, nil
}
