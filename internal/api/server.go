// Package api serves the analytics queries over HTTP as JSON, plus rendered
// charts of the headline aggregates.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/units"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *db.DB
	units string
}

func NewServer(database *db.DB, distanceUnits string) *Server {
	return &Server{
		db:    database,
		units: distanceUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/counts", s.showCounts)
	mux.HandleFunc("/api/average_activities", s.showAverageActivities)
	mux.HandleFunc("/api/top_users", s.showTopUsers)
	mux.HandleFunc("/api/users_by_mode", s.showUsersByMode)
	mux.HandleFunc("/api/mode_histogram", s.showModeHistogram)
	mux.HandleFunc("/api/busiest_year", s.showBusiestYear)
	mux.HandleFunc("/api/distance", s.showDistance)
	mux.HandleFunc("/api/altitude_gain", s.showAltitudeGain)
	mux.HandleFunc("/api/invalid_activities", s.showInvalidActivities)
	mux.HandleFunc("/api/users_in_box", s.showUsersInBox)
	mux.HandleFunc("/api/favorite_modes", s.showFavoriteModes)
	mux.HandleFunc("/api/ingest_runs/latest", s.showLatestIngestRun)
	mux.HandleFunc("/charts/modes", s.chartModes)
	mux.HandleFunc("/charts/top_users", s.chartTopUsers)
	mux.HandleFunc("/plots/years.png", s.plotYears)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// requireGet enforces the method and sets the JSON content type. Returns
// false if the request was rejected.
func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

func (s *Server) showCounts(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	counts, err := s.db.CountEntities()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to count entities: %v", err))
		return
	}
	s.writeJSON(w, map[string]int64{
		"users":       counts.Users,
		"activities":  counts.Activities,
		"trackpoints": counts.TrackPoints,
	})
}

func (s *Server) showAverageActivities(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	avg, err := s.db.AverageActivitiesPerUser()
	if errors.Is(err, db.ErrNoUsers) {
		s.writeJSONError(w, http.StatusNotFound, "No users in dataset")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to compute average: %v", err))
		return
	}
	s.writeJSON(w, map[string]float64{"average_activities_per_user": avg})
}

// parseTopN reads an optional positive 'n' query parameter. The second
// return value reports whether parsing succeeded; an error response has
// already been written when it is false.
func (s *Server) parseTopN(w http.ResponseWriter, r *http.Request) (int, bool) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'n' parameter")
			return 0, false
		}
		n = parsed
	}
	return n, true
}

func (s *Server) showTopUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	n, ok := s.parseTopN(w, r)
	if !ok {
		return
	}
	top, err := s.db.TopUsersByActivityCount(n)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve top users: %v", err))
		return
	}
	s.writeJSON(w, top)
}

func (s *Server) showUsersByMode(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'mode' parameter")
		return
	}
	ids, err := s.db.UsersByMode(mode)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve users by mode: %v", err))
		return
	}
	s.writeJSON(w, map[string]any{"mode": mode, "users": ids})
}

func (s *Server) showModeHistogram(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	hist, err := s.db.ModeHistogram()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve mode histogram: %v", err))
		return
	}
	s.writeJSON(w, hist)
}

func (s *Server) showBusiestYear(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	byCount, err := s.db.BusiestYearByActivityCount()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve busiest year: %v", err))
		return
	}
	byHours, err := s.db.BusiestYearByRecordedHours()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve busiest year by hours: %v", err))
		return
	}
	s.writeJSON(w, map[string]any{
		"by_activity_count": byCount,
		"by_recorded_hours": byHours,
	})
}

func (s *Server) showDistance(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user"), 10, 64)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'user' parameter")
		return
	}
	mode := q.Get("mode")
	if mode == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'mode' parameter")
		return
	}
	var year *int
	if raw := q.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'year' parameter")
			return
		}
		year = &parsed
	}

	km, err := s.db.DistanceTraveledKm(userID, mode, year)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to compute distance: %v", err))
		return
	}
	s.writeJSON(w, map[string]any{
		"user":     userID,
		"mode":     mode,
		"distance": units.ConvertDistance(km, s.units),
		"units":    s.units,
	})
}

func (s *Server) showAltitudeGain(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	n, ok := s.parseTopN(w, r)
	if !ok {
		return
	}
	top, err := s.db.TopUsersByAltitudeGain(n)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve altitude gains: %v", err))
		return
	}
	s.writeJSON(w, top)
}

func (s *Server) showInvalidActivities(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	counts, err := s.db.InvalidActivityCounts()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve invalid activities: %v", err))
		return
	}
	s.writeJSON(w, counts)
}

func (s *Server) showUsersInBox(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	q := r.URL.Query()
	box := geo.BoundingBox{}
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"lat_min", &box.LatMin},
		{"lat_max", &box.LatMax},
		{"lon_min", &box.LonMin},
		{"lon_max", &box.LonMax},
	} {
		v, err := strconv.ParseFloat(q.Get(p.name), 64)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid '%s' parameter", p.name))
			return
		}
		*p.dst = v
	}
	if !box.Valid() {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid bounding box")
		return
	}

	ids, err := s.db.UsersInBoundingBox(box)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve users in box: %v", err))
		return
	}
	s.writeJSON(w, map[string]any{"users": ids})
}

func (s *Server) showFavoriteModes(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	favs, err := s.db.FavoriteModesByLabeledUser()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve favorite modes: %v", err))
		return
	}
	s.writeJSON(w, favs)
}

func (s *Server) showLatestIngestRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	run, err := s.db.LatestIngestRun()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve ingest run: %v", err))
		return
	}
	if run == nil {
		s.writeJSONError(w, http.StatusNotFound, "No ingest runs recorded")
		return
	}
	s.writeJSON(w, run)
}
