package api

import (
	"fmt"
	"log"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotYears renders a PNG bar plot of activity counts per start year.
func (s *Server) plotYears(w http.ResponseWriter, r *http.Request) {
	counts, err := s.db.ActivityCountsByYear()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve yearly counts: %v", err))
		return
	}
	if len(counts) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "No activities recorded")
		return
	}

	values := make(plotter.Values, 0, len(counts))
	labels := make([]string, 0, len(counts))
	for _, yc := range counts {
		values = append(values, float64(yc.Activities))
		labels = append(labels, fmt.Sprintf("%d", yc.Year))
	}

	p := plot.New()
	p.Title.Text = "Activities per year"
	p.Y.Label.Text = "activities"

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to build bar chart: %v", err))
		return
	}
	p.Add(bars)
	p.NominalX(labels...)

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		log.Printf("failed to write plot: %v", err)
	}
}
