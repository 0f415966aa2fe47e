package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// chartModes renders an HTML bar chart of activity counts per
// transportation mode.
func (s *Server) chartModes(w http.ResponseWriter, r *http.Request) {
	hist, err := s.db.ModeHistogram()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve mode histogram: %v", err))
		return
	}

	labels := make([]string, 0, len(hist))
	values := make([]opts.BarData, 0, len(hist))
	for _, mc := range hist {
		labels = append(labels, mc.Mode)
		values = append(values, opts.BarData{Value: mc.Activities})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Transportation Modes", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Activities per transportation mode"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("activities", values)

	s.renderChart(w, bar)
}

// chartTopUsers renders an HTML bar chart of the users with the most
// activities. Accepts the same optional 'n' parameter as the JSON endpoint.
func (s *Server) chartTopUsers(w http.ResponseWriter, r *http.Request) {
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

	labels := make([]string, 0, len(top))
	values := make([]opts.BarData, 0, len(top))
	for _, uc := range top {
		labels = append(labels, fmt.Sprintf("%03d", uc.UserID))
		values = append(values, opts.BarData{Value: uc.Activities})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Top Users", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Users with the most activities"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("activities", values)

	s.renderChart(w, bar)
}

func (s *Server) renderChart(w http.ResponseWriter, chart *charts.Bar) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
