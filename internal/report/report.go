// Package report summarizes dataset-wide distributions for the console
// reporting tool.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"
)

// DurationSummary describes the distribution of activity durations.
type DurationSummary struct {
	Count       int
	MeanHours   float64
	StdDevHours float64
	MinHours    float64
	MedianHours float64
	P90Hours    float64
	MaxHours    float64
}

// SummarizeDurations computes distribution statistics over activity
// durations in hours. Returns the zero summary for an empty input.
func SummarizeDurations(hours []float64) DurationSummary {
	if len(hours) == 0 {
		return DurationSummary{}
	}

	sorted := make([]float64, len(hours))
	copy(sorted, hours)
	sort.Float64s(sorted)

	s := DurationSummary{
		Count:       len(sorted),
		MeanHours:   stat.Mean(sorted, nil),
		MinHours:    sorted[0],
		MedianHours: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90Hours:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
		MaxHours:    sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		s.StdDevHours = stat.StdDev(sorted, nil)
	}
	return s
}

// WriteTo prints the summary as an aligned table.
func (s DurationSummary) WriteTo(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "activities\t%d\n", s.Count)
	fmt.Fprintf(tw, "mean hours\t%.3f\n", s.MeanHours)
	fmt.Fprintf(tw, "stddev hours\t%.3f\n", s.StdDevHours)
	fmt.Fprintf(tw, "min hours\t%.3f\n", s.MinHours)
	fmt.Fprintf(tw, "median hours\t%.3f\n", s.MedianHours)
	fmt.Fprintf(tw, "p90 hours\t%.3f\n", s.P90Hours)
	fmt.Fprintf(tw, "max hours\t%.3f\n", s.MaxHours)
	return tw.Flush()
}
