// Command report runs the full set of analytics queries against an ingested
// trajectory database and prints the results as aligned console tables.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/units"
)

var (
	dbPath        = flag.String("db", "trajectory.db", "Path to the sqlite database")
	topN          = flag.Int("n", 20, "Result length for top-N queries")
	distanceUser  = flag.Int64("distance-user", 112, "User for the distance query")
	distanceMode  = flag.String("distance-mode", "walk", "Mode for the distance query")
	distanceYear  = flag.Int("distance-year", 2008, "Start year for the distance query (0 for all years)")
	distanceUnits = flag.String("units", units.KM, "Distance units (km, mi)")
	boxLatMin     = flag.Float64("lat-min", 39.916, "Bounding box minimum latitude")
	boxLatMax     = flag.Float64("lat-max", 39.975, "Bounding box maximum latitude")
	boxLonMin     = flag.Float64("lon-min", 116.397, "Bounding box minimum longitude")
	boxLonMax     = flag.Float64("lon-max", 116.434, "Bounding box maximum longitude")
)

func main() {
	flag.Parse()

	if !units.IsValid(*distanceUnits) {
		log.Fatalf("Invalid units %q; valid units are: %s", *distanceUnits, units.GetValidUnitsString())
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := run(database); err != nil {
		log.Printf("report failed: %v", err)
		database.Close()
		os.Exit(1)
	}
}

func run(database *db.DB) error {
	counts, err := database.CountEntities()
	if err != nil {
		return err
	}
	section("Entity counts")
	table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "users\t%d\n", counts.Users)
		fmt.Fprintf(tw, "activities\t%d\n", counts.Activities)
		fmt.Fprintf(tw, "trackpoints\t%d\n", counts.TrackPoints)
	})

	section("Average activities per user")
	avg, err := database.AverageActivitiesPerUser()
	if err != nil {
		return err
	}
	fmt.Printf("%.3f\n", avg)

	section(fmt.Sprintf("Top %d users by activity count", *topN))
	top, err := database.TopUsersByActivityCount(*topN)
	if err != nil {
		return err
	}
	table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "user\tactivities\n")
		for _, uc := range top {
			fmt.Fprintf(tw, "%03d\t%d\n", uc.UserID, uc.Activities)
		}
	})

	section("Users who have taken a taxi")
	taxiUsers, err := database.UsersByMode("taxi")
	if err != nil {
		return err
	}
	for _, id := range taxiUsers {
		fmt.Printf("%03d\n", id)
	}

	section("Activities per transportation mode")
	hist, err := database.ModeHistogram()
	if err != nil {
		return err
	}
	table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "mode\tactivities\n")
		for _, mc := range hist {
			fmt.Fprintf(tw, "%s\t%d\n", mc.Mode, mc.Activities)
		}
	})

	section("Busiest year")
	byCount, err := database.BusiestYearByActivityCount()
	if err != nil {
		return err
	}
	byHours, err := database.BusiestYearByRecordedHours()
	if err != nil {
		return err
	}
	if byCount != nil {
		fmt.Printf("by activity count: %d (%d activities)\n", byCount.Year, byCount.Activities)
	}
	if byHours != nil {
		fmt.Printf("by recorded hours: %d (%.1f hours)\n", byHours.Year, byHours.Hours)
	}

	var year *int
	if *distanceYear != 0 {
		year = distanceYear
	}
	section(fmt.Sprintf("Distance traveled by user %03d (%s)", *distanceUser, *distanceMode))
	km, err := database.DistanceTraveledKm(*distanceUser, *distanceMode, year)
	if err != nil {
		return err
	}
	fmt.Printf("%.3f %s\n", units.ConvertDistance(km, *distanceUnits), *distanceUnits)

	section(fmt.Sprintf("Top %d users by altitude gained", *topN))
	gains, err := database.TopUsersByAltitudeGain(*topN)
	if err != nil {
		return err
	}
	table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "user\tmeters gained\n")
		for _, g := range gains {
			fmt.Fprintf(tw, "%03d\t%.1f\n", g.UserID, g.MetersGained)
		}
	})

	section("Invalid activities per user")
	invalid, err := database.InvalidActivityCounts()
	if err != nil {
		return err
	}
	table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "user\tinvalid activities\n")
		for _, uc := range invalid {
			fmt.Fprintf(tw, "%03d\t%d\n", uc.UserID, uc.InvalidActivities)
		}
	})

	section("Users with trackpoints inside the bounding box")
	boxUsers, err := database.UsersInBoundingBox(geo.BoundingBox{
		LatMin: *boxLatMin, LatMax: *boxLatMax,
		LonMin: *boxLonMin, LonMax: *boxLonMax,
	})
	if err != nil {
		return err
	}
	for _, id := range boxUsers {
		fmt.Printf("%03d\n", id)
	}

	section("Favorite transportation mode per labeled user")
	favs, err := database.FavoriteModesByLabeledUser()
	if err != nil {
		return err
	}
	table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "user\tmode\n")
		for _, f := range favs {
			fmt.Fprintf(tw, "%03d\t%s\n", f.UserID, f.Mode)
		}
	})

	section("Activity duration distribution")
	durations, err := database.ActivityDurationsHours()
	if err != nil {
		return err
	}
	if err := report.SummarizeDurations(durations).WriteTo(os.Stdout); err != nil {
		return err
	}

	return nil
}

func section(title string) {
	fmt.Printf("\n== %s ==\n", title)
}

func table(fill func(*tabwriter.Writer)) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fill(tw)
	tw.Flush()
}
