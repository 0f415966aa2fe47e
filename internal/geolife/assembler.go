package geolife

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

// Assembler drives discovery across all users and activities and produces
// the three normalized collections with consistent cross-references.
//
// The dataset root is expected to contain labeled_ids.txt and a Data/
// directory with one subdirectory per user, each holding a Trajectory/
// directory of .plt files and an optional labels.txt.
type Assembler struct {
	FS    fsutil.FileSystem
	Root  string
	Clock timeutil.Clock
}

// NewAssembler creates an assembler over the OS filesystem.
func NewAssembler(root string) *Assembler {
	return &Assembler{
		FS:    fsutil.OSFileSystem{},
		Root:  root,
		Clock: timeutil.RealClock{},
	}
}

// Build runs one full rebuild pass: it walks every user directory in
// listing order, normalizes each activity, threads the two monotonic id
// counters, and returns the three complete batches.
//
// Any parse failure aborts the whole build; no partial dataset is returned.
// Oversized activities are dropped silently and only counted.
func (a *Assembler) Build() (*Dataset, error) {
	started := a.Clock.Now()

	labels, err := NewLabelIndex(a.FS, a.Root)
	if err != nil {
		return nil, err
	}

	dataDir := filepath.Join(a.Root, "Data")
	userDirs, err := a.FS.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list user directories: %w", err)
	}

	ds := &Dataset{}
	var nextActivityID, nextPointID int64

	for _, userDir := range userDirs {
		if !userDir.IsDir() {
			continue
		}
		name := userDir.Name()

		userID, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user directory %q is not a numeric id: %w", name, err)
		}

		user := User{
			ID:        userID,
			HasLabels: labels.HasLabels(name),
		}

		nextActivityID, nextPointID, err = a.buildUser(ds, &user, name, labels, nextActivityID, nextPointID)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", name, err)
		}

		ds.Users = append(ds.Users, user)
	}

	log.Printf("assembled %d users, %d activities, %d trackpoints (%d oversized activities skipped) in %v",
		len(ds.Users), len(ds.Activities), len(ds.TrackPoints), ds.SkippedActivities, a.Clock.Since(started))

	return ds, nil
}

// buildUser normalizes every activity of one user in listing order,
// returning the advanced counters.
func (a *Assembler) buildUser(ds *Dataset, user *User, name string, labels *LabelIndex, nextActivityID, nextPointID int64) (int64, int64, error) {
	trajDir := filepath.Join(a.Root, "Data", name, "Trajectory")
	entries, err := a.FS.ReadDir(trajDir)
	if err != nil {
		return nextActivityID, nextPointID, fmt.Errorf("failed to list trajectories: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".plt") {
			continue
		}

		data, err := a.FS.ReadFile(filepath.Join(trajDir, entry.Name()))
		if err != nil {
			return nextActivityID, nextPointID, fmt.Errorf("failed to read trajectory %s: %w", entry.Name(), err)
		}

		points, meta, advanced, accepted, err := NormalizeActivity(data, name, nextPointID, labels)
		if err != nil {
			return nextActivityID, nextPointID, fmt.Errorf("trajectory %s: %w", entry.Name(), err)
		}
		if !accepted {
			ds.SkippedActivities++
			continue
		}

		activity := Activity{
			ID:                 nextActivityID,
			UserID:             user.ID,
			TransportationMode: meta.TransportationMode,
			StartTime:          meta.StartTime,
			EndTime:            meta.EndTime,
			TrackPointIDs:      make([]int64, len(points)),
		}
		for i := range points {
			points[i].ActivityID = activity.ID
			activity.TrackPointIDs[i] = points[i].ID
		}

		ds.TrackPoints = append(ds.TrackPoints, points...)
		ds.Activities = append(ds.Activities, activity)
		user.ActivityIDs = append(user.ActivityIDs, activity.ID)

		nextActivityID++
		nextPointID = advanced
	}

	return nextActivityID, nextPointID, nil
}
