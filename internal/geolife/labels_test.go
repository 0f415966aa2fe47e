package geolife

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := timeutil.Parse(value)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", value, err)
	}
	return ts
}

func newTestLabelIndex(t *testing.T, fs *fsutil.MemoryFileSystem) *LabelIndex {
	t.Helper()
	li, err := NewLabelIndex(fs, "dataset")
	if err != nil {
		t.Fatalf("NewLabelIndex failed: %v", err)
	}
	return li
}

const labelFile = "Start Time\tEnd Time\tTransportation Mode\n" +
	"2008/10/23 17:58:06\t2008/10/23 18:03:00\twalk\n" +
	"2008/10/24 08:00:00\t2008/10/24 08:30:00\tbus\n"

func labeledFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("dataset/labeled_ids.txt", []byte("010\n112\n"))
	fs.WriteFile("dataset/Data/010/labels.txt", []byte(labelFile))
	return fs
}

func TestHasLabels(t *testing.T) {
	li := newTestLabelIndex(t, labeledFS(t))

	if !li.HasLabels("010") {
		t.Error("user 010 should have labels")
	}
	if li.HasLabels("000") {
		t.Error("user 000 should not have labels")
	}
}

func TestModeFor_ExactMatch(t *testing.T) {
	li := newTestLabelIndex(t, labeledFS(t))

	mode, err := li.ModeFor("010", mustParse(t, "2008-10-23 17:58:06"), mustParse(t, "2008-10-23 18:03:00"))
	if err != nil {
		t.Fatalf("ModeFor failed: %v", err)
	}
	if mode == nil || *mode != "walk" {
		t.Errorf("ModeFor = %v, want walk", mode)
	}
}

func TestModeFor_BoundaryShiftYieldsAbsent(t *testing.T) {
	li := newTestLabelIndex(t, labeledFS(t))

	// Shifting either boundary by one second must yield no mode
	cases := []struct{ start, end string }{
		{"2008-10-23 17:58:07", "2008-10-23 18:03:00"},
		{"2008-10-23 17:58:05", "2008-10-23 18:03:00"},
		{"2008-10-23 17:58:06", "2008-10-23 18:03:01"},
		{"2008-10-23 17:58:06", "2008-10-23 18:02:59"},
	}
	for _, c := range cases {
		mode, err := li.ModeFor("010", mustParse(t, c.start), mustParse(t, c.end))
		if err != nil {
			t.Fatalf("ModeFor failed: %v", err)
		}
		if mode != nil {
			t.Errorf("ModeFor(%s, %s) = %q, want absent", c.start, c.end, *mode)
		}
	}
}

func TestModeFor_UnlabeledUserSkipsFileAccess(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("dataset/labeled_ids.txt", []byte("010\n"))
	// No label file anywhere; an unlabeled lookup must not try to read one.
	li := newTestLabelIndex(t, fs)

	mode, err := li.ModeFor("000", mustParse(t, "2008-10-23 17:58:06"), mustParse(t, "2008-10-23 18:03:00"))
	if err != nil {
		t.Fatalf("ModeFor failed: %v", err)
	}
	if mode != nil {
		t.Errorf("ModeFor for unlabeled user = %q, want absent", *mode)
	}
}

func TestModeFor_MissingLabelFileIsError(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("dataset/labeled_ids.txt", []byte("112\n"))
	li := newTestLabelIndex(t, fs)

	_, err := li.ModeFor("112", mustParse(t, "2008-10-23 17:58:06"), mustParse(t, "2008-10-23 18:03:00"))
	if err == nil {
		t.Fatal("expected integrity error for labeled user without label file")
	}
	if !strings.Contains(err.Error(), "112") {
		t.Errorf("error should name the user: %v", err)
	}
}

func TestModeFor_DuplicateWindowFirstWins(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("dataset/labeled_ids.txt", []byte("010\n"))
	fs.WriteFile("dataset/Data/010/labels.txt", []byte(
		"Start Time\tEnd Time\tTransportation Mode\n"+
			"2008/10/23 17:58:06\t2008/10/23 18:03:00\ttaxi\n"+
			"2008/10/23 17:58:06\t2008/10/23 18:03:00\twalk\n"))
	li := newTestLabelIndex(t, fs)

	mode, err := li.ModeFor("010", mustParse(t, "2008-10-23 17:58:06"), mustParse(t, "2008-10-23 18:03:00"))
	if err != nil {
		t.Fatalf("ModeFor failed: %v", err)
	}
	if mode == nil || *mode != "taxi" {
		t.Errorf("ModeFor = %v, want first match taxi", mode)
	}
}

func TestModeFor_MalformedLabelRow(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("dataset/labeled_ids.txt", []byte("010\n"))
	fs.WriteFile("dataset/Data/010/labels.txt", []byte(
		"Start Time\tEnd Time\tTransportation Mode\n"+
			"2008/10/23 17:58:06\twalk\n"))
	li := newTestLabelIndex(t, fs)

	_, err := li.ModeFor("010", mustParse(t, "2008-10-23 17:58:06"), mustParse(t, "2008-10-23 18:03:00"))
	if err == nil {
		t.Fatal("expected error for malformed label row")
	}
}

func TestModeFor_ConcurrentSingleParse(t *testing.T) {
	li := newTestLabelIndex(t, labeledFS(t))

	start := mustParse(t, "2008-10-24 08:00:00")
	end := mustParse(t, "2008-10-24 08:30:00")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mode, err := li.ModeFor("010", start, end)
			if err != nil {
				t.Errorf("ModeFor failed: %v", err)
				return
			}
			if mode == nil || *mode != "bus" {
				t.Errorf("ModeFor = %v, want bus", mode)
			}
		}()
	}
	wg.Wait()

	// Cache must hold exactly one parsed entry for the user
	li.mu.Lock()
	defer li.mu.Unlock()
	if len(li.spans["010"]) != 2 {
		t.Errorf("cached %d spans for user 010, want 2", len(li.spans["010"]))
	}
}
