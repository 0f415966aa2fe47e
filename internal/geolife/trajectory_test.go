package geolife

import (
	"fmt"
	"strings"
	"testing"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
)

// pltFile builds a raw trajectory file from data rows, prepending the six
// header rows every .plt file carries.
func pltFile(rows ...string) []byte {
	var b strings.Builder
	b.WriteString("Geolife trajectory\nWGS 84\nAltitude is in Feet\nReserved 3\n0,2,255,My Track,0,0,2,8421376\n0\n")
	for _, r := range rows {
		b.WriteString(r)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func pltRow(lat, lon, altitude float64, date, clock string) string {
	return fmt.Sprintf("%f,%f,0,%f,39744.0,%s,%s", lat, lon, altitude, date, clock)
}

func unlabeledIndex(t *testing.T) *LabelIndex {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	fs.WriteFile("dataset/labeled_ids.txt", []byte(""))
	return newTestLabelIndex(t, fs)
}

func TestNormalizeActivity_Basic(t *testing.T) {
	data := pltFile(
		pltRow(39.90, 116.40, 100, "2008-10-23", "17:58:06"),
		pltRow(39.91, 116.41, 120, "2008-10-23", "17:59:06"),
		pltRow(39.92, 116.42, 110, "2008-10-23", "18:00:06"),
	)

	points, meta, next, accepted, err := NormalizeActivity(data, "000", 7, unlabeledIndex(t))
	if err != nil {
		t.Fatalf("NormalizeActivity failed: %v", err)
	}
	if !accepted {
		t.Fatal("activity should have been accepted")
	}
	if next != 10 {
		t.Errorf("next counter = %d, want 10", next)
	}

	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	for i, p := range points {
		if p.ID != 7+int64(i) {
			t.Errorf("point %d id = %d, want %d", i, p.ID, 7+int64(i))
		}
	}

	if got := meta.StartTime.Format("2006-01-02 15:04:05"); got != "2008-10-23 17:58:06" {
		t.Errorf("start time = %s", got)
	}
	if got := meta.EndTime.Format("2006-01-02 15:04:05"); got != "2008-10-23 18:00:06" {
		t.Errorf("end time = %s", got)
	}
	if meta.TransportationMode != nil {
		t.Errorf("mode = %q, want absent", *meta.TransportationMode)
	}
}

func TestNormalizeActivity_SentinelAltitudePassesThrough(t *testing.T) {
	data := pltFile(
		pltRow(39.90, 116.40, -777, "2008-10-23", "17:58:06"),
		pltRow(39.91, 116.41, 120, "2008-10-23", "17:59:06"),
	)

	points, _, _, accepted, err := NormalizeActivity(data, "000", 0, unlabeledIndex(t))
	if err != nil || !accepted {
		t.Fatalf("NormalizeActivity failed: accepted=%v err=%v", accepted, err)
	}
	if points[0].Altitude != UnknownAltitude {
		t.Errorf("sentinel altitude = %f, want %f", points[0].Altitude, UnknownAltitude)
	}
}

func TestNormalizeActivity_SizeCap(t *testing.T) {
	overCap := make([]string, MaxActivityPoints+1)
	for i := range overCap {
		overCap[i] = pltRow(39.90, 116.40, 100, "2008-10-23", fmt.Sprintf("%02d:%02d:%02d", i/3600, (i/60)%60, i%60))
	}

	points, _, next, accepted, err := NormalizeActivity(pltFile(overCap...), "000", 42, unlabeledIndex(t))
	if err != nil {
		t.Fatalf("oversized activity must not be an error: %v", err)
	}
	if accepted {
		t.Fatal("activity with 2501 rows should be rejected")
	}
	if points != nil {
		t.Error("rejected activity should return no points")
	}
	if next != 42 {
		t.Errorf("counter advanced to %d on rejection, want unchanged 42", next)
	}

	// Exactly at the cap is accepted
	atCap := overCap[:MaxActivityPoints]
	_, _, next, accepted, err = NormalizeActivity(pltFile(atCap...), "000", 42, unlabeledIndex(t))
	if err != nil || !accepted {
		t.Fatalf("activity with exactly %d rows should be accepted: accepted=%v err=%v", MaxActivityPoints, accepted, err)
	}
	if next != 42+int64(MaxActivityPoints) {
		t.Errorf("counter = %d, want %d", next, 42+MaxActivityPoints)
	}
}

func TestNormalizeActivity_BadTimestamp(t *testing.T) {
	data := pltFile(pltRow(39.90, 116.40, 100, "2008.10.23", "17:58:06"))

	_, _, _, _, err := NormalizeActivity(data, "000", 0, unlabeledIndex(t))
	if err == nil {
		t.Fatal("expected parse error for malformed timestamp")
	}
}

func TestNormalizeActivity_BadFieldCount(t *testing.T) {
	data := pltFile("39.90,116.40,0,100")

	_, _, _, _, err := NormalizeActivity(data, "000", 0, unlabeledIndex(t))
	if err == nil {
		t.Fatal("expected parse error for short row")
	}
}

func TestNormalizeActivity_Empty(t *testing.T) {
	_, _, _, _, err := NormalizeActivity(pltFile(), "000", 0, unlabeledIndex(t))
	if err == nil {
		t.Fatal("expected error for trajectory with no data rows")
	}
}

func TestNormalizeActivity_LabeledMode(t *testing.T) {
	fs := labeledFS(t)
	li := newTestLabelIndex(t, fs)

	data := pltFile(
		pltRow(39.90, 116.40, 100, "2008-10-23", "17:58:06"),
		pltRow(39.91, 116.41, 120, "2008-10-23", "18:03:00"),
	)

	_, meta, _, accepted, err := NormalizeActivity(data, "010", 0, li)
	if err != nil || !accepted {
		t.Fatalf("NormalizeActivity failed: accepted=%v err=%v", accepted, err)
	}
	if meta.TransportationMode == nil || *meta.TransportationMode != "walk" {
		t.Errorf("mode = %v, want walk", meta.TransportationMode)
	}
}
