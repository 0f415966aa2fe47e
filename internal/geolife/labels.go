package geolife

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
)

// LabelIndex answers whether a user has labeled data and, for an exact
// (start, end) trip window, which transportation mode was asserted.
//
// Label files are parsed lazily, at most once per user, and cached for the
// remainder of the run. The cache is safe for concurrent lookups.
type LabelIndex struct {
	fs   fsutil.FileSystem
	root string

	labeled map[string]bool

	mu    sync.Mutex
	spans map[string][]LabelSpan
}

// NewLabelIndex reads the labeled-user list (labeled_ids.txt under the
// dataset root) and returns an index with an empty label cache.
func NewLabelIndex(fsys fsutil.FileSystem, root string) (*LabelIndex, error) {
	data, err := fsys.ReadFile(filepath.Join(root, "labeled_ids.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to read labeled user list: %w", err)
	}

	labeled := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			labeled[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan labeled user list: %w", err)
	}

	return &LabelIndex{
		fs:      fsys,
		root:    root,
		labeled: labeled,
		spans:   make(map[string][]LabelSpan),
	}, nil
}

// HasLabels reports whether the user appears in the labeled-user list.
// Pure lookup; never touches the user's label file.
func (li *LabelIndex) HasLabels(user string) bool {
	return li.labeled[user]
}

// ModeFor returns the transportation mode asserted for the exact
// (start, end) window, or nil when the user is unlabeled or no span matches.
// When multiple spans share the same window, the first in file order wins.
//
// A labeled user whose labels.txt is missing or unreadable is a
// data-integrity error, not an absent mode.
func (li *LabelIndex) ModeFor(user string, start, end time.Time) (*string, error) {
	if !li.HasLabels(user) {
		return nil, nil
	}

	spans, err := li.userSpans(user)
	if err != nil {
		return nil, err
	}

	for _, s := range spans {
		if s.Start.Equal(start) && s.End.Equal(end) {
			mode := s.Mode
			return &mode, nil
		}
	}
	return nil, nil
}

// userSpans returns the cached label spans for a user, parsing the label
// file on first use. The lock is held across the parse so concurrent calls
// for the same user never duplicate it.
func (li *LabelIndex) userSpans(user string) ([]LabelSpan, error) {
	li.mu.Lock()
	defer li.mu.Unlock()

	if spans, ok := li.spans[user]; ok {
		return spans, nil
	}

	data, err := li.fs.ReadFile(filepath.Join(li.root, "Data", user, "labels.txt"))
	if err != nil {
		return nil, fmt.Errorf("user %s is marked as labeled but its label file is unreadable: %w", user, err)
	}

	spans, err := parseLabelFile(data)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user, err)
	}

	li.spans[user] = spans
	return spans, nil
}

// parseLabelFile parses a tab-separated label file. The first row is a
// header. Date separators are normalized from "/" to "-" before parsing.
func parseLabelFile(data []byte) ([]LabelSpan, error) {
	var spans []LabelSpan

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue // header row
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("label row %d: expected 3 tab-separated fields, got %d", line, len(fields))
		}

		start, err := timeutil.Parse(strings.ReplaceAll(fields[0], "/", "-"))
		if err != nil {
			return nil, fmt.Errorf("label row %d: %w", line, err)
		}
		end, err := timeutil.Parse(strings.ReplaceAll(fields[1], "/", "-"))
		if err != nil {
			return nil, fmt.Errorf("label row %d: %w", line, err)
		}

		spans = append(spans, LabelSpan{
			Start: start,
			End:   end,
			Mode:  strings.TrimSpace(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan label file: %w", err)
	}

	return spans, nil
}
