package fsutil

import (
	"errors"
	"io/fs"
	"testing"
)

func TestMemoryFileSystem_ReadFile(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("data/010/labels.txt", []byte("hello"))

	got, err := m.ReadFile("data/010/labels.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("ReadFile = %q, want %q", got, "hello")
	}

	// Mutating the returned slice must not affect the stored copy
	got[0] = 'X'
	again, _ := m.ReadFile("data/010/labels.txt")
	if string(again) != "hello" {
		t.Errorf("stored data mutated: %q", again)
	}
}

func TestMemoryFileSystem_ReadFileMissing(t *testing.T) {
	m := NewMemoryFileSystem()
	_, err := m.ReadFile("nope.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_ReadDirSorted(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("data/010/Trajectory/20081024.plt", []byte("b"))
	m.WriteFile("data/010/Trajectory/20081023.plt", []byte("a"))
	m.WriteFile("data/010/labels.txt", []byte("l"))

	entries, err := m.ReadDir("data/010/Trajectory")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ReadDir returned %d entries, want 2", len(entries))
	}
	if entries[0].Name() != "20081023.plt" || entries[1].Name() != "20081024.plt" {
		t.Errorf("entries not sorted: %s, %s", entries[0].Name(), entries[1].Name())
	}

	users, err := m.ReadDir("data")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(users) != 1 || users[0].Name() != "010" || !users[0].IsDir() {
		t.Errorf("unexpected user listing: %+v", users)
	}
}

func TestMemoryFileSystem_ReadDirMissing(t *testing.T) {
	m := NewMemoryFileSystem()
	_, err := m.ReadDir("data")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_Exists(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("data/000/Trajectory/t.plt", []byte("x"))

	if !m.Exists("data/000/Trajectory/t.plt") {
		t.Error("expected file to exist")
	}
	if !m.Exists("data/000/Trajectory") {
		t.Error("expected parent dir to exist")
	}
	if m.Exists("data/000/labels.txt") {
		t.Error("did not expect labels.txt to exist")
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("a/b.txt", []byte("12345"))

	info, err := m.Stat("a/b.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 || info.IsDir() {
		t.Errorf("Stat = size %d, isDir %v", info.Size(), info.IsDir())
	}

	dirInfo, err := m.Stat("a")
	if err != nil {
		t.Fatalf("Stat dir failed: %v", err)
	}
	if !dirInfo.IsDir() {
		t.Error("expected directory")
	}
}
