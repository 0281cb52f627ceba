package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestRecentParsesLevels(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", FileName))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	book.now = func() time.Time { return fixed }
	book.Info("Acme moved Fair → Good")
	book.Warn("refresh\nfailed")
	book.Error("backend unreachable")
	entries := book.Recent(10)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Level != LevelInfo || entries[0].Message != "Acme moved Fair → Good" || !entries[0].Time.Equal(fixed) {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Level != LevelWarn || entries[1].Message != "refresh failed" {
		t.Fatalf("multi-line message should be folded: %+v", entries[1])
	}
	if entries[2].Level != LevelError {
		t.Fatalf("level = %s, want ERROR", entries[2].Level)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("nil logbook tail = %v/%d", lines, total)
	}
}

func TestParseLineFallsBack(t *testing.T) {
	entry := parseLine("garbage without timestamp")
	if entry.Level != LevelInfo || entry.Message != "garbage without timestamp" {
		t.Fatalf("unexpected fallback: %+v", entry)
	}
}
