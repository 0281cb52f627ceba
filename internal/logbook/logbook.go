package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// FileName is the activity journal inside .workbench/logs.
const FileName = "journey.log"

// Entry is one parsed journal line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// Logbook records what happened on the board (tier changes, refresh
// failures) in a plain text file the dashboard tails.
type Logbook struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook. Multi-line messages are
// folded onto one line.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	message = strings.Join(strings.Fields(message), " ")
	line := fmt.Sprintf("%s %-5s %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		message,
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries plus the total
// number of lines in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Recent parses the last maxLines entries. Lines that do not follow the
// journal format are kept as INFO messages.
func (l *Logbook) Recent(maxLines int) []Entry {
	lines, _ := l.Tail(maxLines)
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseLine(line))
	}
	return entries
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

func parseLine(line string) Entry {
	fields := strings.SplitN(line, " ", 2)
	if len(fields) < 2 {
		return Entry{Level: LevelInfo, Message: line}
	}
	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{Level: LevelInfo, Message: line}
	}
	rest := strings.TrimLeft(fields[1], " ")
	levelText, message, _ := strings.Cut(rest, " ")
	level := Level(strings.TrimSpace(levelText))
	switch level {
	case LevelInfo, LevelWarn, LevelError:
	default:
		return Entry{Time: ts, Level: LevelInfo, Message: strings.TrimSpace(rest)}
	}
	return Entry{Time: ts, Level: level, Message: strings.TrimSpace(message)}
}
