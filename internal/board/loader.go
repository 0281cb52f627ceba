package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kingrea/workbench/internal/backend"
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/upstream"
)

// Fetcher is the slice of backend.Client the loader needs.
type Fetcher interface {
	ListProjects(ctx context.Context) ([]upstream.ProjectSummary, error)
	FetchAll(ctx context.Context, ids []string) ([]backend.FetchResult, error)
}

// TableSource supplies the compiled tier tables. *config.Config satisfies it.
type TableSource interface {
	Tables() []config.TierTable
}

// Journal receives tier transitions. *logbook.Logbook satisfies it.
type Journal interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

// Logger records diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

// Refresh is the outcome of one Loader.Refresh call.
type Refresh struct {
	Snapshot    Snapshot
	Transitions []Transition
	// Failed counts projects whose readiness call failed.
	Failed int
}

// Loader fetches the board, diffs it against the previous snapshot and
// persists the new one.
type Loader struct {
	fetcher Fetcher
	tables  TableSource
	history *History
	journal Journal
	logger  Logger
	now     func() time.Time

	// mu is held from reading last through saving and storing the next
	// snapshot, so Refresh and Apply commit one at a time.
	mu       sync.Mutex
	last     Snapshot
	seen     bool
	projects map[string]upstream.ProjectSummary
}

// LoaderOption customizes a Loader during construction.
type LoaderOption func(*Loader)

// WithHistory persists snapshots and seeds the first diff from disk.
func WithHistory(h *History) LoaderOption {
	return func(l *Loader) {
		l.history = h
	}
}

// WithJournal writes transitions to the activity journal.
func WithJournal(j Journal) LoaderOption {
	return func(l *Loader) {
		if j != nil {
			l.journal = j
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the clock used for snapshot timestamps.
func WithClock(clock func() time.Time) LoaderOption {
	return func(l *Loader) {
		if clock != nil {
			l.now = clock
		}
	}
}

// NewLoader wires a loader.
func NewLoader(fetcher Fetcher, tables TableSource, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher: fetcher,
		tables:  tables,
		journal: nopJournal{},
		logger:  nopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Last returns the most recent snapshot, if any.
func (l *Loader) Last() (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.seen
}

// Refresh lists projects, fetches readiness for each and resolves the board.
// A failed list call fails the refresh; a failed readiness call only marks
// that card stale.
func (l *Loader) Refresh(ctx context.Context) (Refresh, error) {
	projects, err := l.fetcher.ListProjects(ctx)
	if err != nil {
		return Refresh{}, fmt.Errorf("board: list projects: %w", err)
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	results, err := l.fetcher.FetchAll(ctx, ids)
	if err != nil {
		return Refresh{}, fmt.Errorf("board: fetch readiness: %w", err)
	}
	byID := make(map[string]backend.FetchResult, len(results))
	for _, res := range results {
		byID[res.ProjectID] = res
	}
	entries := make([]Entry, 0, len(projects))
	failed := 0
	for _, project := range projects {
		entry := Entry{Project: project}
		if res, ok := byID[project.ID]; ok {
			if res.Err != nil {
				entry.Err = res.Err
				failed++
			} else {
				payload := res.Payload
				entry.Readiness = &payload
			}
		}
		entries = append(entries, entry)
	}
	snap := Build(entries, l.tables.Tables(), l.now())
	l.mu.Lock()
	defer l.mu.Unlock()
	l.projects = make(map[string]upstream.ProjectSummary, len(projects))
	for _, project := range projects {
		l.projects[project.ID] = project
	}
	return l.commitLocked(snap, failed), nil
}

// Apply resolves a single pushed readiness payload into the last snapshot,
// for bridge events that arrive between polls. Unknown projects are
// ignored and reported with ok=false.
func (l *Loader) Apply(projectID string, payload upstream.ReadinessPayload) (Refresh, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.seen {
		return Refresh{}, false
	}
	idx := -1
	for i, card := range l.last.Cards {
		if card.ProjectID == projectID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Refresh{}, false
	}
	project, ok := l.projects[projectID]
	if !ok {
		old := l.last.Cards[idx]
		project = upstream.ProjectSummary{ID: old.ProjectID, Name: old.Name, Client: old.Client, Stage: old.Stage}
	}
	project.UpdatedAt = l.now().UTC()
	rebuilt := Build([]Entry{{Project: project, Readiness: &payload}}, l.tables.Tables(), l.now())
	cards := make([]Card, len(l.last.Cards))
	copy(cards, l.last.Cards)
	cards[idx] = rebuilt.Cards[0]
	snap := Snapshot{ID: rebuilt.ID, TakenAt: rebuilt.TakenAt, Cards: cards}
	return l.commitLocked(snap, 0), true
}

// commitLocked diffs snap against the previous snapshot, journals and
// persists it. l.mu must be held.
func (l *Loader) commitLocked(snap Snapshot, failed int) Refresh {
	prev, seen := l.last, l.seen
	if !seen && l.history != nil {
		stored, ok, err := l.history.Load()
		if err != nil {
			l.logger.Printf("board: %v", err)
		} else if ok {
			prev, seen = stored, true
		}
	}
	var transitions []Transition
	if seen {
		transitions = Diff(prev, snap)
	}
	for _, t := range transitions {
		l.journal.Info("%s", t.String())
	}
	if failed > 0 {
		l.journal.Warn("readiness unavailable for %d of %d projects", failed, len(snap.Cards))
	}
	if l.history != nil {
		if err := l.history.Save(snap); err != nil {
			l.logger.Printf("board: %v", err)
		}
	}
	l.last, l.seen = snap, true
	l.logger.Printf("board: snapshot %s with %d cards, %d transitions", snap.ID, len(snap.Cards), len(transitions))
	return Refresh{Snapshot: snap, Transitions: transitions, Failed: failed}
}

type nopJournal struct{}

func (nopJournal) Info(string, ...any) {}
func (nopJournal) Warn(string, ...any) {}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
