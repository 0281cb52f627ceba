// internal/tui/app.go
//
// The workbench dashboard. It follows The Elm Architecture like every
// bubbletea program: the App holds all state, Update turns messages into a
// new state plus commands, and View renders the state to a string.
//
// Data flows in from three places: the poll timer, bridge events pushed by
// the backend, and the r key.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/board"
	"github.com/kingrea/workbench/internal/bridge"
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/logbook"
	"github.com/kingrea/workbench/internal/render"
	"github.com/kingrea/workbench/internal/upstream"
)

const (
	defaultRefreshTimeout = 30 * time.Second
	logPanelLines         = 6
	listBarWidth          = 16
	detailBarWidth        = 20
)

// Board is the part of board.Loader the dashboard drives.
type Board interface {
	Refresh(ctx context.Context) (board.Refresh, error)
	Apply(projectID string, payload upstream.ReadinessPayload) (board.Refresh, bool)
}

// Logger records diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

type viewMode int

const (
	modeList viewMode = iota
	modeKanban
)

type refreshMsg struct {
	result board.Refresh
	err    error
}

type tickMsg struct {
	gen int
}

type eventMsg struct {
	event bridge.Event
}

type eventsClosedMsg struct{}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook shows the activity journal under the board.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithPalette overrides the palette built from config.
func WithPalette(p render.Palette) AppOption {
	return func(a *App) {
		a.palette = p
	}
}

// WithEvents feeds bridge events into the dashboard so cards update between
// polls.
func WithEvents(events <-chan bridge.Event) AppOption {
	return func(a *App) {
		a.events = events
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPollInterval overrides board.poll_interval.
func WithPollInterval(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	config  *config.Config
	board   Board
	logbook *logbook.Logbook
	palette render.Palette
	events  <-chan bridge.Event
	logger  Logger

	pollInterval   time.Duration
	refreshTimeout time.Duration

	snapshot  board.Snapshot
	previous  board.Snapshot
	hasData   bool
	table     string
	mode      viewMode
	selection int
	loading   bool
	tickGen   int
	spinner   spinner.Model

	statusMsg string
	boardErr  string

	width  int
	height int
}

// NewApp builds the dashboard over a loaded config and a board loader.
func NewApp(cfg *config.Config, b Board, opts ...AppOption) *App {
	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	app := &App{
		config:         cfg,
		board:          b,
		palette:        render.NewPalette(cfg.Project.Palette),
		logger:         nopLogger{},
		pollInterval:   cfg.Project.Board.PollInterval,
		refreshTimeout: defaultRefreshTimeout,
		table:          cfg.DefaultTable(),
		spinner:        spin,
		loading:        true,
		statusMsg:      "Loading projects...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.logInfo("Board opened · table: %s", a.table)
	return tea.Batch(a.spinner.Tick, a.fetch(), a.waitForEvent())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case refreshMsg:
		a.loading = false
		if msg.err != nil {
			a.boardErr = msg.err.Error()
			a.statusMsg = "Refresh failed"
			a.logError("Refresh failed: %v", msg.err)
			a.logger.Printf("tui: refresh failed: %v", msg.err)
		} else {
			a.boardErr = ""
			a.applySnapshot(msg.result)
		}
		return a, a.scheduleRefresh()

	case tickMsg:
		if msg.gen != a.tickGen || a.loading {
			return a, nil
		}
		return a, a.startRefresh()

	case eventMsg:
		return a, tea.Batch(a.handleEvent(msg.event), a.waitForEvent())

	case eventsClosedMsg:
		a.events = nil
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			a.logInfo("Board closed")
			return a, tea.Quit
		case "up":
			if a.selection > 0 {
				a.selection--
			}
		case "down":
			if a.selection < len(a.snapshot.Cards)-1 {
				a.selection++
			}
		case "t":
			a.cycleTable()
		case "k":
			if a.mode == modeList {
				a.mode = modeKanban
			} else {
				a.mode = modeList
			}
		case "r":
			if a.loading {
				return a, nil
			}
			a.statusMsg = "Refreshing..."
			return a, a.startRefresh()
		}
	}
	return a, nil
}

func (a *App) startRefresh() tea.Cmd {
	a.loading = true
	return tea.Batch(a.spinner.Tick, a.fetch())
}

func (a *App) fetch() tea.Cmd {
	b := a.board
	timeout := a.refreshTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := b.Refresh(ctx)
		return refreshMsg{result: result, err: err}
	}
}

// scheduleRefresh arms the poll timer. Older timers are invalidated by the
// generation counter so a manual refresh does not double the poll rate.
func (a *App) scheduleRefresh() tea.Cmd {
	a.tickGen++
	gen := a.tickGen
	return tea.Tick(a.pollInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (a *App) waitForEvent() tea.Cmd {
	ch := a.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: evt}
	}
}

func (a *App) handleEvent(evt bridge.Event) tea.Cmd {
	switch evt.Type {
	case bridge.TypeReadinessUpdated:
		payload, err := evt.Readiness()
		if err != nil {
			a.logger.Printf("tui: %v", err)
			return nil
		}
		result, ok := a.board.Apply(evt.ProjectID, payload)
		if !ok {
			// A project the board has not seen yet.
			if a.loading {
				return nil
			}
			return a.startRefresh()
		}
		a.applySnapshot(result)
		return nil
	case bridge.TypeProjectRemoved:
		a.logInfo("Project %s removed", evt.ProjectID)
		if a.loading {
			return nil
		}
		return a.startRefresh()
	default:
		return nil
	}
}

func (a *App) applySnapshot(result board.Refresh) {
	if a.hasData {
		a.previous = a.snapshot
	}
	a.snapshot = result.Snapshot
	a.hasData = true
	if a.selection >= len(a.snapshot.Cards) {
		a.selection = max(0, len(a.snapshot.Cards)-1)
	}
	status := fmt.Sprintf("%d projects · updated %s", len(a.snapshot.Cards), result.Snapshot.TakenAt.Local().Format("15:04:05"))
	if n := len(result.Transitions); n > 0 {
		status += fmt.Sprintf(" · %s", result.Transitions[n-1].String())
	}
	if result.Failed > 0 {
		status += fmt.Sprintf(" · %d stale", result.Failed)
	}
	a.statusMsg = status
}

func (a *App) cycleTable() {
	tables := a.config.Tables()
	if len(tables) == 0 {
		return
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	// Tables() puts the default first; cycle in name order instead so the
	// sequence is stable while the default changes.
	sort.Strings(names)
	next := names[0]
	for i, name := range names {
		if name == a.table {
			next = names[(i+1)%len(names)]
			break
		}
	}
	a.table = next
	if err := a.config.SetDefaultTable(next); err != nil {
		a.statusMsg = fmt.Sprintf("Table %s (not saved: %v)", next, err)
		a.logger.Printf("tui: save default table: %v", err)
		return
	}
	a.statusMsg = fmt.Sprintf("Table: %s", next)
}

func (a *App) activeTable() config.TierTable {
	if t, ok := a.config.Table(a.table); ok {
		return t
	}
	t, _ := a.config.Table(a.config.DefaultTable())
	return t
}

func (a *App) selectedCard() (board.Card, bool) {
	if a.selection < 0 || a.selection >= len(a.snapshot.Cards) {
		return board.Card{}, false
	}
	return a.snapshot.Cards[a.selection], true
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// View renders the current state.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render(fmt.Sprintf("⬡ WORKBENCH · %s", a.table))
	var body string
	switch {
	case !a.hasData && a.loading:
		body = panelStyle().Render(fmt.Sprintf("%s Loading projects...", a.spinner.View()))
	case !a.hasData:
		body = panelStyle().Render("No board data yet. Press r to retry.")
	case a.mode == modeKanban:
		body = a.renderKanban(width)
	default:
		body = a.renderList(width)
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *App) renderList(width int) string {
	leftWidth := width * 3 / 5
	rightWidth := width - leftWidth - 4
	table := a.activeTable()
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("Projects (%d)", len(a.snapshot.Cards)))
	rows := []string{title}
	if len(a.snapshot.Cards) == 0 {
		rows = append(rows, mutedStyle().Render("The backend returned no projects."))
	}
	nameWidth := max(12, leftWidth-listBarWidth-22)
	for i, card := range a.snapshot.Cards {
		result := card.Score(table.Name)
		cursor := "  "
		if i == a.selection {
			cursor = "▸ "
		}
		name := truncate(card.Name, nameWidth)
		if card.Stale {
			name = truncate("! "+card.Name, nameWidth)
		}
		line := fmt.Sprintf("%s%-*s %s %4s %s", cursor, nameWidth, name, a.palette.Bar(result, listBarWidth), render.Percent(result), a.palette.Label(result))
		if i == a.selection {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		rows = append(rows, line)
	}
	left := panelStyle().Width(max(30, leftWidth)).Render(strings.Join(rows, "\n"))
	if rightWidth < 24 {
		return left
	}
	right := panelStyle().Width(rightWidth).Render(a.renderDetails(rightWidth - 4))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (a *App) renderDetails(width int) string {
	card, ok := a.selectedCard()
	if !ok {
		return mutedStyle().Render("Select a project.")
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Render(card.Name)
	lines := []string{head}
	var meta []string
	if card.Client != "" {
		meta = append(meta, card.Client)
	}
	if card.Stage != "" {
		meta = append(meta, card.Stage)
	}
	if card.Ready != nil {
		if *card.Ready {
			meta = append(meta, "ready")
		} else {
			meta = append(meta, "not ready")
		}
	}
	if len(meta) > 0 {
		lines = append(lines, mutedStyle().Render(strings.Join(meta, " · ")))
	}
	lines = append(lines, "")
	prev, hasPrev := a.previous.Card(card.ProjectID)
	barWidth := min(detailBarWidth, max(6, width-30))
	for _, t := range a.config.Tables() {
		result := card.Score(t.Name)
		arrow := ""
		if hasPrev {
			arrow = board.ComputeTrend(prev.Score(t.Name), result).Arrow()
		}
		lines = append(lines, fmt.Sprintf("%-13s %s %4s %s %s", truncate(t.Name, 13), a.palette.Bar(result, barWidth), render.Percent(result), a.palette.Label(result), arrow))
	}
	if len(card.Dimensions) > 0 {
		lines = append(lines, "", mutedStyle().Render("Dimensions"))
		for _, dim := range card.Dimensions {
			weight := ""
			if dim.Weight != nil {
				weight = fmt.Sprintf("×%.2f", *dim.Weight)
			}
			lines = append(lines, fmt.Sprintf("  %-14s %4s %s %s", truncate(dim.Name, 14), render.Percent(dim.Result), a.palette.Label(dim.Result), mutedStyle().Render(weight)))
		}
	}
	if card.Error != "" {
		warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Width(max(20, width))
		lines = append(lines, "", warn.Render(fmt.Sprintf("⚠ %s", card.Error)))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderKanban(width int) string {
	columns := board.Columns(a.snapshot, a.activeTable())
	colWidth := max(18, (width-2*len(columns))/max(1, len(columns)))
	boxes := make([]string, 0, len(columns))
	selected, _ := a.selectedCard()
	for _, column := range columns {
		head := a.palette.Style(column.ColorToken).Bold(true).Render(fmt.Sprintf("%s (%d)", column.Label, len(column.Cards)))
		lines := []string{head}
		for _, card := range column.Cards {
			line := fmt.Sprintf("%s %s", truncate(card.Name, colWidth-10), render.Percent(card.Score(a.table)))
			if card.ProjectID == selected.ProjectID {
				line = lipgloss.NewStyle().Bold(true).Render("▸ " + line)
			}
			lines = append(lines, line)
		}
		boxes = append(boxes, panelStyle().Width(colWidth).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle().Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderFooter() string {
	status := a.statusMsg
	if a.loading && a.hasData {
		status = fmt.Sprintf("%s %s", a.spinner.View(), status)
	}
	if a.boardErr != "" {
		status += " · " + lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render("⚠ "+a.boardErr)
	}
	hints := "↑/↓ select · t table · k kanban · r refresh · q quit"
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1).Render(status),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Render(hints),
	)
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
}

func mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
}

func truncate(value string, width int) string {
	if width <= 1 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
