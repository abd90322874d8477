package model

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/logcap/pkg/core"
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// Lister is the log source the viewer polls.
type Lister interface {
	ListLogs(ctx context.Context) ([]core.LogRecord, error)
}

// App is the root Bubble Tea model: a scrolling view of every captured
// record, oldest at the top, refreshed on an interval.
type App struct {
	// Source
	lister    Lister
	source    string
	interval  time.Duration
	connected bool

	// State
	records    []core.LogRecord // newest first, as served
	errorsOnly bool
	paused     bool
	lastFetch  time.Time

	// UI
	mode     Mode
	search   textinput.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	statusMsg string
}

// New creates a viewer polling lister every interval. source is shown in
// the title bar.
func New(lister Lister, source string, interval time.Duration) App {
	si := textinput.New()
	si.Placeholder = "filter..."
	si.CharLimit = 64

	if interval <= 0 {
		interval = time.Second
	}
	return App{
		lister:   lister,
		source:   source,
		interval: interval,
		search:   si,
		mode:     ModeNormal,
	}
}

// Init fetches the first page of logs.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		fetchLogsCmd(a.lister),
		tea.SetWindowTitle("logcap"),
	)
}

// tickMsg triggers periodic refresh.
type tickMsg time.Time

// logsMsg carries the records returned by the daemon.
type logsMsg struct {
	records []core.LogRecord
	at      time.Time
}

// errorMsg carries an error to display.
type errorMsg struct{ err error }

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchLogsCmd(l Lister) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		records, err := l.ListLogs(ctx)
		if err != nil {
			return errorMsg{err}
		}
		return logsMsg{records: records, at: time.Now()}
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		h := max(a.height-headerHeight-footerHeight, 1)
		if !a.ready {
			a.viewport = viewport.New(a.width, h)
			a.ready = true
		} else {
			a.viewport.Width = a.width
			a.viewport.Height = h
		}
		a.refreshContent(true)
		return a, nil

	case tickMsg:
		if a.paused {
			return a, tickCmd(a.interval)
		}
		return a, fetchLogsCmd(a.lister)

	case logsMsg:
		a.connected = true
		a.lastFetch = msg.at
		follow := !a.ready || a.viewport.AtBottom()
		a.records = msg.records
		a.refreshContent(follow)
		if strings.HasPrefix(a.statusMsg, "error: ") {
			a.statusMsg = ""
		}
		return a, tickCmd(a.interval)

	case errorMsg:
		a.connected = false
		a.statusMsg = "error: " + msg.err.Error()
		return a, tickCmd(a.interval)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.ready {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.mode == ModeSearch {
		switch msg.String() {
		case "esc":
			a.mode = ModeNormal
			a.search.SetValue("")
			a.search.Blur()
			a.refreshContent(true)
			return a, nil
		case "enter":
			a.mode = ModeNormal
			a.search.Blur()
			return a, nil
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			a.refreshContent(true)
			return a, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "/":
		a.mode = ModeSearch
		a.search.Focus()
		return a, textinput.Blink

	case "e":
		a.errorsOnly = !a.errorsOnly
		a.refreshContent(true)
		return a, nil

	case " ":
		a.paused = !a.paused
		return a, nil

	case "r":
		return a, fetchLogsCmd(a.lister)

	case "g", "home":
		a.viewport.GotoTop()
		return a, nil

	case "G", "end":
		a.viewport.GotoBottom()
		return a, nil
	}

	if a.ready {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

// visible returns the records that pass the current filters, oldest first.
func (a App) visible() []core.LogRecord {
	q := strings.ToLower(a.search.Value())
	out := make([]core.LogRecord, 0, len(a.records))
	for i := len(a.records) - 1; i >= 0; i-- {
		rec := a.records[i]
		if a.errorsOnly && !rec.IsError() {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(rec.Message), q) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (a *App) refreshContent(follow bool) {
	if !a.ready {
		return
	}
	a.viewport.SetContent(renderRecords(a.visible(), a.width))
	if follow {
		a.viewport.GotoBottom()
	}
}
