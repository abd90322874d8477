package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoterra/logcap/pkg/core"
)

const (
	headerHeight = 1
	footerHeight = 2
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	errorLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View renders the TUI.
func (a App) View() string {
	if !a.ready {
		return "loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		a.viewport.View(),
		a.renderStatusBar(),
	)
}

func (a App) renderHeader() string {
	state := offlineStyle.Render("○ offline")
	if a.connected {
		state = connectedStyle.Render("● live")
	}
	title := titleStyle.Render(" logcap ") + dimStyle.Render(a.source) + " " + state

	var flags []string
	if a.errorsOnly {
		flags = append(flags, "[ERRORS]")
	}
	if a.paused {
		flags = append(flags, "[PAUSED]")
	}
	if q := a.search.Value(); q != "" {
		flags = append(flags, "[/"+q+"]")
	}
	if len(flags) > 0 {
		title += " " + dimStyle.Render(strings.Join(flags, " "))
	}
	return title
}

func renderRecords(records []core.LogRecord, width int) string {
	if len(records) == 0 {
		return dimStyle.Render("no log output")
	}

	var b strings.Builder
	for _, rec := range records {
		prefix := fmt.Sprintf("%6d %s ", rec.ID, shortTime(rec))
		line := prefix + truncate(rec.Message, max(width-len(prefix), 4))
		if rec.IsError() {
			line = errorLineStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// shortTime renders the local wall-clock part of the record timestamp.
func shortTime(rec core.LogRecord) string {
	t, err := rec.Time()
	if err != nil {
		return truncate(rec.Timestamp, 12)
	}
	return t.Local().Format("15:04:05.000")
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	if left == "" {
		left = fmt.Sprintf("%d/%d records", len(a.visible()), len(a.records))
		if !a.lastFetch.IsZero() {
			left += " · " + a.lastFetch.Format("15:04:05")
		}
	}
	if a.mode == ModeSearch {
		left = a.search.View()
	}

	right := "j/k:scroll g/G:top/bottom /:filter e:errors space:pause r:refresh q:quit"
	if a.mode == ModeSearch {
		right = "enter:apply esc:clear"
	}

	gap := a.width - lipgloss.Width(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return "\n" + helpStyle.Render(left+strings.Repeat(" ", gap)+right)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
