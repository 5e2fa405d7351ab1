package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// A picture older than this is highlighted.
const staleAfter = 24 * time.Hour

// renderHeader renders the status bar: logo, phase badge and freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot

	phase := snap.Pipeline.Phase.String()
	badge := strings.ToUpper(phase)
	if snap.Pipeline.Busy() {
		badge = m.spinner.View() + " " + badge
	}

	parts := []string{
		bg.Render("apodesk", styles.Logo),
		styles.PhaseStyle(phase).Render(badge),
	}

	if snap.IsOffline() {
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText))
	}

	if rec := snap.Pipeline.Current; snap.Pipeline.HasRecord() {
		age := m.now().Sub(rec.FetchedAt)
		style := styles.MutedText
		if age >= staleAfter {
			style = styles.WarningText
		}
		parts = append(parts, bg.Render("fetched "+humanizeDuration(age)+" ago", style))
	} else {
		parts = append(parts, bg.Render("no picture", styles.FaintText))
	}

	if n := snap.ConsecutiveFailures; n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d failed", n), styles.WarningText))
	}
	if snap.SaveError != nil {
		parts = append(parts, bg.Render("not cached", styles.WarningText))
	}
	if !snap.LastApplied.IsZero() {
		parts = append(parts, bg.Render("applied "+humanizeDuration(m.now().Sub(snap.LastApplied))+" ago", styles.SuccessText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(strings.Join(parts, bg.Spaces(2)))
}

// renderCommandBar lists the keys for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"j/k", "Scroll"},
			{"l", "Picture"},
			{"r", "Refresh"},
			{"?", "More"},
		}
	default:
		previewLabel := "Hide preview"
		if m.hidePreview {
			previewLabel = "Show preview"
		}
		commands = []cmd{
			{"r", "Refresh"},
			{"a", "Apply"},
			{"p", previewLabel},
			{"l", "Logs"},
			{"?", "More"},
			{"q", "Quit"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
