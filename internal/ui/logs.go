package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/apodesk/internal/logtail"
)

const logBufferLimit = 500

// logState holds the log view's data.
type logState struct {
	path    string
	entries []logtail.Entry
	follow  bool
	err     error
}

type logLinesMsg struct {
	entries []logtail.Entry
	err     error
}

func readLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logBufferLimit)
		return logLinesMsg{entries: logtail.ParseLines(lines), err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.entries = msg.entries
	}
	m.updateLogViewport()
}

// updateLogViewport resizes the viewport and re-renders its content.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(0, 0)
	}
	m.logViewport.Width = max(m.width-4, 0)
	m.logViewport.Height = max(m.height-5, 0)

	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if m.logState.err != nil {
		return styles.DangerText.Render("Cannot read log: " + m.logState.err.Error())
	}
	if len(m.logState.entries) == 0 {
		return styles.MutedText.Render("No log entries")
	}

	width := m.logViewport.Width
	lines := make([]string, 0, len(m.logState.entries))
	for i, e := range m.logState.entries {
		num := styles.FaintText.Render(fmt.Sprintf("%4d │ ", i+1))
		text := e.Format()
		if width > 7 {
			text = truncate(text, width-7)
		}
		lines = append(lines, num+levelStyle(styles, e.Level).Render(text))
	}
	return strings.Join(lines, "\n")
}

func levelStyle(styles Styles, level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		return styles.DangerText
	case "warn", "warning":
		return styles.WarningText
	case "debug", "trace":
		return styles.FaintText
	case "info":
		return styles.InfoText
	default:
		return styles.Text
	}
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	box := m.renderBox("Log", m.logViewport.View(), m.width, m.height-3)

	follow := "off"
	if m.logState.follow {
		follow = "on"
	}
	status := fmt.Sprintf("%d lines  auto-tail %s  %s", len(m.logState.entries), follow,
		truncateMiddle(m.logState.path, max(m.width/2, 10)))
	return box + "\n" + styles.FaintText.Render(status)
}
