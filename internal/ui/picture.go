package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/apodesk/internal/state"
)

const recentNotices = 5

// updateBodyViewport resizes the picture viewport and re-renders its content.
func (m *Model) updateBodyViewport() {
	if m.bodyViewport.Width == 0 {
		m.bodyViewport = viewport.New(0, 0)
	}
	m.bodyViewport.Width = max(m.width-4, 0)
	m.bodyViewport.Height = max(m.height-5, 0)
	m.bodyViewport.SetContent(m.renderPictureContent(m.bodyViewport.Width))
}

// renderPicture renders the picture view: the body box and a status line.
func (m Model) renderPicture() string {
	title := "Astronomy Picture of the Day"
	if rec := m.snapshot.Pipeline.Current; m.snapshot.Pipeline.HasRecord() && rec.Date != "" {
		title += " " + rec.Date
	}
	box := m.renderBox(title, m.bodyViewport.View(), m.width, m.height-3)
	return box + "\n" + m.renderStatusLine()
}

func (m Model) renderPictureContent(width int) string {
	styles := m.theme.Styles()
	snap := m.snapshot
	if width <= 0 {
		return ""
	}

	if !snap.Pipeline.HasRecord() {
		msg := "No picture cached yet. Press r to fetch today's picture."
		if snap.Pipeline.Busy() {
			msg = "Fetching today's picture..."
		}
		return styles.MutedText.Render(msg) + m.renderNotices(styles, width)
	}

	rec := snap.Pipeline.Current
	var b strings.Builder

	if !m.hidePreview {
		switch {
		case m.preview.img != nil && m.preview.key == keyFor(rec):
			b.WriteString(m.preview.view(width, min(previewMaxRows, max(m.height/2, 4))))
		case m.preview.err != nil && m.preview.key == keyFor(rec):
			b.WriteString(styles.WarningText.Render("Preview unavailable: " + m.preview.err.Error()))
		default:
			b.WriteString(styles.FaintText.Render("Decoding preview..."))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(styles.Title.Render(truncate(rec.Title, width)))
	b.WriteString("\n")

	var meta []string
	if rec.Copyright != "" {
		meta = append(meta, "© "+strings.TrimSpace(rec.Copyright))
	}
	meta = append(meta, formatBytes(rec.ImageSize()))
	if d := rec.FormattedDate(); d != "" {
		meta = append(meta, "fetched "+d)
	}
	b.WriteString(styles.MutedText.Render(truncate(strings.Join(meta, "  •  "), width)))
	b.WriteString("\n")

	if text := strings.TrimSpace(rec.Explanation); text != "" {
		b.WriteString("\n")
		b.WriteString(styles.Text.Width(width).Render(text))
		b.WriteString("\n")
	}

	b.WriteString(m.renderNotices(styles, width))
	return b.String()
}

// renderNotices lists the most recent pipeline notices, newest last.
func (m Model) renderNotices(styles Styles, width int) string {
	notices := m.snapshot.Notices
	if len(notices) == 0 {
		return ""
	}
	if len(notices) > recentNotices {
		notices = notices[len(notices)-recentNotices:]
	}

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Bold(true).Render("Recent activity"))
	for _, n := range notices {
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render(n.At.Format("15:04:05") + " "))
		b.WriteString(noticeStyle(styles, n).Render(truncate(n.Text, max(width-9, 1))))
	}
	return b.String()
}

func noticeStyle(styles Styles, n state.Notice) lipgloss.Style {
	if n.Error {
		return styles.DangerText
	}
	return styles.Text
}

// renderStatusLine shows a transient message, the last error or the last
// notice, in that order of preference.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	width := max(m.width, 1)
	switch {
	case m.flash != "":
		return styles.WarningText.Render(truncate(m.flash, width))
	case m.snapshot.LastError != nil:
		return styles.DangerText.Render(truncate("Error: "+m.snapshot.LastError.Error(), width))
	case len(m.snapshot.Notices) > 0:
		last := m.snapshot.Notices[len(m.snapshot.Notices)-1]
		return noticeStyle(styles, last).Render(truncate(last.Text, width))
	default:
		return m.help.ShortHelpView(m.keys.ShortHelp())
	}
}

// renderBox draws content in a rounded border with title set into the top
// edge. width and height include the border.
func (m Model) renderBox(title, content string, width, height int) string {
	if width < 4 || height < 2 {
		return content
	}
	borderColor := lipgloss.Color(m.theme.Frame)
	border := lipgloss.RoundedBorder()
	edge := lipgloss.NewStyle().Foreground(borderColor)

	title = truncate(title, max(width-6, 1))
	label := " " + title + " "
	fill := max(width-2-1-lipgloss.Width(label), 0)
	top := edge.Render(border.TopLeft+border.Top) +
		m.theme.Styles().AccentText.Bold(true).Render(label) +
		edge.Render(strings.Repeat(border.Top, fill)+border.TopRight)

	body := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width - 2).
		Height(height - 2).
		Render(content)
	return top + "\n" + body
}

// describeSnapshot summarizes s for the terminal window title.
func describeSnapshot(s state.Snapshot) string {
	if !s.Pipeline.HasRecord() {
		return fmt.Sprintf("apodesk (%s)", s.Pipeline.Phase)
	}
	return fmt.Sprintf("apodesk: %s (%s)", s.Pipeline.Current.Title, s.Pipeline.Phase)
}
