package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/apodesk/internal/config"
	"github.com/five82/apodesk/internal/prefs"
	"github.com/five82/apodesk/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewPicture View = iota
	ViewLogs
)

const (
	defaultPollTick = 500 * time.Millisecond
	flashTTL        = 4 * time.Second
)

// Controller accepts the user's pipeline requests. Both calls return at once
// and report whether the request was accepted.
type Controller interface {
	RequestRefresh() bool
	RequestApply() bool
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Controller  Controller
	Store       *state.Store
	Config      *config.Config
	PollTick    time.Duration
	ThemeName   string
	HidePreview bool
	PrefsPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctrl      Controller
	store     *state.Store
	config    *config.Config
	prefsPath string
	pollTick  time.Duration
	now       func() time.Time

	// UI state
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	hidePreview bool

	windowTitle string

	// Transient message shown in the status line
	flash   string
	flashAt time.Time

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Picture state
	bodyViewport viewport.Model
	preview      *previewState

	// Log state
	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Default().Theme
	}
	theme := GetTheme(themeName)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	logPath := ""
	if opts.Config != nil {
		logPath = opts.Config.LogPath()
	}

	return Model{
		ctrl:        opts.Controller,
		store:       opts.Store,
		config:      opts.Config,
		prefsPath:   opts.PrefsPath,
		pollTick:    pollTick,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		theme:       theme,
		currentView: ViewPicture,
		hidePreview: opts.HidePreview,
		preview:     &previewState{},
		logState:    logState{path: logPath, follow: true},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.updateBodyViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = m.now()
		cmds := []tea.Cmd{m.ensurePreview()}
		if title := describeSnapshot(m.snapshot); title != m.windowTitle {
			m.windowTitle = title
			cmds = append(cmds, tea.SetWindowTitle(title))
		}
		m.updateBodyViewport()
		return m, tea.Batch(cmds...)

	case previewMsg:
		if msg.key == keyFor(m.snapshot.Pipeline.Current) {
			m.preview.key, m.preview.img, m.preview.err = msg.key, msg.img, msg.err
		}
		m.preview.pending = previewKey{}
		m.updateBodyViewport()
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
		m.savePrefs()
		m.updateBodyViewport()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.requestRefresh()

	case key.Matches(msg, m.keys.Apply):
		return m, m.requestApply()

	case key.Matches(msg, m.keys.TogglePreview):
		m.hidePreview = !m.hidePreview
		m.savePrefs()
		cmd := m.ensurePreview()
		m.updateBodyViewport()
		return m, cmd

	case key.Matches(msg, m.keys.ViewLogs):
		if m.currentView == ViewLogs {
			m.currentView = ViewPicture
			return m, nil
		}
		m.currentView = ViewLogs
		return m, readLogsCmd(m.logState.path)

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewPicture
		return m, nil
	}

	if m.currentView == ViewLogs && key.Matches(msg, m.keys.ToggleFollow) {
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		return m, nil
	}

	m.scroll(msg)
	return m, nil
}

// scroll moves the active viewport.
func (m *Model) scroll(msg tea.KeyMsg) {
	vp := &m.bodyViewport
	if m.currentView == ViewLogs {
		vp = &m.logViewport
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	case key.Matches(msg, m.keys.HalfPageUp):
		vp.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		vp.HalfPageDown()
	default:
		return
	}
	if m.currentView == ViewLogs {
		m.logState.follow = vp.AtBottom()
	}
}

func (m *Model) requestRefresh() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	if !m.ctrl.RequestRefresh() {
		m.setFlash("Busy: wait for the current operation to finish")
		return nil
	}
	m.setFlash("")
	return m.snapshotNow()
}

func (m *Model) requestApply() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	if !m.ctrl.RequestApply() {
		if !m.snapshot.Pipeline.HasRecord() {
			m.setFlash("Nothing to apply yet: press r to fetch today's picture")
		} else {
			m.setFlash("Busy: wait for the current operation to finish")
		}
		return nil
	}
	m.setFlash("")
	return m.snapshotNow()
}

func (m *Model) setFlash(text string) {
	m.flash = text
	m.flashAt = m.now()
}

func (m Model) snapshotNow() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

// ensurePreview starts decoding the current record when it is shown and not
// yet decoded.
func (m *Model) ensurePreview() tea.Cmd {
	rec := m.snapshot.Pipeline.Current
	if m.hidePreview || !m.snapshot.Pipeline.HasRecord() {
		return nil
	}
	k := keyFor(rec)
	if k == m.preview.key || k == m.preview.pending {
		return nil
	}
	m.preview.pending = k
	return decodePreviewCmd(*rec)
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, HidePreview: m.hidePreview})
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := readLogsCmd(m.logState.path); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if m.flash != "" && m.now().Sub(m.flashAt) > flashTTL {
		m.flash = ""
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderPicture())
	}
	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
