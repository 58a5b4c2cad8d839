// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/session"
	"github.com/jeranaias/ollachat/internal/ui/styles"
)

// Layout rows outside the viewport: header, status, input, footer.
const chromeRows = 4

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen. The transcript lives in
// the session; the model only tracks what is being drawn.
type Model struct {
	sess   *session.Session
	cfg    *config.Config
	theme  *styles.Theme
	keys   KeyMap
	runner *StreamRunner

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	// Shared across Update copies.
	cancelMgr *cancelManager
	cache     *renderCache

	streaming bool
	partial   string
	notice    string
	exportDir string

	width  int
	height int
	ready  bool
}

// New creates the chat screen for sess.
func New(sess *session.Session, cfg *config.Config, theme *styles.Theme) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Ask " + sess.Model() + " something..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := Model{
		sess:      sess,
		cfg:       cfg,
		theme:     theme,
		keys:      DefaultKeyMap(),
		runner:    NewStreamRunner(cfg.UI.FPS),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		cancelMgr: newCancelManager(),
		cache:     newRenderCache(),
		exportDir: ".",
		width:     80,
		height:    24,
	}
	m.renderer = m.newRenderer()
	return m
}

// SetProgram attaches the running program so partial answers can be pushed
// from the worker goroutine.
func (m Model) SetProgram(s Sender) {
	m.runner.SetSender(s)
}

// WithExportDir returns a copy of m that exports transcripts into dir.
func (m Model) WithExportDir(dir string) Model {
	m.exportDir = dir
	return m
}

// Streaming reports whether a turn is in flight.
func (m Model) Streaming() bool {
	return m.streaming
}

// Notice returns the transient message under the transcript.
func (m Model) Notice() string {
	return m.notice
}

// Init starts the cursor, the first connectivity probe and the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.sess.RefreshCmd(m.refreshTimeout()),
		session.TickCmd(m.cfg.Ollama.RefreshInterval.Std()),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case StreamUpdateMsg:
		if !m.streaming {
			return m, nil
		}
		m.partial = msg.Text
		m.refreshViewport()
		return m, nil

	case StreamDoneMsg:
		return m.handleStreamDone(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			m.notice = "Exported to " + msg.Path
		}
		return m, nil

	case session.RefreshMsg:
		m.input.Placeholder = "Ask " + m.sess.Model() + " something..."
		return m, nil

	case session.TickMsg:
		next := session.TickCmd(m.cfg.Ollama.RefreshInterval.Std())
		if m.streaming {
			return m, next
		}
		return m, tea.Batch(m.sess.RefreshCmd(m.refreshTimeout()), next)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// The worker appends the user entry before the first fragment.
		m.refreshViewport()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Interrupt):
		if m.cancelMgr.cancel() {
			m.notice = "Stopping..."
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Escape):
		if m.cancelMgr.cancel() {
			m.notice = "Stopping..."
		} else {
			m.input.Reset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Reset):
		return m.reset(), nil

	case key.Matches(msg, m.keys.CycleModel):
		name := m.sess.CycleModel()
		m.notice = "Model: " + name
		m.input.Placeholder = "Ask " + name + " something..."
		return m, nil

	case key.Matches(msg, m.keys.Export):
		m.notice = "Exporting..."
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a turn on a worker goroutine.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.streaming {
		m.notice = "Still answering. Press Ctrl+C to stop."
		return m, nil
	}
	query := m.input.Value()
	if isBlank(query) {
		return m, nil
	}

	m.input.Reset()
	m.streaming = true
	m.partial = ""
	m.notice = ""

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	runner, sess, timeout := m.runner, m.sess, m.refreshTimeout()
	work := func() tea.Msg {
		return runner.Run(ctx, sess, query, timeout)
	}
	return m, tea.Batch(work, m.spinner.Tick)
}

func (m Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	m.partial = ""
	m.cancelMgr.cancel()

	switch {
	case errors.Is(msg.Err, context.Canceled):
		m.notice = "Stopped."
	case msg.Err != nil:
		m.notice = msg.Err.Error()
	case !msg.Result.OK():
		log.Printf("TUI_TURN_FAILED | kind=%s", msg.Result.Kind)
	}
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) reset() Model {
	if m.streaming {
		m.notice = "Wait for the answer to finish before clearing."
		return m
	}
	if err := m.sess.Reset(); err != nil {
		m.notice = err.Error()
		return m
	}
	m.cache.clear()
	m.notice = "Chat history cleared!"
	m.refreshViewport()
	return m
}

func (m Model) resize(width, height int) Model {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)

	m.viewport.Width = width
	m.viewport.Height = max(height-chromeRows, 1)
	m.input.Width = max(width-4, 10)

	m.renderer = m.newRenderer()
	m.cache.clear()
	m.ready = true
	m.refreshViewport()
	return m
}

// =============================================================================
// HELPERS
// =============================================================================

// refreshTimeout bounds a full Refresh: the version check, then the listing.
func (m Model) refreshTimeout() time.Duration {
	o := m.cfg.Ollama
	return o.ProbeTimeout.Std() + o.ListTimeout.Std()
}

// newRenderer builds the markdown renderer, or nil for plain text.
func (m Model) newRenderer() *glamour.TermRenderer {
	if m.cfg.UI.PlainText {
		return nil
	}
	wrap := m.cfg.UI.WordWrap
	if m.width > 0 && m.width-4 < wrap {
		wrap = max(m.width-4, 20)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		log.Printf("MARKDOWN_DISABLED | error=%v", err)
		return nil
	}
	return r
}

func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.streaming {
		m.viewport.GotoBottom()
	}
}
