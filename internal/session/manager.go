// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ollachat/internal/generation"
	"github.com/jeranaias/ollachat/internal/model"
)

var (
	// ErrBusy is returned while a generation is already in flight.
	ErrBusy = errors.New("a response is still being generated")

	// ErrEmptyQuery is returned for queries that are blank after trimming.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrUnknownModel is returned by SelectModel for names not in Models().
	ErrUnknownModel = errors.New("model not available")
)

// Backend is the transport the session drives. *ollama.Client implements it.
type Backend interface {
	generation.Generator
	// Ping reports reachability and the server version from one request.
	Ping(ctx context.Context) (version string, ok bool)
	ListModels(ctx context.Context) []string
}

// =============================================================================
// SESSION
// =============================================================================

// Config holds the model choices a session starts with.
type Config struct {
	// DefaultModel is selected initially if the server offers it.
	DefaultModel string

	// FallbackModels are offered when the server lists nothing.
	FallbackModels []string
}

// Session is the state of one chat session: transcript, selected model and
// connectivity. It is created at startup, injected into the TUI or REPL, and
// cleared in place by Reset.
//
// At most one generation runs at a time; Submit returns ErrBusy otherwise.
type Session struct {
	mu sync.Mutex

	id        string
	startTime time.Time

	backend Backend
	adapter *generation.Adapter
	conv    *model.Conversation

	fallback    []string
	models      []string
	selected    string
	pinned      string
	connected   bool
	version     string
	lastRefresh time.Time
	turns       int

	inFlight atomic.Bool
}

// New creates a session over backend. Call Refresh before the first Submit
// to learn whether the server is reachable.
func New(backend Backend, cfg Config) *Session {
	fallback := slices.Clone(cfg.FallbackModels)
	selected := cfg.DefaultModel
	if selected == "" && len(fallback) > 0 {
		selected = fallback[0]
	}
	return &Session{
		id:        generateSessionID(),
		startTime: time.Now(),
		backend:   backend,
		adapter:   generation.NewAdapter(backend),
		conv:      model.NewConversation(),
		fallback:  fallback,
		models:    slices.Clone(fallback),
		selected:  selected,
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Conversation returns the transcript.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// =============================================================================
// CONNECTIVITY AND MODELS
// =============================================================================

// Refresh checks the server, reloads the model list and revalidates the
// selection. When the server is unreachable or lists nothing the fallback
// models are offered. A selection not among the options is replaced by the
// first option, except for a model pinned with SetModel.
//
// If ctx ends before the refresh completes, nothing is changed and the
// previous connectivity is returned: a cancelled check says nothing about
// the server.
func (s *Session) Refresh(ctx context.Context) bool {
	version, connected := s.backend.Ping(ctx)

	var models []string
	if connected {
		models = s.backend.ListModels(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		log.Printf("REFRESH_ABANDONED | session=%s reason=%v", s.id, ctx.Err())
		return s.connected
	}

	if len(models) == 0 {
		models = slices.Clone(s.fallback)
	}
	if s.pinned != "" && !slices.Contains(models, s.pinned) {
		models = append(models, s.pinned)
	}

	if connected != s.connected || s.lastRefresh.IsZero() {
		log.Printf("CONNECTIVITY | session=%s url=%s connected=%t version=%s", s.id, s.backend.BaseURL(), connected, version)
	}
	s.connected = connected
	s.version = version
	s.models = models
	s.lastRefresh = time.Now()

	if len(models) > 0 && !slices.Contains(models, s.selected) {
		log.Printf("MODEL_RESELECTED | session=%s from=%q to=%q", s.id, s.selected, models[0])
		s.selected = models[0]
	}
	return connected
}

// Connected reports the result of the last Refresh.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Models returns the current model options.
func (s *Session) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.models)
}

// Model returns the selected model.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectModel selects name, which must be one of Models().
func (s *Session) SelectModel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.models, name) {
		return ErrUnknownModel
	}
	s.selected = name
	return nil
}

// SetModel selects name without checking the options and pins it: it is
// added to the options and survives every later Refresh. It is for explicit
// overrides such as a --model flag.
func (s *Session) SetModel(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = name
	s.pinned = name
	if !slices.Contains(s.models, name) {
		s.models = append(s.models, name)
	}
}

// CycleModel selects the option after the current one and returns it.
func (s *Session) CycleModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.models) == 0 {
		return s.selected
	}
	i := slices.Index(s.models, s.selected)
	s.selected = s.models[(i+1)%len(s.models)]
	return s.selected
}

// =============================================================================
// TURNS
// =============================================================================

// Submit runs one streamed turn. The user entry is appended before the
// request and the answer (or warning) after it, so the transcript holds a
// renderable entry for every turn. onUpdate receives the accumulated answer.
//
// The returned error is only ErrEmptyQuery or ErrBusy; failures talking to
// the server are reported through the Result.
func (s *Session) Submit(ctx context.Context, query string, onUpdate generation.UpdateFunc) (generation.Result, error) {
	return s.turn(query, func(prompt, modelName string, connected bool) generation.Result {
		return s.adapter.Ask(ctx, prompt, modelName, connected, onUpdate)
	})
}

// SubmitOnce is Submit with a single non-streaming request.
func (s *Session) SubmitOnce(ctx context.Context, query string) (generation.Result, error) {
	return s.turn(query, func(prompt, modelName string, connected bool) generation.Result {
		return s.adapter.AskOnce(ctx, prompt, modelName, connected)
	})
}

func (s *Session) turn(query string, ask func(prompt, modelName string, connected bool) generation.Result) (generation.Result, error) {
	prompt := strings.TrimSpace(norm.NFC.String(query))
	if prompt == "" {
		return generation.Result{}, ErrEmptyQuery
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return generation.Result{}, ErrBusy
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	modelName := s.selected
	connected := s.connected
	s.mu.Unlock()

	s.conv.Append(model.NewEntry(model.RoleUser, prompt))

	start := time.Now()
	res := ask(prompt, modelName, connected)

	s.conv.Append(model.NewEntry(model.RoleAssistant, res.Answer()))

	s.mu.Lock()
	s.turns++
	s.mu.Unlock()

	log.Printf("TURN_DONE | session=%s model=%s kind=%s elapsed=%s", s.id, modelName, res.Kind, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// Busy reports whether a generation is in flight.
func (s *Session) Busy() bool {
	return s.inFlight.Load()
}

// Reset clears the transcript. It fails with ErrBusy while a generation is
// in flight so the pending answer cannot land in the cleared transcript.
func (s *Session) Reset() error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	s.conv.Reset()
	s.mu.Lock()
	s.turns = 0
	s.mu.Unlock()
	log.Printf("SESSION_RESET | session=%s", s.id)
	return nil
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a snapshot of the session for status displays.
type Status struct {
	SessionID   string
	StartTime   time.Time
	Duration    time.Duration
	URL         string
	Connected   bool
	Version     string
	Model       string
	Models      int
	Turns       int
	Busy        bool
	LastRefresh time.Time
}

// Status returns the current session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SessionID:   s.id,
		StartTime:   s.startTime,
		Duration:    time.Since(s.startTime),
		URL:         s.backend.BaseURL(),
		Connected:   s.connected,
		Version:     s.version,
		Model:       s.selected,
		Models:      len(s.models),
		Turns:       s.turns,
		Busy:        s.inFlight.Load(),
		LastRefresh: s.lastRefresh,
	}
}

// StatusLine returns the connectivity indicator shown in the UI.
func (st Status) StatusLine() string {
	if !st.Connected {
		return "🔴 Not reachable"
	}
	if st.Version != "" {
		return "🟢 Running (v" + st.Version + ")"
	}
	return "🟢 Running"
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// RefreshMsg carries the outcome of a background Refresh.
type RefreshMsg struct {
	Connected bool
}

// RefreshCmd runs Refresh off the render loop.
func (s *Session) RefreshCmd(timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return RefreshMsg{Connected: s.Refresh(ctx)}
	}
}

// TickMsg asks the UI to refresh connectivity.
type TickMsg struct {
	Time time.Time
}

// TickCmd returns a command that fires a TickMsg after interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func generateSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
