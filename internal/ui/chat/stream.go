// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ollachat/internal/session"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner forwards partial answers from the worker goroutine to the
// program, at most fps times per second. The final answer always arrives
// through StreamDoneMsg, so dropped updates are never lost text.
type StreamRunner struct {
	mu      sync.Mutex
	sender  Sender
	limiter *rate.Limiter
}

// NewStreamRunner creates a runner throttled to fps updates per second.
func NewStreamRunner(fps int) *StreamRunner {
	if fps <= 0 {
		fps = 30
	}
	return &StreamRunner{
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
	}
}

// SetSender attaches the program that receives StreamUpdateMsg.
func (r *StreamRunner) SetSender(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sender = s
}

// Update is the generation.UpdateFunc handed to Session.Submit.
func (r *StreamRunner) Update(accumulated string) {
	r.mu.Lock()
	sender := r.sender
	r.mu.Unlock()

	if sender == nil || !r.limiter.Allow() {
		return
	}
	sender.Send(StreamUpdateMsg{Text: accumulated})
}

// Run rechecks the server, then submits query. It blocks until the turn
// ends and is meant to run inside a tea.Cmd.
func (r *StreamRunner) Run(ctx context.Context, sess *session.Session, query string, refreshTimeout time.Duration) StreamDoneMsg {
	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	sess.Refresh(refreshCtx)
	cancel()
	if ctx.Err() != nil {
		return StreamDoneMsg{Err: ctx.Err()}
	}

	res, err := sess.Submit(ctx, query, r.Update)
	if err != nil && !errors.Is(err, session.ErrEmptyQuery) {
		log.Printf("TUI_SUBMIT_REJECTED | error=%v", err)
	}
	return StreamDoneMsg{Result: res, Err: err}
}
