// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/ollachat/internal/generation"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamUpdateMsg carries the accumulated answer of the turn in flight.
type StreamUpdateMsg struct {
	Text string
}

// StreamDoneMsg is sent when a turn finishes. Err is set only when the
// session refused the query (busy or empty); failed generations arrive as a
// non-OK Result.
type StreamDoneMsg struct {
	Result generation.Result
	Err    error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports the outcome of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}
