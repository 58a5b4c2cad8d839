// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generation

import (
	"fmt"
	"strings"
)

// WarningMarker prefixes every diagnostic answer so the transcript can tell
// model output apart from failures.
const WarningMarker = "⚠️"

// =============================================================================
// RESULT KIND
// =============================================================================

// Kind classifies the outcome of a turn.
type Kind int

const (
	// KindOK: the stream completed; Text is the trimmed answer.
	KindOK Kind = iota
	// KindUnreachable: the caller reported the server as not connected.
	KindUnreachable
	// KindConnectionError: no response, or the stream broke off. Text holds
	// whatever was received before the failure.
	KindConnectionError
	// KindServerError: the server answered with a non-2xx status.
	KindServerError
)

// String returns the kind name used in log lines.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnreachable:
		return "unreachable"
	case KindConnectionError:
		return "connection"
	case KindServerError:
		return "server"
	default:
		return "unknown"
	}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the tagged outcome of Ask. It is never an error value: every
// kind renders to a transcript entry through Answer.
type Result struct {
	Kind Kind

	// Text is the model output. For KindConnectionError it may hold a
	// partial answer.
	Text string

	// Status and Detail describe failures: Status is the HTTP status for
	// KindServerError, Detail the server body, the error text, or the
	// unreachable URL.
	Status int
	Detail string
}

// OK reports whether the turn produced a complete answer.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Warning returns the diagnostic line for a failed turn, or "" for KindOK.
func (r Result) Warning() string {
	switch r.Kind {
	case KindUnreachable:
		return fmt.Sprintf("%s Ollama not reachable at %s", WarningMarker, r.Detail)
	case KindConnectionError:
		return fmt.Sprintf("%s Error connecting to Ollama: %s", WarningMarker, r.Detail)
	case KindServerError:
		return fmt.Sprintf("%s Ollama returned status %d: %s", WarningMarker, r.Status, r.Detail)
	default:
		return ""
	}
}

// Answer returns the text to append to the transcript.
func (r Result) Answer() string {
	warning := r.Warning()
	switch {
	case warning == "":
		return r.Text
	case r.Text == "":
		return warning
	default:
		return r.Text + "\n\n" + warning
	}
}

// IsWarning reports whether a transcript text is a diagnostic rather than
// model output.
func IsWarning(text string) bool {
	return strings.HasPrefix(text, WarningMarker) ||
		strings.Contains(text, "\n\n"+WarningMarker+" Error connecting to Ollama")
}
