// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Answer(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{"ok", Result{Kind: KindOK, Text: "hi"}, "hi"},
		{"ok empty", Result{Kind: KindOK}, ""},
		{"unreachable", Result{Kind: KindUnreachable, Detail: "http://h:1"}, "⚠️ Ollama not reachable at http://h:1"},
		{"connection", Result{Kind: KindConnectionError, Detail: "dial tcp: refused"}, "⚠️ Error connecting to Ollama: dial tcp: refused"},
		{"connection with partial", Result{Kind: KindConnectionError, Text: "half", Detail: "EOF"}, "half\n\n⚠️ Error connecting to Ollama: EOF"},
		{"server", Result{Kind: KindServerError, Status: 503, Detail: "busy"}, "⚠️ Ollama returned status 503: busy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.res.Answer())
			assert.Equal(t, tc.res.Kind == KindOK, tc.res.OK())
		})
	}
}

func TestResult_WarningEmptyForOK(t *testing.T) {
	assert.Empty(t, Result{Kind: KindOK, Text: "x"}.Warning())
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning("⚠️ Ollama not reachable at http://localhost:11434"))
	assert.True(t, IsWarning("partial\n\n⚠️ Error connecting to Ollama: EOF"))
	assert.False(t, IsWarning("The answer is 42."))
	assert.False(t, IsWarning(""))
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindOK:              "ok",
		KindUnreachable:     "unreachable",
		KindConnectionError: "connection",
		KindServerError:     "server",
		Kind(99):            "unknown",
	}
	for k, want := range tests {
		assert.Equal(t, want, k.String())
	}
}
