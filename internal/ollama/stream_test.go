// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains a reader and returns the increments.
func collect(t *testing.T, input string) []Fragment {
	t.Helper()
	var out []Fragment
	for frag, err := range NewStreamReader(strings.NewReader(input)).Fragments() {
		require.NoError(t, err)
		out = append(out, frag)
	}
	return out
}

func joined(frags []Fragment) string {
	var sb strings.Builder
	for _, f := range frags {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// =============================================================================
// DECODING TESTS
// =============================================================================

func TestStreamReader_ConcatenatesResponses(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{"single", []string{"Hello"}},
		{"several", []string{"The", " quick", " brown", " fox"}},
		{"unicode", []string{"こんにちは", " 🌍", " ñ"}},
		{"whitespace kept", []string{"  a", "\n", "b  "}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			for _, p := range tc.parts {
				sb.WriteString(`{"response":` + quote(p) + `,"done":false}` + "\n")
			}
			sb.WriteString(`{"response":"","done":true,"eval_count":12}` + "\n")

			frags := collect(t, sb.String())
			require.Len(t, frags, len(tc.parts))
			assert.Equal(t, strings.Join(tc.parts, ""), joined(frags))
			for _, f := range frags {
				assert.False(t, f.Raw)
			}
		})
	}
}

func TestStreamReader_MalformedLineIsVerbatim(t *testing.T) {
	input := `{"response":"a"}` + "\n" +
		`this is not json` + "\n" +
		`{"response":"b"}` + "\n"

	r := NewStreamReader(strings.NewReader(input))
	var frags []Fragment
	for frag, err := range r.Fragments() {
		require.NoError(t, err)
		frags = append(frags, frag)
	}

	require.Len(t, frags, 3)
	assert.Equal(t, Fragment{Text: "a"}, frags[0])
	assert.Equal(t, Fragment{Text: "this is not json", Raw: true}, frags[1])
	assert.Equal(t, Fragment{Text: "b"}, frags[2])
	assert.Equal(t, 1, r.NoiseCount())
	assert.Equal(t, 3, r.LineCount())
}

func TestStreamReader_FieldSelection(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Fragment
	}{
		{"response field", `{"response":"x"}`, []Fragment{{Text: "x"}}},
		{"text fallback", `{"text":"y"}`, []Fragment{{Text: "y"}}},
		{"empty response falls back to text", `{"response":"","text":"z"}`, []Fragment{{Text: "z"}}},
		{"response wins over text", `{"response":"r","text":"t"}`, []Fragment{{Text: "r"}}},
		{"metadata only", `{"done":true,"total_duration":123}`, nil},
		{"non-string response ignored", `{"response":42}`, nil},
		{"error field skipped", `{"error":"out of memory"}`, nil},
		{"json array is noise", `[1,2]`, []Fragment{{Text: "[1,2]", Raw: true}}},
		{"json null is noise", `null`, []Fragment{{Text: "null", Raw: true}}},
		{"json string is noise", `"hello"`, []Fragment{{Text: `"hello"`, Raw: true}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, collect(t, tc.line+"\n"))
		})
	}
}

func TestStreamReader_LineFraming(t *testing.T) {
	t.Run("empty lines skipped", func(t *testing.T) {
		frags := collect(t, "\n\n"+`{"response":"a"}`+"\n\n\n"+`{"response":"b"}`+"\n")
		assert.Equal(t, "ab", joined(frags))
	})

	t.Run("crlf stripped", func(t *testing.T) {
		frags := collect(t, `{"response":"a"}`+"\r\n"+`junk`+"\r\n")
		require.Len(t, frags, 2)
		assert.Equal(t, "junk", frags[1].Text)
	})

	t.Run("last line without newline", func(t *testing.T) {
		frags := collect(t, `{"response":"a"}`+"\n"+`{"response":"b"}`)
		assert.Equal(t, "ab", joined(frags))
	})

	t.Run("empty stream", func(t *testing.T) {
		assert.Empty(t, collect(t, ""))
	})

	t.Run("long line", func(t *testing.T) {
		long := strings.Repeat("x", 256*1024)
		frags := collect(t, `{"response":"`+long+`"}`+"\n")
		require.Len(t, frags, 1)
		assert.Len(t, frags[0].Text, len(long))
	})
}

// =============================================================================
// ITERATION TESTS
// =============================================================================

func TestStreamReader_NextReturnsEOF(t *testing.T) {
	r := NewStreamReader(strings.NewReader(`{"response":"a"}` + "\n"))

	frag, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", frag.Text)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)

	// Not restartable: stays at EOF.
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStreamReader_ReadErrorYieldedOnce(t *testing.T) {
	errBoom := errors.New("connection reset")
	src := io.MultiReader(
		strings.NewReader(`{"response":"a"}`+"\n"),
		iotest.ErrReader(errBoom),
	)

	var texts []string
	var errs []error
	for frag, err := range NewStreamReader(src).Fragments() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		texts = append(texts, frag.Text)
	}

	assert.Equal(t, []string{"a"}, texts)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errBoom)
}

func TestStreamReader_EarlyBreak(t *testing.T) {
	r := NewStreamReader(strings.NewReader(`{"response":"a"}` + "\n" + `{"response":"b"}` + "\n"))

	for frag := range r.Fragments() {
		assert.Equal(t, "a", frag.Text)
		break
	}

	frag, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", frag.Text)
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
