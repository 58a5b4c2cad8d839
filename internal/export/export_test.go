// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ollachat/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.AppendText(model.RoleUser, "What is Go?")
	conv.AppendText(model.RoleAssistant, "A programming language.")
	return conv
}

var sampleMeta = Meta{
	Title:      "Chat with llama3",
	Model:      "llama3",
	SessionID:  "sess-1",
	ExportedAt: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		wantExt string
		wantErr bool
	}{
		{"chat.md", ".md", false},
		{"chat.MARKDOWN", ".md", false},
		{"chat", ".md", false},
		{"chat.json", ".json", false},
		{"chat.pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			exp, err := ForPath(tt.path, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("ForPath(%q) error = %v, want ErrUnknownFormat", tt.path, err)
				}
				return
			}
			require.NoError(t, err)
			if exp.FileExtension() != tt.wantExt {
				t.Errorf("FileExtension() = %q, want %q", exp.FileExtension(), tt.wantExt)
			}
		})
	}
}

func TestMarkdownExporter_FrontMatter(t *testing.T) {
	data, err := NewMarkdownExporter(nil).Export(sampleConversation(), sampleMeta)
	require.NoError(t, err)
	out := string(data)

	require.True(t, strings.HasPrefix(out, "---\n"))
	end := strings.Index(out[4:], "---\n")
	require.Greater(t, end, 0)

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(out[4:4+end]), &fm))
	assert.Equal(t, "Chat with llama3", fm.Title)
	assert.Equal(t, "sess-1", fm.Session)
	assert.Equal(t, 2, fm.Messages)
	assert.Equal(t, "2025-01-02T15:04:05Z", fm.Exported)

	assert.Contains(t, out, "# Chat with llama3")
	assert.Contains(t, out, "A programming language.")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	data, err := NewMarkdownExporter(&Options{}).Export(sampleConversation(), sampleMeta)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Chat with llama3\n"))
}

func TestJSONExporter(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(sampleConversation(), sampleMeta)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "llama3", doc.Model)
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, model.RoleAssistant, doc.Entries[1].Role)
	assert.True(t, doc.ExportedAt.Equal(sampleMeta.ExportedAt))
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	conv := sampleConversation()

	for _, name := range []string{"chat.md", "chat.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, ToFile(conv, Meta{Title: "t"}, path, nil))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}

	err := ToFile(model.NewConversation(), Meta{}, filepath.Join(dir, "empty.md"), nil)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.NoFileExists(t, filepath.Join(dir, "empty.md"))

	err = ToFile(conv, Meta{}, filepath.Join(dir, "chat.pdf"), nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "ollachat-20250102-150405.md", DefaultFilename(now, ""))
	assert.Equal(t, "ollachat-20250102-150405.json", DefaultFilename(now, ".json"))
}
