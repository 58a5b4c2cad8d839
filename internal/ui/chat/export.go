// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ollachat/internal/export"
)

// =============================================================================
// EXPORT
// =============================================================================

// exportCmd writes the transcript as Markdown into the export directory.
func (m Model) exportCmd() tea.Cmd {
	conv, dir := m.sess.Conversation(), m.exportDir
	st := m.sess.Status()
	return func() tea.Msg {
		path := filepath.Join(dir, export.DefaultFilename(time.Now(), ".md"))
		meta := export.Meta{
			Title:     "Chat with " + st.Model,
			Model:     st.Model,
			SessionID: st.SessionID,
		}
		if err := export.ToFile(conv, meta, path, nil); err != nil {
			return ExportDoneMsg{Path: path, Err: err}
		}
		return ExportDoneMsg{Path: path}
	}
}
