// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/ollachat/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON format. JSON exports always carry
// the full metadata regardless of options.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Document is the top-level object of a JSON export.
type Document struct {
	Title      string        `json:"title"`
	Model      string        `json:"model,omitempty"`
	SessionID  string        `json:"session_id,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
	Entries    []model.Entry `json:"entries"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(conv *model.Conversation, meta Meta) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	data, err := json.MarshalIndent(Document{
		Title:      meta.Title,
		Model:      meta.Model,
		SessionID:  meta.SessionID,
		ExportedAt: meta.ExportedAt,
		Entries:    conv.Entries(),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
