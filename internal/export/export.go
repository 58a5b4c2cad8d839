// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ollachat/internal/model"
	"github.com/jeranaias/ollachat/internal/util"
)

var (
	// ErrEmpty is returned when there is nothing to export.
	ErrEmpty = errors.New("nothing to export yet")

	// ErrUnknownFormat is returned for file extensions with no exporter.
	ErrUnknownFormat = errors.New("unknown export format")
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(conv *model.Conversation, meta Meta) ([]byte, error)

	// FileExtension returns the extension used for default file names.
	FileExtension() string
}

// Meta describes the session a transcript came from.
type Meta struct {
	Title     string
	Model     string
	SessionID string

	// ExportedAt defaults to the time of the export.
	ExportedAt time.Time
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds the front matter block to Markdown exports.
	IncludeMetadata bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{IncludeMetadata: true}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForPath picks the exporter for path's extension.
func ForPath(path string, opts *Options) (Exporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", "":
		return NewMarkdownExporter(opts), nil
	case ".json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
}

// ToFile exports conv to path in the format given by its extension.
func ToFile(conv *model.Conversation, meta Meta, path string, opts *Options) error {
	if conv == nil || conv.IsEmpty() {
		return ErrEmpty
	}
	exporter, err := ForPath(path, opts)
	if err != nil {
		return err
	}
	if meta.ExportedAt.IsZero() {
		meta.ExportedAt = time.Now()
	}

	content, err := exporter.Export(conv, meta)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(filepath.Clean(path), content, 0o600); err != nil {
		log.Printf("EXPORT_FAILED | path=%s error=%v", path, err)
		return fmt.Errorf("write file: %w", err)
	}

	log.Printf("TRANSCRIPT_EXPORTED | path=%s entries=%d", path, conv.Len())
	return nil
}

// DefaultFilename returns a timestamped file name such as
// "ollachat-20250102-150405.md".
func DefaultFilename(now time.Time, ext string) string {
	if ext == "" {
		ext = ".md"
	}
	return "ollachat-" + now.Format("20060102-150405") + ext
}
