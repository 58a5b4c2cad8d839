// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to a file.
//
// The format follows the file extension: ".json" gives a machine-readable
// document with the session metadata, anything else gives Markdown with a
// YAML front matter block.
//
// # Key Types
//
//   - Exporter: converts a transcript to bytes in one format
//   - Meta: title, model and session ID recorded with the transcript
//   - Options: export configuration
//
// # Usage
//
//	meta := export.Meta{Title: "Chat with llama3", Model: "llama3"}
//	if err := export.ToFile(conv, meta, "chat.md", nil); err != nil {
//	    return err
//	}
//
// Files are written atomically with 0600 permissions. Exporting is one-way;
// nothing reads these files back.
package export
