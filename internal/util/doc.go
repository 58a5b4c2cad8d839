// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the CLI and TUI.
//
//   - AtomicWriteFile: crash-safe file writes (config files, transcript export)
//   - TruncateRunes, TruncateWidth, StringWidth, PadRight: display helpers
//   - FormatDuration: compact durations for status output
package util
