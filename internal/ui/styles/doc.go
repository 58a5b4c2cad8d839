// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the lipgloss palette and theme shared by the TUI
// and the CLI. Colors are AdaptiveColor values so light and dark terminals
// both read well.
package styles
