// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the ollachat TUI.

The screen is a Bubble Tea model around a session.Session. It owns no
transcript state of its own: every turn is submitted to the session and the
viewport is redrawn from the session's conversation.

# Streaming

Enter starts a worker command that re-probes the server and calls
Session.Submit. Partial answers are pushed back with Program.Send through a
StreamRunner, throttled to the configured frame rate; the finished turn
arrives as a StreamDoneMsg.

	m := chat.New(sess, cfg, theme)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetProgram(p)
	_, err := p.Run()

# Keys

Enter sends, Tab cycles models, Ctrl+R clears the chat, Ctrl+S exports the
transcript as Markdown, Ctrl+C stops the answer in flight or quits.
*/
package chat
