// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollachat/internal/generation"
	"github.com/jeranaias/ollachat/internal/ui/styles"
	"github.com/jeranaias/ollachat/internal/util"
)

const (
	userLabel      = "🧑 You:"
	assistantLabel = "🤖 LLM:"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "\n  Starting ollachat..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatus(),
		m.input.View(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	st := m.sess.Status()

	status := m.theme.StatusOffline.Render(st.StatusLine())
	if st.Connected {
		status = m.theme.StatusOnline.Render(st.StatusLine())
	}

	parts := []string{
		m.theme.HeaderTitle.Render("ollachat"),
		status,
		m.theme.ModelName.Render(util.TruncateWidth(st.Model, 32)),
	}
	if m.theme.GetLayoutMode() != styles.LayoutNarrow {
		parts = append(parts, m.theme.Muted.Render(fmt.Sprintf("%d turns · %s",
			st.Turns, util.FormatDuration(st.Duration))))
	}

	return m.theme.Header.
		Width(m.width).
		MaxWidth(m.width).
		Render(strings.Join(parts, "  "))
}

func (m Model) renderStatus() string {
	switch {
	case m.streaming:
		return m.spinner.View() + m.theme.Muted.Render(" "+m.sess.Model()+" is answering...")
	case m.notice != "":
		return m.theme.Notice.Render(m.notice)
	default:
		return ""
	}
}

func (m Model) renderFooter() string {
	bindings := m.keys.FullHelp()
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		bindings = m.keys.ShortHelp()
	}
	items := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		items = append(items, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(items, "  "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript draws the conversation as question/answer pairs. The
// pair in flight shows the partial answer, or the spinner before the first
// fragment.
func (m Model) renderTranscript() string {
	conv := m.sess.Conversation()
	if conv.IsEmpty() {
		return m.theme.Muted.Render("No messages yet. Type a question and press Enter.")
	}

	sep := m.theme.Separator.Render(strings.Repeat("─", max(min(m.width, 80)-2, 10)))

	var b strings.Builder
	for p := range conv.Pairs() {
		b.WriteString(m.theme.UserLabel.Render(userLabel))
		b.WriteString(" ")
		b.WriteString(m.plain(p.User.Text))
		b.WriteString("\n")
		b.WriteString(m.theme.AssistantLabel.Render(assistantLabel))
		b.WriteString("\n")

		switch {
		case p.Assistant != nil:
			b.WriteString(m.renderAnswer(p.Assistant.ID, p.Assistant.Text))
		case m.streaming && m.partial != "":
			b.WriteString(m.plain(m.partial))
		case m.streaming:
			b.WriteString(m.spinner.View() + m.theme.Muted.Render(" thinking..."))
		}
		b.WriteString("\n")
		b.WriteString(sep)
		b.WriteString("\n")
	}
	return b.String()
}

// renderAnswer formats a finished answer. Finished entries never change, so
// their rendering is cached by entry ID.
func (m Model) renderAnswer(id, text string) string {
	if out, ok := m.cache.get(id); ok {
		return out
	}

	body, warning := splitWarning(text)
	var parts []string
	if body != "" {
		parts = append(parts, m.markdown(body))
	}
	if warning != "" {
		parts = append(parts, m.theme.Warning.Render(warning))
	}
	out := strings.Join(parts, "\n")
	m.cache.put(id, out)
	return out
}

func (m Model) markdown(text string) string {
	if m.renderer == nil {
		return m.plain(text)
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return m.plain(text)
	}
	return strings.Trim(out, "\n")
}

func (m Model) plain(text string) string {
	return m.theme.Body.Width(m.wrapWidth()).Render(text)
}

func (m Model) wrapWidth() int {
	wrap := m.cfg.UI.WordWrap
	if m.width > 0 && m.width-2 < wrap {
		wrap = m.width - 2
	}
	return max(wrap, 20)
}

// splitWarning separates a trailing diagnostic from model output.
func splitWarning(text string) (body, warning string) {
	if strings.HasPrefix(text, generation.WarningMarker) {
		return "", text
	}
	if !generation.IsWarning(text) {
		return text, ""
	}
	i := strings.LastIndex(text, "\n\n"+generation.WarningMarker)
	return text[:i], text[i+2:]
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// =============================================================================
// RENDER CACHE
// =============================================================================

// renderCache is only touched from the Update/View goroutine.
type renderCache struct {
	entries map[string]string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[string]string)}
}

func (c *renderCache) get(id string) (string, bool) {
	out, ok := c.entries[id]
	return out, ok
}

func (c *renderCache) put(id, out string) {
	c.entries[id] = out
}

func (c *renderCache) clear() {
	clear(c.entries)
}
