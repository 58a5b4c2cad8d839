// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the append-only transcript of one session.
//
// It is safe for concurrent use: the TUI reads it on the render loop while a
// worker goroutine appends the answer.
type Conversation struct {
	mu        sync.RWMutex
	entries   []Entry
	updatedAt time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		entries:   make([]Entry, 0),
		updatedAt: time.Now(),
	}
}

// Pair groups a user entry with the assistant entry that follows it.
// Assistant is nil while the answer has not been appended yet, or when the
// transcript ends on an odd position.
type Pair struct {
	User      Entry
	Assistant *Entry
}

// =============================================================================
// MUTATION
// =============================================================================

// Append adds e to the end of the transcript.
func (c *Conversation) Append(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	c.updatedAt = time.Now()
}

// AppendText creates an entry for role and appends it.
func (c *Conversation) AppendText(role Role, text string) Entry {
	e := NewEntry(role, text)
	c.Append(e)
	return e
}

// Reset removes every entry.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make([]Entry, 0)
	c.updatedAt = time.Now()
}

// =============================================================================
// QUERIES
// =============================================================================

// Entries returns a copy of the transcript.
func (c *Conversation) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Pairs yields entries two at a time by position: (0,1), (2,3), ...
// Roles are not inspected. The sequence iterates over a snapshot taken when
// iteration starts.
func (c *Conversation) Pairs() iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		entries := c.Entries()
		for i := 0; i < len(entries); i += 2 {
			p := Pair{User: entries[i]}
			if i+1 < len(entries) {
				a := entries[i+1]
				p.Assistant = &a
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IsEmpty returns true if there are no entries.
func (c *Conversation) IsEmpty() bool {
	return c.Len() == 0
}

// Last returns the most recent entry.
func (c *Conversation) Last() (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return Entry{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// UpdatedAt returns the time of the last mutation.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// =============================================================================
// EXPORT
// =============================================================================

// Markdown renders the transcript as a Markdown document titled with title.
func (c *Conversation) Markdown(title string) string {
	var sb strings.Builder
	if title == "" {
		title = "Chat transcript"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "_Exported %s_\n", time.Now().Format("2006-01-02 15:04:05"))

	n := 0
	for p := range c.Pairs() {
		n++
		fmt.Fprintf(&sb, "\n## Turn %d\n\n", n)
		writeEntry(&sb, p.User)
		if p.Assistant != nil {
			sb.WriteString("\n")
			writeEntry(&sb, *p.Assistant)
		}
	}
	if n == 0 {
		sb.WriteString("\n_No messages._\n")
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, e Entry) {
	fmt.Fprintf(sb, "**%s** (%s):\n\n%s\n", e.Role.DisplayName(), e.CreatedAt.Format("15:04:05"), e.Text)
}
