// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ollachat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role names the author of a transcript entry. Any string is accepted; the
// store does not validate roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the transcript label for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "LLM"
	default:
		return string(r)
	}
}

// =============================================================================
// ENTRY TYPE
// =============================================================================

// Entry is one transcript item. Entries are values; the store never hands
// out pointers into its own slice.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry creates an entry with a generated ID.
func NewEntry(role Role, text string) Entry {
	return Entry{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// Preview returns the text truncated to maxLen runes.
func (e Entry) Preview(maxLen int) string {
	return util.TruncateRunes(e.Text, maxLen)
}
