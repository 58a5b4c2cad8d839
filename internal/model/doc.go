// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model holds the transcript of a chat session.
//
// # Key Types
//
//   - Conversation: append-only, mutex-guarded list of entries
//   - Entry: one transcript item (role, text, timestamp)
//   - Pair: a user entry with its optional assistant answer
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Append(model.NewEntry(model.RoleUser, "Hello!"))
//	conv.Append(model.NewEntry(model.RoleAssistant, "Hi there."))
//
//	for p := range conv.Pairs() {
//	    fmt.Println(p.User.Text)
//	    if p.Assistant != nil {
//	        fmt.Println(p.Assistant.Text)
//	    }
//	}
package model
