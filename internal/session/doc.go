// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state of one chat session.
//
// A Session owns the transcript, the model options and selection, and the
// connectivity flag. It replaces process-wide globals: the TUI and the REPL
// each receive a Session at startup.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(cfg.ClientConfig())
//	s := session.New(client, session.Config{
//	    DefaultModel:   "llama3",
//	    FallbackModels: []string{"llama3", "phi3"},
//	})
//	s.Refresh(ctx)
//
//	res, err := s.Submit(ctx, "Why is the sky blue?", func(acc string) {
//	    render(acc)
//	})
//	if errors.Is(err, session.ErrBusy) {
//	    // another turn is running
//	}
//	fmt.Println(res.Answer())
//
// Only one turn runs at a time per session.
package session
