// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// This package implements the transport side of a chat turn: reachability
// probing, model listing, and the /api/generate call, plus the decoder that
// turns the newline-delimited JSON stream into text increments.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - ClientError: typed error separating "unreachable" from "rejected"
//   - GenerateRequest: {model, prompt, stream} request body
//   - StreamReader: line decoder yielding Fragments
//
// # Usage
//
//	client := ollama.NewClient()
//	if !client.ProbeReachability(ctx) {
//	    // show "not reachable"
//	}
//	resp, err := client.Generate(ctx, ollama.NewGenerateRequest("llama3", "Hello"))
//	if err != nil {
//	    // ollama.IsServer(err) / ollama.IsConnection(err)
//	}
//	defer resp.Close()
//	for frag, err := range ollama.NewStreamReader(resp.Body).Fragments() {
//	    if err != nil {
//	        break
//	    }
//	    fmt.Print(frag.Text)
//	}
package ollama
