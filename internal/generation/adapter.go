// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generation runs one chat turn against the inference server.
//
// The Adapter sends the prompt, decodes the streamed answer, reports the
// growing answer to an update callback, and folds every failure into a
// Result so callers never handle errors for a turn.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/ollachat/internal/ollama"
)

// Generator is the part of the transport client the adapter needs.
// *ollama.Client implements it.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (*ollama.Response, error)
	BaseURL() string
}

// UpdateFunc receives the full answer accumulated so far, once per
// increment. Renderers can replace their buffer with it.
type UpdateFunc func(accumulated string)

// Adapter turns prompts into Results. It holds no per-turn state and may be
// shared; the one-turn-at-a-time rule is enforced by the session.
type Adapter struct {
	client Generator
}

// NewAdapter creates an adapter over client.
func NewAdapter(client Generator) *Adapter {
	return &Adapter{client: client}
}

// Ask streams an answer for prompt from model.
//
// When connected is false nothing is sent and the unreachable result is
// returned without calling onUpdate. onUpdate may be nil.
func (a *Adapter) Ask(ctx context.Context, prompt, model string, connected bool, onUpdate UpdateFunc) Result {
	if !connected {
		return Result{Kind: KindUnreachable, Detail: a.client.BaseURL()}
	}

	start := time.Now()
	resp, err := a.client.Generate(ctx, ollama.NewGenerateRequest(model, prompt))
	if err != nil {
		res := classify(err)
		log.Printf("GENERATE_FAILED | model=%s kind=%s status=%d", model, res.Kind, res.Status)
		return res
	}
	defer resp.Close()

	var acc strings.Builder
	reader := ollama.NewStreamReader(resp.Body)
	for frag, err := range reader.Fragments() {
		if err != nil {
			log.Printf("GENERATE_INTERRUPTED | model=%s received=%d reason=%v", model, acc.Len(), err)
			return Result{
				Kind:   KindConnectionError,
				Text:   strings.TrimSpace(acc.String()),
				Detail: detailOf(err),
			}
		}
		acc.WriteString(frag.Text)
		if onUpdate != nil {
			onUpdate(acc.String())
		}
	}

	log.Printf("GENERATE_DONE | model=%s lines=%d noise=%d chars=%d elapsed=%s",
		model, reader.LineCount(), reader.NoiseCount(), acc.Len(), time.Since(start).Round(time.Millisecond))

	return Result{Kind: KindOK, Text: strings.TrimSpace(acc.String())}
}

// AskOnce requests a non-streaming answer. The body's "response" field is
// returned, else its "text" field, else the body itself.
func (a *Adapter) AskOnce(ctx context.Context, prompt, model string, connected bool) Result {
	if !connected {
		return Result{Kind: KindUnreachable, Detail: a.client.BaseURL()}
	}

	req := ollama.GenerateRequest{Model: model, Prompt: prompt, Stream: false}
	resp, err := a.client.Generate(ctx, req)
	if err != nil {
		res := classify(err)
		log.Printf("GENERATE_FAILED | model=%s kind=%s status=%d stream=false", model, res.Kind, res.Status)
		return res
	}
	defer resp.Close()

	return Result{Kind: KindOK, Text: extractAnswer(resp.Bytes())}
}

// extractAnswer picks the answer out of a non-streaming body.
func extractAnswer(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil && body != nil {
		for _, field := range []string{"response", "text"} {
			if s, ok := body[field].(string); ok && s != "" {
				return s
			}
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err == nil {
			return compact.String()
		}
	}
	return strings.TrimSpace(string(data))
}

// classify maps a Generate error to a failure Result.
func classify(err error) Result {
	var clientErr *ollama.ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ollama.ErrTypeServer {
		return Result{
			Kind:   KindServerError,
			Status: clientErr.StatusCode,
			Detail: clientErr.Body,
		}
	}
	return Result{Kind: KindConnectionError, Detail: detailOf(err)}
}

// detailOf returns the most useful one-line description of err.
func detailOf(err error) string {
	var clientErr *ollama.ClientError
	if errors.As(err, &clientErr) {
		if clientErr.Type == ollama.ErrTypeConnection && clientErr.Cause != nil {
			return clientErr.Cause.Error()
		}
		return clientErr.Message
	}
	return err.Error()
}
