// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bytes"
	"io"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// GenerateRequest is the request body for /api/generate endpoint.
// It is built once per user turn and passed by value.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// NewGenerateRequest creates a streaming generate request.
func NewGenerateRequest(model, prompt string) GenerateRequest {
	return GenerateRequest{Model: model, Prompt: prompt, Stream: true}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Response is the raw handle returned by Generate.
//
// For streaming requests Body is the live response body and must be closed
// by the caller. For non-streaming requests the body has already been read
// and Bytes returns it; Body then reads from that buffer.
type Response struct {
	StatusCode int
	Body       io.ReadCloser

	buffered []byte
	isStream bool
}

// Stream reports whether the response body is a live stream.
func (r *Response) Stream() bool {
	return r.isStream
}

// Bytes returns the buffered body of a non-streaming response.
// It returns nil for streaming responses.
func (r *Response) Bytes() []byte {
	return r.buffered
}

// Close releases the response body.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

func newBufferedResponse(status int, data []byte) *Response {
	return &Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		buffered:   data,
	}
}

// versionResponse is the response from /api/version endpoint.
type versionResponse struct {
	Version string `json:"version"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Fragment is one decoded unit of a streaming generate response.
type Fragment struct {
	// Text is the increment to append to the answer.
	Text string

	// Raw is set when the line was not a JSON object and Text is the line
	// itself, unparsed.
	Raw bool
}

// generateChunk is one NDJSON line of a /api/generate stream. Fields are
// decoded loosely so that non-string values are ignored instead of failing
// the whole line.
type generateChunk map[string]any

// stringField returns the named field if it is a non-empty string.
func (c generateChunk) stringField(name string) string {
	if v, ok := c[name].(string); ok {
		return v
	}
	return ""
}

// text returns the response text, falling back to the text field.
func (c generateChunk) text() string {
	if s := c.stringField("response"); s != "" {
		return s
	}
	return c.stringField("text")
}
