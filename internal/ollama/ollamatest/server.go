// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollamatest provides a scripted fake Ollama server for tests.
package ollamatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// GenerateCall records one request received on /api/generate.
type GenerateCall struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`

	ContentType string `json:"-"`
}

// Server is a fake inference server. Configure it with Options before the
// first request; the recorded calls are safe to read concurrently.
type Server struct {
	*httptest.Server

	version       string
	versionStatus int

	modelsPath   string
	modelsStatus int
	modelsBody   string

	generateStatus  int
	generateBody    string
	streamLines     []string
	nonStreamBody   string
	generateHandler http.HandlerFunc

	mu           sync.Mutex
	calls        []GenerateCall
	versionCalls int
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the /api/version payload version.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithVersionStatus makes /api/version answer with status.
func WithVersionStatus(status int) Option {
	return func(s *Server) { s.versionStatus = status }
}

// WithModelsPath serves the model listing on path instead of /api/tags.
func WithModelsPath(path string) Option {
	return func(s *Server) { s.modelsPath = path }
}

// WithModels sets the raw model listing body.
func WithModels(body string) Option {
	return func(s *Server) { s.modelsBody = body }
}

// WithModelsStatus makes the listing answer with status.
func WithModelsStatus(status int) Option {
	return func(s *Server) { s.modelsStatus = status }
}

// WithStream sets the lines written, newline-terminated, for stream=true.
func WithStream(lines ...string) Option {
	return func(s *Server) { s.streamLines = lines }
}

// WithNonStreamBody sets the body written for stream=false.
func WithNonStreamBody(body string) Option {
	return func(s *Server) { s.nonStreamBody = body }
}

// WithGenerateStatus makes /api/generate fail with status and body.
func WithGenerateStatus(status int, body string) Option {
	return func(s *Server) {
		s.generateStatus = status
		s.generateBody = body
	}
}

// WithGenerateHandler replaces the /api/generate handler. The call is still
// recorded before h runs.
func WithGenerateHandler(h http.HandlerFunc) Option {
	return func(s *Server) { s.generateHandler = h }
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		version:        "0.5.7",
		versionStatus:  http.StatusOK,
		modelsPath:     "/api/tags",
		modelsStatus:   http.StatusOK,
		modelsBody:     `{"models":[]}`,
		generateStatus: http.StatusOK,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/api/version", s.handleVersion)
	r.Get(s.modelsPath, s.handleModels)
	r.Post("/api/generate", s.handleGenerate)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Calls returns a copy of the recorded generate calls.
func (s *Server) Calls() []GenerateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GenerateCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// VersionCalls returns how many requests reached /api/version.
func (s *Server) VersionCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionCalls
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.versionCalls++
	s.mu.Unlock()

	if s.versionStatus != http.StatusOK {
		http.Error(w, http.StatusText(s.versionStatus), s.versionStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": s.version}) //nolint:errcheck
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.modelsStatus != http.StatusOK {
		http.Error(w, http.StatusText(s.modelsStatus), s.modelsStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(s.modelsBody)) //nolint:errcheck
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var call GenerateCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	call.ContentType = r.Header.Get("Content-Type")

	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	if s.generateHandler != nil {
		s.generateHandler(w, r)
		return
	}

	if s.generateStatus != http.StatusOK {
		w.WriteHeader(s.generateStatus)
		w.Write([]byte(s.generateBody)) //nolint:errcheck
		return
	}

	if !call.Stream {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.nonStreamBody)) //nolint:errcheck
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	for _, line := range s.streamLines {
		w.Write([]byte(line + "\n")) //nolint:errcheck
		if flusher != nil {
			flusher.Flush()
		}
	}
}
