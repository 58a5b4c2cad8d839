// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string

	// StatusCode and Body are set for ErrTypeServer.
	StatusCode int
	Body       string

	Cause error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeConnection: no response was received (refused, DNS, reset, cancelled).
	ErrTypeConnection
	// ErrTypeTimeout: the server did not answer, or stopped sending, in time.
	ErrTypeTimeout
	// ErrTypeServer: the server answered with a non-2xx status.
	ErrTypeServer
	// ErrTypeInvalidResponse: the server answered 2xx with an unusable body.
	ErrTypeInvalidResponse
)

// String returns a short name used in log lines.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeServer:
		return "server"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 1 << 20

// maxListBody caps the model listing response.
const maxListBody = 4 << 20

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434)
	BaseURL string

	// ModelsPath is the model listing endpoint (default: /api/tags).
	// Some servers expose /api/models instead; the response parser accepts both shapes.
	ModelsPath string

	// ProbeTimeout bounds the /api/version reachability check (default: 1s)
	ProbeTimeout time.Duration

	// ListTimeout bounds the model listing request (default: 1s)
	ListTimeout time.Duration

	// GenerateTimeout bounds the wait for response headers and the idle gap
	// between body reads of a generation (default: 60s). It is not a total
	// deadline: a long answer that keeps streaming is never cut off.
	GenerateTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         "http://localhost:11434",
		ModelsPath:      "/api/tags",
		ProbeTimeout:    1 * time.Second,
		ListTimeout:     1 * time.Second,
		GenerateTimeout: 60 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use. Reachability and listing failures are never
// returned as errors: they degrade to false and an empty list.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
// The config is copied; later changes to it do not affect the client.
func NewClientWithConfig(config *ClientConfig) *Client {
	defaults := DefaultConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ModelsPath == "" {
		cfg.ModelsPath = defaults.ModelsPath
	}
	if !strings.HasPrefix(cfg.ModelsPath, "/") {
		cfg.ModelsPath = "/" + cfg.ModelsPath
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaults.ProbeTimeout
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = defaults.ListTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = defaults.GenerateTimeout
	}

	// Streaming uses its own transport: the timeout applies to response
	// headers only, body reads are guarded by idleTimeoutBody.
	// SECURITY: TLS not required - Ollama runs locally over HTTP
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.GenerateTimeout

	return &Client{
		config:       &cfg,
		httpClient:   &http.Client{},
		streamClient: &http.Client{Transport: transport},
	}
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// GetConfig returns a copy of the client configuration.
func (c *Client) GetConfig() ClientConfig {
	return *c.config
}

func (c *Client) url(path string) string {
	return c.config.BaseURL + path
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// ProbeReachability reports whether the server answers GET /api/version with
// a 2xx status within the probe timeout. It never returns an error.
func (c *Client) ProbeReachability(ctx context.Context) bool {
	_, ok := c.Ping(ctx)
	return ok
}

// Ping is ProbeReachability that also returns the version from the same
// response. The version is empty when the body does not carry one.
func (c *Client) Ping(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/version"), nil)
	if err != nil {
		return "", false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("PROBE_FAILED | url=%s reason=%v", c.config.BaseURL, err)
		return "", false
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return "", false
	}
	var result versionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&result); err != nil {
		return "", true
	}
	return result.Version, true
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels returns the names of the models installed on the server.
// Any network, status or parse failure yields an empty, non-nil slice.
func (c *Client) ListModels(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, c.config.ListTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(c.config.ModelsPath), nil)
	if err != nil {
		return []string{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("MODELS_LIST_FAILED | url=%s reason=%v", c.url(c.config.ModelsPath), err)
		return []string{}
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		log.Printf("MODELS_LIST_FAILED | url=%s status=%d", c.url(c.config.ModelsPath), resp.StatusCode)
		return []string{}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxListBody))
	if err != nil {
		return []string{}
	}
	return ParseModelList(data)
}

// ParseModelList extracts model names from a listing body. It accepts a bare
// JSON array, or an object wrapping the array under "models" or "items".
// Descriptors may be strings or objects with a "name" field; anything else
// is skipped.
func ParseModelList(data []byte) []string {
	names := []string{}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return names
	}

	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"models", "items"} {
			if l, ok := v[key].([]any); ok && len(l) > 0 {
				list = l
				break
			}
		}
	}

	for _, item := range list {
		switch d := item.(type) {
		case string:
			if d != "" {
				names = append(names, d)
			}
		case map[string]any:
			if name, ok := d["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate posts req to /api/generate.
//
// A transport failure returns a ClientError of type ErrTypeConnection (or
// ErrTypeTimeout); a non-2xx status returns ErrTypeServer carrying the status
// code and body text. On success the caller owns the Response and must Close it.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/generate"), bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, transportError(err)
	}

	if !isSuccess(resp.StatusCode) {
		defer cancel()
		defer resp.Body.Close()
		return nil, serverError(resp)
	}

	reader := newIdleTimeoutBody(resp.Body, c.config.GenerateTimeout, cancel)
	if req.Stream {
		return &Response{StatusCode: resp.StatusCode, Body: reader, isStream: true}, nil
	}

	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, transportError(err)
	}
	return newBufferedResponse(resp.StatusCode, data), nil
}

// =============================================================================
// IDLE TIMEOUT
// =============================================================================

// idleTimeoutBody cancels the request when no read completes within timeout.
type idleTimeoutBody struct {
	rc       io.ReadCloser
	timer    *time.Timer
	timeout  time.Duration
	cancel   context.CancelFunc
	timedOut atomic.Bool
}

func newIdleTimeoutBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	b := &idleTimeoutBody{rc: rc, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.timedOut.Store(true)
		cancel()
	})
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF && b.timedOut.Load() {
		return n, &ClientError{
			Type:    ErrTypeTimeout,
			Message: "no data from Ollama for " + b.timeout.String(),
			Cause:   err,
		}
	}
	b.timer.Reset(b.timeout)
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	err := b.rc.Close()
	b.cancel()
	return err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func transportError(err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "failed to reach Ollama", Cause: err}
}

func serverError(resp *http.Response) *ClientError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ClientError{
		Type:       ErrTypeServer,
		Message:    "Ollama returned status " + strconv.Itoa(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       string(data),
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// IsConnection reports whether err means no response was received,
// including timeouts.
func IsConnection(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection || clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsServer reports whether err is a non-2xx answer from the server.
func IsServer(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeServer
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
