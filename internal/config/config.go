// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/ollachat/internal/ollama"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ollachat configuration.
type Config struct {
	Ollama OllamaConfig `toml:"ollama" json:"ollama" yaml:"ollama"`
	UI     UIConfig     `toml:"ui" json:"ui" yaml:"ui"`
	Log    LogConfig    `toml:"log" json:"log" yaml:"log"`
}

// OllamaConfig describes the inference server endpoint. It is fixed for the
// lifetime of a session once the client is built.
type OllamaConfig struct {
	// URL is the server base URL.
	URL string `toml:"url" json:"url" yaml:"url"`

	// ModelsPath is the model listing path. Ollama serves /api/tags; some
	// compatible servers use /api/models.
	ModelsPath string `toml:"models_path" json:"models_path" yaml:"models_path"`

	DefaultModel   string   `toml:"default_model" json:"default_model" yaml:"default_model"`
	FallbackModels []string `toml:"fallback_models" json:"fallback_models" yaml:"fallback_models"`

	ProbeTimeout    Duration `toml:"probe_timeout" json:"probe_timeout" yaml:"probe_timeout"`
	ListTimeout     Duration `toml:"list_timeout" json:"list_timeout" yaml:"list_timeout"`
	GenerateTimeout Duration `toml:"generate_timeout" json:"generate_timeout" yaml:"generate_timeout"`

	// RefreshInterval is how often the TUI re-probes the server.
	RefreshInterval Duration `toml:"refresh_interval" json:"refresh_interval" yaml:"refresh_interval"`
}

// UIConfig holds display settings shared by the TUI and CLI.
type UIConfig struct {
	// PlainText disables markdown rendering of answers.
	PlainText bool `toml:"plain_text" json:"plain_text" yaml:"plain_text"`

	// FPS caps how often a streaming answer is re-rendered.
	FPS int `toml:"fps" json:"fps" yaml:"fps"`

	// WordWrap is the markdown wrap width for CLI output.
	WordWrap int `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`

	// HistoryFile stores REPL line history. Empty means the config dir.
	HistoryFile string `toml:"history_file" json:"history_file" yaml:"history_file"`
}

// LogConfig controls the event log.
type LogConfig struct {
	// File receives log output. Empty discards it in the TUI and sends it
	// to stderr for CLI commands run with --verbose.
	File    string `toml:"file" json:"file" yaml:"file"`
	Verbose bool   `toml:"verbose" json:"verbose" yaml:"verbose"`
}

// DefaultURL is the address a stock Ollama install listens on.
const DefaultURL = "http://localhost:11434"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			URL:             DefaultURL,
			ModelsPath:      "/api/tags",
			DefaultModel:    "llama3",
			FallbackModels:  []string{"llama3", "phi3"},
			ProbeTimeout:    Duration(time.Second),
			ListTimeout:     Duration(time.Second),
			GenerateTimeout: Duration(60 * time.Second),
			RefreshInterval: Duration(15 * time.Second),
		},
		UI: UIConfig{
			FPS:      30,
			WordWrap: 80,
		},
	}
}

// ClientConfig maps the endpoint settings onto the transport client.
func (c *Config) ClientConfig() *ollama.ClientConfig {
	return &ollama.ClientConfig{
		BaseURL:         c.Ollama.URL,
		ModelsPath:      c.Ollama.ModelsPath,
		ProbeTimeout:    c.Ollama.ProbeTimeout.Std(),
		ListTimeout:     c.Ollama.ListTimeout.Std(),
		GenerateTimeout: c.Ollama.GenerateTimeout.Std(),
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory: $OLLACHAT_HOME if set,
// otherwise ~/.ollachat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("OLLACHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollachat"), nil
}

// ConfigPath returns the path of the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the REPL history file path.
func (c *Config) HistoryPath() string {
	if c.UI.HistoryFile != "" {
		return c.UI.HistoryFile
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// candidatePaths lists the config files Load looks for, in order.
func candidatePaths() []string {
	dir, err := ConfigDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = defaults.Ollama.URL
	}
	cfg.Ollama.URL = strings.TrimRight(cfg.Ollama.URL, "/")
	if cfg.Ollama.ModelsPath == "" {
		cfg.Ollama.ModelsPath = defaults.Ollama.ModelsPath
	}
	if cfg.Ollama.DefaultModel == "" {
		cfg.Ollama.DefaultModel = defaults.Ollama.DefaultModel
	}
	if len(cfg.Ollama.FallbackModels) == 0 {
		cfg.Ollama.FallbackModels = defaults.Ollama.FallbackModels
	}
	if cfg.Ollama.ProbeTimeout == 0 {
		cfg.Ollama.ProbeTimeout = defaults.Ollama.ProbeTimeout
	}
	if cfg.Ollama.ListTimeout == 0 {
		cfg.Ollama.ListTimeout = defaults.Ollama.ListTimeout
	}
	if cfg.Ollama.GenerateTimeout == 0 {
		cfg.Ollama.GenerateTimeout = defaults.Ollama.GenerateTimeout
	}
	if cfg.Ollama.RefreshInterval == 0 {
		cfg.Ollama.RefreshInterval = defaults.Ollama.RefreshInterval
	}

	if cfg.UI.FPS == 0 {
		cfg.UI.FPS = defaults.UI.FPS
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = defaults.UI.WordWrap
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors listing every
// problem, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.Ollama.URL); err != nil {
		add("ollama.url", "invalid URL: %v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("ollama.url", "scheme must be http or https, got %q", u.Scheme)
	} else if u.Host == "" {
		add("ollama.url", "missing host")
	}

	if !strings.HasPrefix(c.Ollama.ModelsPath, "/") {
		add("ollama.models_path", "must start with /, got %q", c.Ollama.ModelsPath)
	}
	if strings.TrimSpace(c.Ollama.DefaultModel) == "" {
		add("ollama.default_model", "must not be empty")
	}
	if len(c.Ollama.FallbackModels) == 0 {
		add("ollama.fallback_models", "must list at least one model")
	}
	for i, m := range c.Ollama.FallbackModels {
		if strings.TrimSpace(m) == "" {
			add(fmt.Sprintf("ollama.fallback_models[%d]", i), "must not be empty")
		}
	}

	timeouts := []struct {
		field string
		value Duration
	}{
		{"ollama.probe_timeout", c.Ollama.ProbeTimeout},
		{"ollama.list_timeout", c.Ollama.ListTimeout},
		{"ollama.generate_timeout", c.Ollama.GenerateTimeout},
		{"ollama.refresh_interval", c.Ollama.RefreshInterval},
	}
	for _, tc := range timeouts {
		if tc.value <= 0 {
			add(tc.field, "must be positive, got %s", tc.value)
		}
	}

	if c.UI.FPS < 1 || c.UI.FPS > 60 {
		add("ui.fps", "must be between 1 and 60, got %d", c.UI.FPS)
	}
	if c.UI.WordWrap < 20 || c.UI.WordWrap > 400 {
		add("ui.word_wrap", "must be between 20 and 400, got %d", c.UI.WordWrap)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Load errors fall back to defaults with a warning on stderr.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			ApplyEnvOverrides(cfg)
			fillDefaults(cfg)
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
