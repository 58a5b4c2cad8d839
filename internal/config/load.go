// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load builds the configuration from, in increasing precedence: built-in
// defaults, the first config file found in ConfigDir (config.toml,
// config.json, config.yaml, config.yml), .env files, and the environment.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := Default()
	for _, path := range candidatePaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := decodeFile(cfg, path); err != nil {
			return nil, err
		}
		break
	}
	return finish(cfg)
}

// LoadFromPath loads the configuration from an explicit file, picking the
// format from its extension. TOML is assumed for unknown extensions.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeFile overlays the file at path onto cfg.
func decodeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads .env from the working directory and the config dir.
// Variables already set in the environment win.
func loadDotEnv() {
	files := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", f, err)
		}
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables to cfg.
//
// Supported variables:
//   - OLLAMA_HOST: server address, used only while ollama.url is still the
//     default and OLLACHAT_URL is unset
//   - OLLACHAT_URL: overrides ollama.url
//   - OLLACHAT_MODEL: overrides ollama.default_model
//   - OLLACHAT_FALLBACK_MODELS: comma-separated ollama.fallback_models
//   - OLLACHAT_MODELS_PATH: overrides ollama.models_path
//   - OLLACHAT_PROBE_TIMEOUT, OLLACHAT_GENERATE_TIMEOUT: durations
//   - OLLACHAT_LOG_FILE: overrides log.file
//   - OLLACHAT_NO_MARKDOWN: "1" or "true" sets ui.plain_text
//
// Malformed values are reported on stderr and ignored.
func ApplyEnvOverrides(cfg *Config) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" && isDefaultURL(cfg.Ollama.URL) {
		cfg.Ollama.URL = hostToURL(host)
	}
	if u := os.Getenv("OLLACHAT_URL"); u != "" {
		cfg.Ollama.URL = u
	}
	if m := os.Getenv("OLLACHAT_MODEL"); m != "" {
		cfg.Ollama.DefaultModel = m
	}
	if list := os.Getenv("OLLACHAT_FALLBACK_MODELS"); list != "" {
		var models []string
		for _, m := range strings.Split(list, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		cfg.Ollama.FallbackModels = models
	}
	if p := os.Getenv("OLLACHAT_MODELS_PATH"); p != "" {
		cfg.Ollama.ModelsPath = p
	}
	envDuration("OLLACHAT_PROBE_TIMEOUT", &cfg.Ollama.ProbeTimeout)
	envDuration("OLLACHAT_GENERATE_TIMEOUT", &cfg.Ollama.GenerateTimeout)
	if f := os.Getenv("OLLACHAT_LOG_FILE"); f != "" {
		cfg.Log.File = f
	}
	if v := os.Getenv("OLLACHAT_NO_MARKDOWN"); v != "" {
		plain, err := strconv.ParseBool(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring OLLACHAT_NO_MARKDOWN=%q\n", v)
		} else {
			cfg.UI.PlainText = plain
		}
	}
}

func envDuration(name string, dst *Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var d Duration
	if err := d.UnmarshalText([]byte(v)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring %s: %v\n", name, err)
		return
	}
	*dst = d
}

func isDefaultURL(u string) bool {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	return u == "" || u == DefaultURL
}

// hostToURL turns an OLLAMA_HOST value ("0.0.0.0", "host:port", or a full
// URL) into a base URL.
func hostToURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	if host == "0.0.0.0" || strings.HasPrefix(host, "0.0.0.0:") {
		host = "localhost" + strings.TrimPrefix(host, "0.0.0.0")
	}
	if !strings.Contains(host, ":") {
		host += ":11434"
	}
	return "http://" + host
}
