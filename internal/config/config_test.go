// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"OLLAMA_HOST",
	"OLLACHAT_URL",
	"OLLACHAT_MODEL",
	"OLLACHAT_FALLBACK_MODELS",
	"OLLACHAT_MODELS_PATH",
	"OLLACHAT_PROBE_TIMEOUT",
	"OLLACHAT_GENERATE_TIMEOUT",
	"OLLACHAT_LOG_FILE",
	"OLLACHAT_NO_MARKDOWN",
}

// isolate points the config dir at a temp dir and clears every variable
// the package reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OLLACHAT_HOME", dir)
	for _, name := range envVars {
		t.Setenv(name, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, "/api/tags", cfg.Ollama.ModelsPath)
	assert.Equal(t, "llama3", cfg.Ollama.DefaultModel)
	assert.Equal(t, []string{"llama3", "phi3"}, cfg.Ollama.FallbackModels)
	assert.Equal(t, time.Second, cfg.Ollama.ProbeTimeout.Std())
	assert.Equal(t, time.Second, cfg.Ollama.ListTimeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Ollama.GenerateTimeout.Std())
	assert.False(t, cfg.UI.PlainText)
	assert.Equal(t, 30, cfg.UI.FPS)
	require.NoError(t, cfg.Validate())
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Ollama.URL = "http://gpu-box:11434"
	cfg.Ollama.ModelsPath = "/api/models"
	cfg.Ollama.GenerateTimeout = Duration(2 * time.Minute)

	cc := cfg.ClientConfig()
	assert.Equal(t, "http://gpu-box:11434", cc.BaseURL)
	assert.Equal(t, "/api/models", cc.ModelsPath)
	assert.Equal(t, time.Second, cc.ProbeTimeout)
	assert.Equal(t, 2*time.Minute, cc.GenerateTimeout)
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[ollama]
url = "http://10.0.0.5:11434/"
default_model = "mistral"
fallback_models = ["mistral", "gemma"]
generate_timeout = "2m30s"

[ui]
plain_text = true
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:11434", cfg.Ollama.URL, "trailing slash trimmed")
	assert.Equal(t, "mistral", cfg.Ollama.DefaultModel)
	assert.Equal(t, []string{"mistral", "gemma"}, cfg.Ollama.FallbackModels)
	assert.Equal(t, 150*time.Second, cfg.Ollama.GenerateTimeout.Std())
	assert.Equal(t, "/api/tags", cfg.Ollama.ModelsPath, "unset fields keep defaults")
	assert.Equal(t, time.Second, cfg.Ollama.ProbeTimeout.Std())
	assert.True(t, cfg.UI.PlainText)
}

func TestLoad_JSON(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"ollama":{"models_path":"/api/models","probe_timeout":"250ms"}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/models", cfg.Ollama.ModelsPath)
	assert.Equal(t, 250*time.Millisecond, cfg.Ollama.ProbeTimeout.Std())
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.yaml"), `
ollama:
  default_model: phi3
  list_timeout: 3s
ui:
  fps: 10
log:
  file: /tmp/ollachat.log
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "phi3", cfg.Ollama.DefaultModel)
	assert.Equal(t, 3*time.Second, cfg.Ollama.ListTimeout.Std())
	assert.Equal(t, 10, cfg.UI.FPS)
	assert.Equal(t, "/tmp/ollachat.log", cfg.Log.File)
}

func TestLoad_TOMLWinsOverJSON(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[ollama]\ndefault_model = \"from-toml\"\n")
	writeFile(t, filepath.Join(dir, "config.json"), `{"ollama":{"default_model":"from-json"}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-toml", cfg.Ollama.DefaultModel)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, "config.toml"), "[ollama\nurl = ")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config.toml")
	})

	t.Run("bad duration", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, "config.yaml"), "ollama:\n  probe_timeout: soon\n")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, "config.toml"), "[ollama]\nurl = \"ftp://host\"\n")

		_, err := Load()
		var verrs ValidateErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "ollama.url", verrs[0].Field)
	})
}

func TestLoadFromPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yml")
	writeFile(t, path, "ollama:\n  url: https://ollama.example.com\n")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ollama.example.com", cfg.Ollama.URL)

	_, err = LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("OLLACHAT_URL", "http://envhost:9999")
	t.Setenv("OLLACHAT_MODEL", "qwen2.5")
	t.Setenv("OLLACHAT_FALLBACK_MODELS", " qwen2.5, ,llava ")
	t.Setenv("OLLACHAT_MODELS_PATH", "/api/models")
	t.Setenv("OLLACHAT_PROBE_TIMEOUT", "5s")
	t.Setenv("OLLACHAT_GENERATE_TIMEOUT", "not-a-duration")
	t.Setenv("OLLACHAT_LOG_FILE", "/var/log/ollachat.log")
	t.Setenv("OLLACHAT_NO_MARKDOWN", "true")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "http://envhost:9999", cfg.Ollama.URL)
	assert.Equal(t, "qwen2.5", cfg.Ollama.DefaultModel)
	assert.Equal(t, []string{"qwen2.5", "llava"}, cfg.Ollama.FallbackModels)
	assert.Equal(t, "/api/models", cfg.Ollama.ModelsPath)
	assert.Equal(t, 5*time.Second, cfg.Ollama.ProbeTimeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Ollama.GenerateTimeout.Std(), "malformed value ignored")
	assert.Equal(t, "/var/log/ollachat.log", cfg.Log.File)
	assert.True(t, cfg.UI.PlainText)
}

func TestApplyEnvOverrides_OllamaHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"0.0.0.0", "http://localhost:11434"},
		{"0.0.0.0:8080", "http://localhost:8080"},
		{"gpu-box", "http://gpu-box:11434"},
		{"gpu-box:11500", "http://gpu-box:11500"},
		{"https://ollama.example.com", "https://ollama.example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.host, func(t *testing.T) {
			isolate(t)
			t.Setenv("OLLAMA_HOST", tc.host)

			cfg := Default()
			ApplyEnvOverrides(cfg)
			assert.Equal(t, tc.want, cfg.Ollama.URL)
		})
	}

	t.Run("OLLACHAT_URL wins", func(t *testing.T) {
		isolate(t)
		t.Setenv("OLLAMA_HOST", "gpu-box")
		t.Setenv("OLLACHAT_URL", "http://other:1")

		cfg := Default()
		ApplyEnvOverrides(cfg)
		assert.Equal(t, "http://other:1", cfg.Ollama.URL)
	})

	t.Run("file url kept", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("OLLAMA_HOST", "gpu-box")
		writeFile(t, filepath.Join(dir, "config.toml"), `
[ollama]
url = "http://10.0.0.5:11434"
`)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:11434", cfg.Ollama.URL)
	})

	t.Run("applies over default file url", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("OLLAMA_HOST", "gpu-box")
		writeFile(t, filepath.Join(dir, "config.toml"), `
[ollama]
default_model = "mistral"
`)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.URL)
	})

	t.Run("OLLACHAT_URL wins over file", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("OLLACHAT_URL", "http://other:1")
		writeFile(t, filepath.Join(dir, "config.toml"), `
[ollama]
url = "http://10.0.0.5:11434"
`)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://other:1", cfg.Ollama.URL)
	})
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	// godotenv never overrides a variable that exists, even when empty.
	require.NoError(t, os.Unsetenv("OLLACHAT_MODELS_PATH"))
	t.Cleanup(func() { os.Unsetenv("OLLACHAT_MODELS_PATH") })
	t.Setenv("OLLACHAT_MODEL", "from-environment")

	writeFile(t, filepath.Join(dir, ".env"), "OLLACHAT_MODELS_PATH=/api/models\nOLLACHAT_MODEL=from-dotenv\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/models", cfg.Ollama.ModelsPath)
	assert.Equal(t, "from-environment", cfg.Ollama.DefaultModel)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no scheme", func(c *Config) { c.Ollama.URL = "localhost:11434" }, "ollama.url"},
		{"no host", func(c *Config) { c.Ollama.URL = "http://" }, "ollama.url"},
		{"relative models path", func(c *Config) { c.Ollama.ModelsPath = "api/tags" }, "ollama.models_path"},
		{"blank default model", func(c *Config) { c.Ollama.DefaultModel = " " }, "ollama.default_model"},
		{"no fallback", func(c *Config) { c.Ollama.FallbackModels = nil }, "ollama.fallback_models"},
		{"blank fallback", func(c *Config) { c.Ollama.FallbackModels = []string{"llama3", ""} }, "ollama.fallback_models[1]"},
		{"zero probe timeout", func(c *Config) { c.Ollama.ProbeTimeout = 0 }, "ollama.probe_timeout"},
		{"negative generate timeout", func(c *Config) { c.Ollama.GenerateTimeout = Duration(-time.Second) }, "ollama.generate_timeout"},
		{"fps too high", func(c *Config) { c.UI.FPS = 120 }, "ui.fps"},
		{"wrap too small", func(c *Config) { c.UI.WordWrap = 5 }, "ui.word_wrap"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "err = %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	errs := ValidateErrors{
		{Field: "ollama.url", Message: "missing host"},
		{Field: "ui.fps", Message: "must be between 1 and 60, got 0"},
	}
	assert.Equal(t, "ollama.url: missing host; ui.fps: must be between 1 and 60, got 0", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// SAVING
// =============================================================================

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.toml", "config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "sub", name)

			cfg := Default()
			cfg.Ollama.DefaultModel = "mistral"
			cfg.Ollama.GenerateTimeout = Duration(90 * time.Second)
			cfg.UI.PlainText = true
			require.NoError(t, SaveTo(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			if os.PathSeparator == '/' {
				assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
			}

			loaded, err := LoadFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSaveTOML_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# ollachat configuration file"))
	assert.Contains(t, string(data), `generate_timeout = "1m0s"`)
}

func TestSave_DefaultPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, Save(Default()))
	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)
}

func TestSaveTo_UnknownFormat(t *testing.T) {
	err := SaveTo(Default(), filepath.Join(t.TempDir(), "config.ini"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDuration_JSON(t *testing.T) {
	var v struct {
		D Duration `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"1m30s"}`), &v))
	assert.Equal(t, 90*time.Second, v.D.Std())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1m30s"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"d":"eventually"}`), &v))
}

// =============================================================================
// GLOBAL
// =============================================================================

// Global, SetGlobal and ReloadGlobal must be safe to call concurrently.
// Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c := Default()
			c.Ollama.DefaultModel = "test-model"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	wg.Wait()
}

func TestGlobal_FallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "not toml at all [[[")
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	cfg := Global()
	require.NotNil(t, cfg)
	assert.Equal(t, "llama3", cfg.Ollama.DefaultModel)
}

func TestHistoryPath(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	assert.Equal(t, filepath.Join(dir, "history"), cfg.HistoryPath())

	cfg.UI.HistoryFile = "/tmp/h"
	assert.Equal(t, "/tmp/h", cfg.HistoryPath())
}
