// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/ollama"
	"github.com/jeranaias/ollachat/internal/session"
)

// =============================================================================
// APP
// =============================================================================

// App bundles what every command needs: configuration, the session and the
// streams to talk to the user on.
type App struct {
	Config  *config.Config
	Client  *ollama.Client
	Session *session.Session

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// Interactive is true when stdin is a terminal.
	Interactive bool
	// Markdown enables glamour rendering of complete answers.
	Markdown bool

	renderer *glamour.TermRenderer
}

// NewApp loads the configuration and creates the client and session.
func NewApp(args Args) (*App, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}
	if args.NoMarkdown {
		cfg.UI.PlainText = true
	}
	config.SetGlobal(cfg)

	app := NewAppWithConfig(cfg)
	if args.Model != "" {
		app.Session.SetModel(args.Model)
	}
	app.Interactive = IsTTY()
	app.Markdown = !cfg.UI.PlainText && IsStdoutTTY()
	return app, nil
}

// NewAppWithConfig wires a client and session for cfg on the process
// streams, without markdown.
func NewAppWithConfig(cfg *config.Config) *App {
	client := ollama.NewClientWithConfig(cfg.ClientConfig())
	return &App{
		Config: cfg,
		Client: client,
		Session: session.New(client, session.Config{
			DefaultModel:   cfg.Ollama.DefaultModel,
			FallbackModels: cfg.Ollama.FallbackModels,
		}),
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

// LoadConfig loads --config when given, else the default locations.
func LoadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// SetupLogging points the standard logger at log.file, at stderr for
// --verbose, or nowhere.
func SetupLogging(cfg *config.Config, verbose bool) {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err == nil {
			log.SetOutput(f)
			return
		}
		log.SetOutput(os.Stderr)
		log.Printf("LOG_FILE_UNAVAILABLE | path=%s error=%v", cfg.Log.File, err)
	case verbose || cfg.Log.Verbose:
		log.SetOutput(os.Stderr)
	default:
		log.SetOutput(io.Discard)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// RefreshTimeout bounds a full Refresh: the version check, then the listing.
func (a *App) RefreshTimeout() time.Duration {
	o := a.Config.Ollama
	return o.ProbeTimeout.Std() + o.ListTimeout.Std()
}

// Refresh rechecks the server and refreshes the model options.
func (a *App) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.RefreshTimeout())
	defer cancel()
	return a.Session.Refresh(ctx)
}

// Render formats a complete answer for the terminal.
func (a *App) Render(text string) string {
	if !a.Markdown {
		return text
	}
	if a.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(min(GetTerminalWidth()-2, a.Config.UI.WordWrap)),
		)
		if err != nil {
			log.Printf("MARKDOWN_DISABLED | error=%v", err)
			a.Markdown = false
			return text
		}
		a.renderer = r
	}
	out, err := a.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// deltaPrinter writes the new suffix of each accumulated answer. The
// accumulator only ever grows, so the printed text is always a prefix.
type deltaPrinter struct {
	w       io.Writer
	printed int
}

func (p *deltaPrinter) update(accumulated string) {
	if len(accumulated) <= p.printed {
		return
	}
	io.WriteString(p.w, accumulated[p.printed:]) //nolint:errcheck
	p.printed = len(accumulated)
}
