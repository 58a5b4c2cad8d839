// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdModels
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdModels:
		return "models"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose    bool
	NoMarkdown bool
	JSON       bool
	Model      string
	ConfigPath string

	// ask
	Query    string
	NoStream bool

	// config
	Subcommand string
	Force      bool

	// Positionals after the command name
	Raw []string
}

// boolFlags never take a value.
var boolFlags = []string{
	"verbose", "v", "no-markdown", "json", "no-stream", "force", "f", "help", "h", "version",
}

const usageText = `ollachat - chat with a local Ollama server

Usage:
  ollachat                        Start the TUI (default)
  ollachat chat                   Interactive line-mode chat
  ollachat ask [flags] QUESTION   Ask one question (reads stdin when QUESTION is omitted)
  ollachat models                 List the models offered by the server
  ollachat status                 Show server and configuration status
  ollachat config show            Print the effective configuration (TOML)
  ollachat config path            Print the config file path
  ollachat config init [--force]  Write a default config file
  ollachat version                Print version information
  ollachat help                   Show this help

Flags:
  -m, --model NAME       Use NAME instead of the configured default model
  -c, --config PATH      Load configuration from PATH (.toml, .json, .yaml)
      --no-stream        ask: wait for the full answer instead of streaming
      --no-markdown      Print answers as plain text
      --json             models/status: print JSON
  -v, --verbose          Log events to stderr

Chat commands:
  /models  /model NAME  /reset  /history  /export [FILE]  /status  /help  /quit

Environment:
  OLLACHAT_URL, OLLAMA_HOST   Server base URL (default http://localhost:11434)
  OLLACHAT_MODEL              Default model
  OLLACHAT_HOME               Config directory (default ~/.ollachat)
  NO_COLOR                    Disable colours
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "ollachat %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n  built:  %s\n  go:     %s %s/%s\n",
		GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		Verbose:    p.BoolFlag("verbose", "v"),
		NoMarkdown: p.BoolFlag("no-markdown"),
		JSON:       p.BoolFlag("json"),
		Model:      strings.TrimSpace(p.Flag("model", "m")),
		ConfigPath: p.Flag("config", "c"),
		NoStream:   p.BoolFlag("no-stream"),
		Force:      p.BoolFlag("force", "f"),
		Raw:        p.PositionalFrom(1),
	}

	if p.BoolFlag("version") {
		return CmdVersion, args, nil
	}
	if p.BoolFlag("help", "h") {
		return CmdHelp, args, nil
	}

	switch name := strings.ToLower(p.Subcommand()); name {
	case "", "tui":
		return CmdTUI, args, nil
	case "chat", "repl":
		return CmdChat, args, nil
	case "ask", "a":
		args.Query = strings.Join(args.Raw, " ")
		return CmdAsk, args, nil
	case "models", "ls":
		return CmdModels, args, nil
	case "status", "s":
		return CmdStatus, args, nil
	case "config":
		args.Subcommand = strings.ToLower(p.Positional(1))
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		switch args.Subcommand {
		case "show", "path", "init":
			return CmdConfig, args, nil
		}
		return CmdConfig, args, NewValidationErrorWithExample("config subcommand", args.Subcommand,
			"expected show, path or init", "ollachat config init")
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, NewValidationErrorWithExample("command", name,
			"unknown command", "ollachat help")
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes a non-TUI command.
func Run(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(os.Stdout)
		return nil
	case CmdVersion:
		PrintVersion(os.Stdout)
		return nil
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	SetupLogging(app.Config, args.Verbose)

	switch cmd {
	case CmdChat:
		return HandleChat(ctx, app, args)
	case CmdAsk:
		return HandleAsk(ctx, app, args)
	case CmdModels:
		return HandleModels(ctx, app, args)
	case CmdStatus:
		return HandleStatus(ctx, app, args)
	case CmdConfig:
		return HandleConfig(app, args)
	default:
		return NewCommandError(cmd.String(), "run", "not a line-mode command", nil)
	}
}
