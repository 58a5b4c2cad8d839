// ollachat - a terminal chat front-end for a local Ollama server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ollachat/internal/cli"
	"github.com/jeranaias/ollachat/internal/ui/chat"
	"github.com/jeranaias/ollachat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse()
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		cli.PrintUsage(os.Stderr)
		os.Exit(cli.GetExitCode(err))
	}

	if cmd == cli.CmdTUI {
		err = runTUI(args)
	} else {
		err = cli.Run(context.Background(), cmd, args)
	}
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(args cli.Args) error {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		return &cli.TTYRequiredError{Operation: "start the chat screen"}
	}

	app, err := cli.NewApp(args)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	if path := app.Config.Log.File; path != "" {
		f, err := tea.LogToFile(path, "ollachat")
		if err != nil {
			return cli.NewCommandError("tui", "open log", path, err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	// Check once up front so the first frame shows real connectivity.
	app.Refresh(context.Background())

	m := chat.New(app.Session, app.Config, styles.NewTheme())
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)
	m.SetProgram(p)

	if _, err := p.Run(); err != nil {
		return cli.NewCommandError("tui", "run", "terminal UI stopped", err)
	}
	return nil
}
