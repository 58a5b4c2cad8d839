// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-mode commands of ollachat.
//
// # Key Types
//
//   - Command: the command selected on the command line
//   - Args: parsed global and command flags
//   - App: configuration, session and I/O shared by every command
//   - Repl: the "chat" loop and its slash commands
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	if err := cli.Run(ctx, cmd, args); err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// Colours follow NO_COLOR and FORCE_COLOR; markdown is rendered only when
// stdout is a terminal.
package cli
