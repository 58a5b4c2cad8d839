// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jeranaias/ollachat/internal/generation"
)

// maxStdinQuery caps a question read from a pipe.
const maxStdinQuery = 1 << 20

// HandleAsk answers one question and exits.
//
//	ollachat ask "why is the sky blue?"
//	git diff | ollachat ask --no-stream
//
// Streaming answers are printed as they arrive. With --no-stream the full
// answer is rendered as markdown when stdout is a terminal.
func HandleAsk(ctx context.Context, app *App, args Args) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	query := args.Query
	if strings.TrimSpace(query) == "" && !app.Interactive {
		data, err := io.ReadAll(io.LimitReader(app.In, maxStdinQuery))
		if err != nil {
			return NewCommandError("ask", "read stdin", "could not read the question", err)
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return NewValidationErrorWithExample("question", "", "a question is required",
			`ollachat ask "why is the sky blue?"`)
	}

	if args.Model != "" {
		app.Session.SetModel(args.Model)
	}
	app.Refresh(ctx)
	if ctx.Err() != nil {
		return NewCommandError("ask", "check the server", "interrupted before the question was sent", ctx.Err())
	}

	var (
		res generation.Result
		err error
	)
	if args.NoStream {
		res, err = app.Session.SubmitOnce(ctx, query)
		if err == nil && res.Text != "" {
			fmt.Fprintln(app.Out, app.Render(res.Text))
		}
	} else {
		printer := &deltaPrinter{w: app.Out}
		res, err = app.Session.Submit(ctx, query, printer.update)
		if printer.printed > 0 {
			fmt.Fprintln(app.Out)
		}
	}
	if err != nil {
		return err
	}
	if !res.OK() {
		return &TurnError{Result: res}
	}
	return nil
}
