// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/ollachat/internal/export"
	"github.com/jeranaias/ollachat/internal/session"
	"github.com/jeranaias/ollachat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineEditor wraps liner with a history file.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor(historyFile string) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	ed := &lineEditor{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f) //nolint:errcheck
		f.Close()
	}
	return ed
}

func (e *lineEditor) prompt(p string) (string, error) {
	input, err := e.line.Prompt(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history with 0600 permissions and restores the terminal.
func (e *lineEditor) close() {
	defer e.line.Close()
	if e.historyFile == "" {
		return
	}
	var buf bytes.Buffer
	if _, err := e.line.WriteHistory(&buf); err != nil {
		return
	}
	if err := util.AtomicWriteFile(e.historyFile, buf.Bytes(), 0o600); err != nil {
		log.Printf("HISTORY_SAVE_FAILED | path=%s error=%v", e.historyFile, err)
	}
}

// =============================================================================
// REPL
// =============================================================================

// Repl runs line-mode chat turns and slash commands against an App.
type Repl struct {
	app *App

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRepl creates a REPL for app.
func NewRepl(app *App) *Repl {
	return &Repl{app: app}
}

// HandleChat runs the interactive chat loop until /quit, Ctrl+D or Ctrl+C
// at an empty prompt. Ctrl+C during an answer stops that answer only.
func HandleChat(ctx context.Context, app *App, args Args) error {
	if !app.Interactive {
		return &TTYRequiredError{Operation: "chat"}
	}

	repl := NewRepl(app)
	editor := newLineEditor(app.Config.HistoryPath())
	defer editor.close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if repl.Interrupt() {
				fmt.Fprintln(app.ErrOut, "\n"+WarningStyle.Render("[Stopped]"))
			}
		}
	}()

	app.Refresh(ctx)
	if args.Model != "" {
		app.Session.SetModel(args.Model)
	}
	repl.printWelcome()

	for {
		input, err := editor.prompt("ollachat> ")
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) or io.EOF (Ctrl+D)
			fmt.Fprintln(app.Out)
			repl.printSummary()
			return nil
		}

		quit, err := repl.HandleLine(ctx, input)
		if err != nil {
			DisplayError(app.ErrOut, err)
		}
		if quit {
			repl.printSummary()
			return nil
		}
	}
}

// HandleLine processes one line of input. It reports whether the user asked
// to quit.
func (r *Repl) HandleLine(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return false, nil
	case strings.HasPrefix(input, "/"):
		return r.command(input)
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return true, nil
	}
	return false, r.ask(ctx, input)
}

// Interrupt stops the answer in flight. It reports whether there was one.
func (r *Repl) Interrupt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}

func (r *Repl) ask(ctx context.Context, query string) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer r.Interrupt()

	app := r.app
	app.Refresh(ctx)
	if ctx.Err() != nil {
		return nil
	}

	fmt.Fprintln(app.Out, AssistantLabelStyle.Render("🤖 LLM:"))
	printer := &deltaPrinter{w: app.Out}
	res, err := app.Session.Submit(ctx, query, printer.update)
	if err != nil {
		return err
	}
	if printer.printed > 0 {
		fmt.Fprintln(app.Out)
	}
	if !res.OK() {
		fmt.Fprintln(app.Out, WarningStyle.Render(res.Warning()))
	}
	fmt.Fprintln(app.Out, RenderSeparator())
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *Repl) command(input string) (bool, error) {
	fields := strings.Fields(input)
	name, rest := strings.ToLower(fields[0]), fields[1:]
	out := r.app.Out
	sess := r.app.Session

	switch name {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h", "/?":
		r.printHelp()

	case "/models":
		for _, m := range sess.Models() {
			marker := "  "
			if m == sess.Model() {
				marker = SuccessStyle.Render("* ")
			}
			fmt.Fprintln(out, marker+m)
		}

	case "/model":
		if len(rest) == 0 {
			fmt.Fprintln(out, "Model: "+sess.Model())
			return false, nil
		}
		if err := sess.SelectModel(rest[0]); err != nil {
			if errors.Is(err, session.ErrUnknownModel) {
				return false, NewValidationErrorWithExample("model", rest[0],
					"not offered by the server ("+strings.Join(sess.Models(), ", ")+")",
					"/model "+sess.Model())
			}
			return false, err
		}
		fmt.Fprintln(out, "Model: "+sess.Model())

	case "/reset", "/clear":
		if err := sess.Reset(); err != nil {
			return false, err
		}
		fmt.Fprintln(out, SuccessStyle.Render("Chat history cleared!"))

	case "/history":
		r.printHistory()

	case "/export":
		path := export.DefaultFilename(time.Now(), ".md")
		if len(rest) > 0 {
			path = rest[0]
		}
		if err := r.export(path); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Exported to "+path)

	case "/status":
		st := sess.Status()
		fmt.Fprintln(out, RenderConnectivity(st.Connected, st.StatusLine())+"  "+st.URL)
		fmt.Fprintf(out, "Model: %s  Turns: %d  Session: %s (%s)\n",
			st.Model, st.Turns, st.SessionID, util.FormatDuration(st.Duration))

	default:
		return false, NewValidationErrorWithExample("command", name, "unknown chat command", "/help")
	}
	return false, nil
}

func (r *Repl) export(path string) error {
	st := r.app.Session.Status()
	meta := export.Meta{
		Title:     "Chat with " + st.Model,
		Model:     st.Model,
		SessionID: st.SessionID,
	}
	err := export.ToFile(r.app.Session.Conversation(), meta, path, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, export.ErrEmpty):
		return NewCommandError("export", "write", "nothing to export yet", nil)
	case errors.Is(err, export.ErrUnknownFormat):
		return NewValidationErrorWithExample("export file", path, "use a .md or .json file", "/export chat.md")
	default:
		return NewCommandError("export", "write", path, err)
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *Repl) printWelcome() {
	st := r.app.Session.Status()
	out := r.app.Out
	fmt.Fprintln(out, TitleStyle.Render("ollachat")+"  "+RenderConnectivity(st.Connected, st.StatusLine()))
	fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("Model %s at %s. Type /help for commands.", st.Model, st.URL)))
	fmt.Fprintln(out)
}

func (r *Repl) printHelp() {
	cmds := [][2]string{
		{"/models", "List available models"},
		{"/model NAME", "Switch model"},
		{"/reset", "Clear the conversation"},
		{"/history", "Show the conversation so far"},
		{"/export [FILE]", "Write the transcript (.md or .json)"},
		{"/status", "Show server status"},
		{"/quit", "Exit (also Ctrl+D)"},
	}
	for _, c := range cmds {
		fmt.Fprintln(r.app.Out, "  "+PromptStyle.Render(util.PadRight(c[0], 16))+DimStyle.Render(c[1]))
	}
	fmt.Fprintln(r.app.Out, DimStyle.Render("  Ctrl+C stops an answer in progress."))
}

func (r *Repl) printHistory() {
	out := r.app.Out
	width := GetTerminalWidth() - 10
	n := 0
	for p := range r.app.Session.Conversation().Pairs() {
		n++
		fmt.Fprintf(out, "%d. %s %s\n", n, UserLabelStyle.Render("🧑 You:"), util.TruncateWidth(oneLine(p.User.Text), width))
		if p.Assistant != nil {
			fmt.Fprintf(out, "   %s %s\n", AssistantLabelStyle.Render("🤖 LLM:"), util.TruncateWidth(oneLine(p.Assistant.Text), width))
		}
	}
	if n == 0 {
		fmt.Fprintln(out, DimStyle.Render("No messages yet."))
	}
}

func (r *Repl) printSummary() {
	st := r.app.Session.Status()
	fmt.Fprintln(r.app.Out, DimStyle.Render(fmt.Sprintf("%d turns in %s. Bye!",
		st.Turns, util.FormatDuration(st.Duration))))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
