// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeranaias/ollachat/internal/config"
	"github.com/jeranaias/ollachat/internal/util"
)

// =============================================================================
// JSON OUTPUT TYPES
// =============================================================================

// StatusOutput is the --json form of "ollachat status".
type StatusOutput struct {
	URL        string   `json:"url"`
	Connected  bool     `json:"connected"`
	Version    string   `json:"version,omitempty"`
	Model      string   `json:"model"`
	Models     []string `json:"models"`
	ConfigPath string   `json:"config_path"`
	History    string   `json:"history_file"`
}

// ModelsOutput is the --json form of "ollachat models".
type ModelsOutput struct {
	Connected bool     `json:"connected"`
	Selected  string   `json:"selected"`
	Models    []string `json:"models"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// HANDLE MODELS
// =============================================================================

// HandleModels lists the model options: the server's models, or the
// configured fallback list when the server offers none.
func HandleModels(ctx context.Context, app *App, args Args) error {
	connected := app.Refresh(ctx)
	sess := app.Session
	if args.Model != "" {
		sess.SetModel(args.Model)
	}

	if args.JSON {
		return writeJSON(app.Out, ModelsOutput{
			Connected: connected,
			Selected:  sess.Model(),
			Models:    sess.Models(),
		})
	}

	if !connected {
		fmt.Fprintln(app.ErrOut, WarningStyle.Render(
			"Ollama not reachable at "+app.Client.BaseURL()+"; showing fallback models."))
	}
	for _, m := range sess.Models() {
		if m == sess.Model() {
			fmt.Fprintln(app.Out, SuccessStyle.Render("* ")+m)
		} else {
			fmt.Fprintln(app.Out, "  "+m)
		}
	}
	return nil
}

// =============================================================================
// HANDLE STATUS
// =============================================================================

// HandleStatus shows connectivity, the selected model and where the
// configuration lives.
func HandleStatus(ctx context.Context, app *App, args Args) error {
	app.Refresh(ctx)
	if args.Model != "" {
		app.Session.SetModel(args.Model)
	}
	st := app.Session.Status()

	cfgPath := args.ConfigPath
	if cfgPath == "" {
		cfgPath, _ = config.ConfigPath()
	}

	if args.JSON {
		return writeJSON(app.Out, StatusOutput{
			URL:        st.URL,
			Connected:  st.Connected,
			Version:    st.Version,
			Model:      st.Model,
			Models:     app.Session.Models(),
			ConfigPath: cfgPath,
			History:    app.Config.HistoryPath(),
		})
	}

	width := GetTerminalWidth() - LabelStyle.GetWidth() - 2
	out := app.Out
	fmt.Fprintln(out, TitleStyle.Render("ollachat status"))
	fmt.Fprintln(out, RenderSeparator())
	fmt.Fprintln(out, RenderLabel("Server")+ValueStyle.Render(util.TruncateWidth(st.URL, width)))
	fmt.Fprintln(out, RenderLabel("Status")+RenderConnectivity(st.Connected, st.StatusLine()))
	fmt.Fprintln(out, RenderLabel("Model")+ValueStyle.Render(util.TruncateWidth(st.Model, width)))
	fmt.Fprintln(out, RenderLabel("Models")+ValueStyle.Render(fmt.Sprintf("%d available", st.Models)))
	fmt.Fprintln(out, RenderLabel("Config")+DimStyle.Render(util.TruncateWidth(cfgPath, width)))
	fmt.Fprintln(out, RenderLabel("History")+DimStyle.Render(util.TruncateWidth(app.Config.HistoryPath(), width)))
	return nil
}
