// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - the "config" command.
//
//	ollachat config              Show the effective configuration (default)
//	ollachat config path         Print the config file path
//	ollachat config init         Write a default config file
//	ollachat config init --force Overwrite an existing one
//
// The file format follows the extension of --config; the default file is
// TOML.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/ollachat/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(app *App, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(app)
	case "path":
		path, err := configPath(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out, path)
		return nil
	case "init":
		return configInit(app, args)
	default:
		return NewValidationErrorWithExample("config subcommand", args.Subcommand,
			"expected show, path or init", "ollachat config init")
	}
}

// configShow prints the effective configuration, including environment
// overrides, as TOML.
func configShow(app *App) error {
	data, err := config.EncodeTOML(app.Config)
	if err != nil {
		return NewCommandError("config", "show", "could not encode", err)
	}
	_, err = app.Out.Write(data)
	return err
}

func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", NewCommandError("config", "path", "no config directory", err)
	}
	return path, nil
}

// configInit writes the built-in defaults. Existing files are kept unless
// --force is given.
func configInit(app *App, args Args) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !args.Force {
		return NewCommandError("config", "init", path+" already exists (use --force to overwrite)", nil)
	}
	if err := config.SaveTo(config.Default(), path); err != nil {
		return NewCommandError("config", "init", "could not write "+path, err)
	}
	fmt.Fprintln(app.Out, SuccessStyle.Render("[OK]")+" Wrote "+path)
	return nil
}
