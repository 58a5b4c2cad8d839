// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the ollachat configuration.
//
// # Configuration Precedence
//
// Values are resolved from (highest first):
//   - Environment variables (OLLACHAT_*, then OLLAMA_HOST)
//   - .env in the working directory, then in the config dir
//   - The first of ~/.ollachat/config.{toml,json,yaml,yml}
//   - Built-in defaults
//
// $OLLACHAT_HOME replaces ~/.ollachat.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := ollama.NewClientWithConfig(cfg.ClientConfig())
//
// Durations are written as strings in every format:
//
//	[ollama]
//	url = "http://localhost:11434"
//	generate_timeout = "2m"
package config
