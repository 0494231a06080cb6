// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the railbook
// server.
//
// Configuration is loaded from a single file specified by either the
// RAILBOOK_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search. A server started
// with neither runs on [Default].
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Server, Reservation, Timetable, Logging
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other railbook packages.
package config
