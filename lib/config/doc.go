// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads platformd's YAML configuration.
//
// Configuration comes from a single file named by the PLATFORMD_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Running without a file is allowed and uses [Default];
// there is no discovery and no search path.
//
// The file overlays the defaults: fields it omits keep their default
// values. ${VAR} and ${VAR:-default} patterns in path fields are
// expanded after loading, with ${RUNTIME_DIR} referring to the
// configured runtime directory.
//
// Key exports:
//
//   - [Config] -- daemon settings, driver declarations, provider bindings
//   - [Default] -- a Config with no drivers and the standard sockets
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// The constructed *Config is passed explicitly to whatever needs it;
// this package holds no global state.
package config
