// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is platformctl's command tree: named commands with lazily
// built pflag flag sets, nested dispatch, generated help, and typo
// suggestions for unknown commands and flags.
package cli
