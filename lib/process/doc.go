// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint error convention shared by
// platformd and platformctl: run() returns an error, main() hands it
// to [Fatal], which prints it before the structured logger exists (or
// after it is gone) and exits non-zero.
package process
