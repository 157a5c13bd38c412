// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for platformd packages.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, whose paths are limited to 108 bytes (sun_path) and so
// cannot live under a deeply nested t.TempDir().
//
// [RequireReceive], [RequireClosed] and [RequireNoReceive] encapsulate
// the timeout safety valve (select with a time.After fallback) so that
// individual tests never block forever on a channel.
//
// [WriteFile] builds synthetic sysfs trees.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no platformd-internal dependencies.
package testutil
