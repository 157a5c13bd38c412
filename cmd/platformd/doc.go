// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Platformd is the hardware-management daemon. It probes the
// capability drivers declared in its configuration, watches kernel
// uevents for hardware coming, going and changing, and serves one
// privileged client over two Unix sockets under /run/platformd:
// request.sock for GET/SET against data providers, and notify.sock for
// a push stream of driver and module events.
//
// Everything runs on one event loop goroutine; see [Daemon.Run].
package main
