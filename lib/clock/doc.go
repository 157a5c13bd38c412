// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall-clock source.
//
// Components that stamp outgoing data with the current time (for
// example notification frames) accept a Clock instead of calling
// time.Now directly, so tests can assert exact timestamps:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	session := ipc.NewNotificationSession(conn, ipc.SessionOptions{Clock: c})
//	c.Advance(5 * time.Second)
//
// Socket deadlines are not routed through Clock: the kernel compares
// them against real time, so a fake value would only produce spurious
// timeouts.
package clock
