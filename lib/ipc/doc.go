// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc implements platformd's client protocol: a binary frame
// codec and the two kinds of session that speak it.
//
// Every message is a [Frame]: a 10-byte header (type, provider id,
// payload length as a native-order uint64) followed by the payload
// verbatim. Payloads are opaque to this package; providers produce and
// consume them.
//
// A [RequestSession] serves GET and SET requests against a provider
// registry on the request socket. A [NotificationSession] pushes driver
// and module events on the notification socket and never reads. Each
// socket admits one session at a time; the daemon holds the occupancy
// in a [Slot] and closes any connection that arrives while the slot is
// taken.
//
// Sessions run one reader goroutine each. Readers only do blocking I/O
// and post what they read as [SessionEvent] values; all handling
// happens on the daemon's event loop.
package ipc
