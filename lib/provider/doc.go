// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider holds the data providers that expose capabilities to
// IPC clients. A provider is addressed by a one-byte [ID] and trades in
// opaque payloads: it serializes current state, optionally filtered by
// a request payload, and applies mutations.
//
// Providers that care about hardware changes implement
// [DriverEventHandler] or [ModuleEventHandler]; the [Registry] forwards
// every event from the driver registry to every provider that does.
// Like the driver registry, a Registry is owned by the daemon's event
// loop and is not safe for concurrent use.
package provider
