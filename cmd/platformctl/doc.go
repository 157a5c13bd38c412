// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Platformctl is the command-line client for platformd. It reads
// (get) and writes (set) data providers over the request socket and
// follows the notification socket (watch).
//
// Request payloads are written as JSON with comments and trailing
// commas allowed, and converted to CBOR before sending. Responses are
// printed in CBOR diagnostic notation or as JSON.
//
// Exit status is 0 on success, 1 on failure and 2 on usage errors.
package main
