// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides platformd's standard CBOR encoding configuration.
//
// The IPC frame payloads are opaque to the daemon core, but every payload
// that platformd itself produces (notification bodies, generic sysfs
// attribute snapshots, platform identity) is CBOR encoded through this
// package so that producers and platformctl agree on one configuration.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, which lets tests compare
// payloads byte for byte.
//
// For buffer-oriented operations (frame payloads):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Struct tags: types that only ever travel as CBOR use `cbor` tags.
// Types that platformctl also prints or reads as JSON use `json` tags,
// which fxamacker/cbor reads as a fallback. Never use both on one field.
package codec
