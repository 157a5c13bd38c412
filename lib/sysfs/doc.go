// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysfs provides a capability driver and a data provider that
// are declared entirely in configuration.
//
// A [Driver] looks for a set of attribute files under a directory, or
// under every directory matching an instance glob, and re-probes when
// the kernel reports devices in its subsystem coming and going. A
// [Provider] bound to such a driver serves the current attribute
// values as CBOR and writes new values on SET requests.
package sysfs
