// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo identifies the machine platformd runs on: DMI system,
// board and firmware identity, chassis type, CPU summary, memory and
// kernel release, read from /sys and /proc.
//
// [Probe] never fails. Missing or unreadable files leave fields empty,
// since a VM without DMI is still a machine worth describing.
//
// [Provider] exposes the probed [Platform] to IPC clients as a
// read-only data provider and re-probes whenever a kernel module comes
// or goes.
package hwinfo
