// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package driver defines capability drivers and the registry that owns
// them.
//
// A capability driver ([Driver]) probes the filesystem for one optional
// hardware or firmware feature and records the control points it found
// as a [Descriptor] (attribute name to backing path), or as a
// [DescriptorVector] when the feature repeats per hardware instance. A
// driver with an empty descriptor is "not loaded": the hardware is not
// there. Concrete drivers embed [Base], which implements everything but
// Init.
//
// The [Registry] owns every driver and the kernel uevent transport. Its
// lifecycle is:
//
//  1. AddDriver for every driver (before InitDrivers).
//  2. InitDrivers: probe and validate each driver, then connect the
//     transport with the union of all driver filters plus the built-in
//     "module" filter.
//  3. The event loop calls Dispatch each time Readable fires.
//  4. CleanDrivers at shutdown.
//
// Dispatch routes each raw uevent to the drivers whose filter names its
// subsystem, with the event's properties narrowed to what that driver
// watches. Module load and unload events re-probe or clean every driver
// grouped under that module. Drivers react by emitting at most one
// normalized [Event]; the registry hands events and [ModuleEvent]s to
// the subscribers registered with SubscribeEvents and
// SubscribeModuleEvents.
//
// When the transport reports an error or hangup, the registry tears it
// down and builds a new one with every filter re-registered
// (Reconnect). If that fails the daemon cannot see hardware changes any
// more, so the error is returned for the caller to treat as fatal.
//
// The registry is not safe for concurrent use. It belongs to the
// daemon's event loop goroutine; drivers that do background work must
// hand results back to that goroutine before emitting.
//
// # Errors
//
// [ErrDriverNotFound] and [ErrDriverAlreadyLoaded] are setup mistakes.
// [ErrDriverNotAvailable] is the normal "this machine does not have
// that feature" answer and callers must branch on it rather than log it
// as a failure. A [*ValidationError] means a path found earlier has
// since disappeared (hardware removed under us); the driver is cleaned
// and reads as not available afterwards.
package driver
