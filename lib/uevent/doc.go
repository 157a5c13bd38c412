// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package uevent receives kernel hot-plug and attribute-change
// notifications (uevents) from the NETLINK_KOBJECT_UEVENT multicast
// group.
//
// [Socket] is the transport: a non-blocking netlink socket with a
// userspace subsystem filter. Receive never blocks; it returns a nil
// event when nothing is pending, and [Socket.Poll] tells the caller
// whether that means "quiet" or "broken" (error, hangup or invalid
// descriptor bits).
//
// [Notifier] turns socket readiness into channel sends for an event
// loop. It polls on its own goroutine, signals once, and then waits for
// [Notifier.Rearm] so that the loop, not the notifier, decides when the
// pending event has been consumed.
//
// [Event] is the parsed message. The kernel sends every environment
// variable of the uevent; consumers narrow it with [Event.Scoped].
package uevent
