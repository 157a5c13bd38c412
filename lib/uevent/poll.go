// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uevent

import "time"

// PollStatus is the readiness of a transport descriptor, decoded from
// poll(2) revents.
type PollStatus struct {
	Readable bool
	Error    bool
	HangUp   bool
	Invalid  bool
}

// Failed reports whether the descriptor is in a state that reading can
// never recover from.
func (s PollStatus) Failed() bool {
	return s.Error || s.HangUp || s.Invalid
}

// Ready reports whether the descriptor needs attention: either an event
// is pending or the transport broke.
func (s PollStatus) Ready() bool {
	return s.Readable || s.Failed()
}

// Poller reports descriptor readiness, waiting at most timeout. A
// negative timeout waits indefinitely; zero does not wait.
type Poller interface {
	Poll(timeout time.Duration) (PollStatus, error)
}
