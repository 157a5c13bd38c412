// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import "errors"

// ErrSlotOccupied is returned by Take while another session holds the
// slot.
var ErrSlotOccupied = errors.New("ipc: a session is already active on this channel")

// Slot holds the single active session of one channel. It belongs to
// the event loop and is not safe for concurrent use.
type Slot struct {
	session Session
}

// Occupied reports whether a session that has not stopped holds the
// slot.
func (s *Slot) Occupied() bool {
	return s.session != nil && s.session.State() != SessionStopped
}

// Take claims the slot for session.
func (s *Slot) Take(session Session) error {
	if s.Occupied() {
		return ErrSlotOccupied
	}
	s.session = session
	return nil
}

// Release frees the slot if session holds it, reporting whether it did.
// A stale release from an older session does not evict the current one.
func (s *Slot) Release(session Session) bool {
	if s.session == nil || s.session != session {
		return false
	}
	s.session = nil
	return true
}

// Session returns the holder, or nil.
func (s *Slot) Session() Session {
	return s.session
}
