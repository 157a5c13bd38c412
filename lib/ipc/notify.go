// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/platformd/lib/codec"
	"github.com/bureau-foundation/platformd/lib/driver"
)

// Notification kinds.
const (
	NotificationDriver = "driver"
	NotificationModule = "module"
)

// NotificationPayload is the CBOR body of a Notification frame.
type NotificationPayload struct {
	Kind      string `cbor:"kind"`
	Driver    string `cbor:"driver,omitempty"`
	Module    string `cbor:"module,omitempty"`
	EventKind string `cbor:"event_kind"`
	Type      string `cbor:"type,omitempty"`
	Value     string `cbor:"value,omitempty"`
	// Time is Unix milliseconds at which the daemon saw the event.
	Time int64 `cbor:"time"`
}

// NotificationSession pushes events to one client. It never reads
// application data: any inbound byte is a protocol violation.
type NotificationSession struct {
	*connection
}

func NewNotificationSession(conn net.Conn, options Options) (*NotificationSession, error) {
	base, err := newConnection(conn, "notify", options)
	if err != nil {
		return nil, err
	}
	return &NotificationSession{connection: base}, nil
}

// Start watches the socket for closure. The reader posts exactly one
// error event: io.EOF when the client hangs up, a *ProtocolError when
// it sends anything.
func (s *NotificationSession) Start(events chan<- SessionEvent) {
	s.start(func() {
		var probe [1]byte
		_, err := s.conn.Read(probe[:])
		if err == nil {
			err = &ProtocolError{Reason: "client wrote to the notification channel"}
		}
		s.post(events, SessionEvent{Session: s, Err: err})
	})
}

// NotifyDriverEvent pushes a driver event. Outside Started the event is
// dropped. A write failure is returned; the session is then unusable.
func (s *NotificationSession) NotifyDriverEvent(event driver.Event) error {
	return s.send(NotificationPayload{
		Kind:      NotificationDriver,
		Driver:    event.Driver,
		EventKind: event.Kind.String(),
		Type:      event.Type,
		Value:     event.Value,
	})
}

// NotifyModuleEvent pushes a module event.
func (s *NotificationSession) NotifyModuleEvent(event driver.ModuleEvent) error {
	return s.send(NotificationPayload{
		Kind:      NotificationModule,
		Module:    event.Module,
		EventKind: event.Kind.String(),
	})
}

func (s *NotificationSession) send(payload NotificationPayload) error {
	if s.State() != SessionStarted {
		return nil
	}
	payload.Time = s.options.Clock.Now().UnixMilli()
	body, err := codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	return s.write(Frame{Type: Notification, ProviderID: NotificationProviderID, Payload: body})
}

// DecodeNotification parses a Notification frame.
func DecodeNotification(frame Frame) (NotificationPayload, error) {
	var payload NotificationPayload
	if frame.Type != Notification {
		return payload, &ProtocolError{Reason: fmt.Sprintf("expected notification frame, got %s", frame.Type)}
	}
	if err := codec.Unmarshal(frame.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decoding notification: %w", err)
	}
	return payload, nil
}

// IsHangUp reports whether a session error means the client simply
// went away: end of stream, or a reset from a client that closed with
// unread data.
func IsHangUp(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.ECONNRESET || errno == unix.EPIPE
	}
	return false
}
