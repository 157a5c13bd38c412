// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"fmt"
	"net"

	"github.com/bureau-foundation/platformd/lib/provider"
)

// Providers resolves provider ids. *provider.Registry implements it.
type Providers interface {
	DataProvider(id provider.ID) (provider.Provider, error)
}

// RequestSession serves GET and SET frames for one client.
type RequestSession struct {
	*connection
	providers Providers
}

// NewRequestSession wraps an accepted connection. The session is
// Created; nothing is read until Start.
func NewRequestSession(conn net.Conn, providers Providers, options Options) (*RequestSession, error) {
	base, err := newConnection(conn, "request", options)
	if err != nil {
		return nil, err
	}
	return &RequestSession{connection: base, providers: providers}, nil
}

// Start begins reading frames and posting them to events. Each frame
// waits without a deadline for its first byte; the rest of it is
// subject to the read timeout. The reader exits after posting the first
// error, including io.EOF for a client that hung up.
func (s *RequestSession) Start(events chan<- SessionEvent) {
	s.start(func() {
		for {
			frame, err := AwaitFrame(s.conn, s.options.ReadTimeout, s.options.MaxPayload)
			if err != nil {
				s.post(events, SessionEvent{Session: s, Err: err})
				return
			}
			if !s.post(events, SessionEvent{Session: s, Frame: &frame}) {
				return
			}
		}
	})
}

// Handle answers one frame. It runs on the event loop. A returned error
// fails the request: the caller stops the session without a response.
// Frames that only the daemon sends are logged and dropped.
func (s *RequestSession) Handle(frame Frame) error {
	if s.State() != SessionStarted {
		return nil
	}
	id := provider.ID(frame.ProviderID)

	switch frame.Type {
	case GetRequest:
		target, err := s.providers.DataProvider(id)
		if err != nil {
			return err
		}
		var payload []byte
		if len(frame.Payload) > 0 {
			payload, err = target.SerializeRequest(frame.Payload)
		} else {
			payload, err = target.Serialize()
		}
		if err != nil {
			return fmt.Errorf("provider %s: serializing: %w", id, err)
		}
		s.logger.Debug("get request served", "provider", id.String(), "request_bytes", len(frame.Payload), "response_bytes", len(payload))
		return s.write(Frame{Type: GetResponse, ProviderID: frame.ProviderID, Payload: payload})

	case SetRequest:
		target, err := s.providers.DataProvider(id)
		if err != nil {
			return err
		}
		result, err := target.DeserializeAndApply(frame.Payload)
		if err != nil {
			return fmt.Errorf("provider %s: applying: %w", id, err)
		}
		s.logger.Debug("set request applied", "provider", id.String(), "request_bytes", len(frame.Payload))
		return s.write(Frame{Type: SetResponse, ProviderID: frame.ProviderID, Payload: result})

	default:
		s.logger.Warn("dropping frame the daemon does not accept", "type", frame.Type.String(), "provider", id.String())
		return nil
	}
}
