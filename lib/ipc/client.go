// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/platformd/lib/provider"
)

// ErrConnectionClosed means the daemon closed the connection instead of
// answering: the channel is held by another client, or the request
// failed.
var ErrConnectionClosed = errors.New("ipc: daemon closed the connection")

// DefaultClientTimeout bounds each client write and each part of a
// response.
const DefaultClientTimeout = 10 * time.Second

// Client issues GET and SET requests over the request channel. It is
// not safe for concurrent use: the protocol allows one request in
// flight.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to the request socket at path.
func Dial(path string, timeout time.Duration) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	return NewClient(conn, timeout), nil
}

// NewClient wraps an established connection. A zero timeout means
// DefaultClientTimeout.
func NewClient(conn net.Conn, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{conn: conn, timeout: timeout}
}

// Get returns a provider's serialized state. A non-empty request is
// passed to the provider's request-driven serializer.
func (c *Client) Get(id provider.ID, request []byte) ([]byte, error) {
	return c.roundTrip(Frame{Type: GetRequest, ProviderID: uint8(id), Payload: request}, GetResponse)
}

// Set hands payload to the provider and returns its result.
func (c *Client) Set(id provider.ID, payload []byte) ([]byte, error) {
	return c.roundTrip(Frame{Type: SetRequest, ProviderID: uint8(id), Payload: payload}, SetResponse)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(request Frame, want FrameType) ([]byte, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if err := WriteFrame(c.conn, request); err != nil {
		return nil, fmt.Errorf("sending %s: %w", request.Type, err)
	}

	response, err := ReadFrame(c.conn, c.timeout, 0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("reading %s: %w", want, err)
	}
	if response.Type != want || response.ProviderID != request.ProviderID {
		return nil, &ProtocolError{Reason: fmt.Sprintf("expected %s for provider %d, got %s for provider %d",
			want, request.ProviderID, response.Type, response.ProviderID)}
	}
	return response.Payload, nil
}

// Watcher reads the notification stream.
type Watcher struct {
	conn net.Conn
}

// DialNotifications connects to the notification socket at path.
func DialNotifications(path string) (*Watcher, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	return NewWatcher(conn), nil
}

func NewWatcher(conn net.Conn) *Watcher {
	return &Watcher{conn: conn}
}

// Next blocks until the daemon pushes a notification. It returns
// ErrConnectionClosed when the daemon closes the stream, which is also
// how a refused connection looks.
func (w *Watcher) Next() (NotificationPayload, error) {
	frame, err := AwaitFrame(w.conn, DefaultReadTimeout, 0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NotificationPayload{}, ErrConnectionClosed
		}
		return NotificationPayload{}, err
	}
	return DecodeNotification(frame)
}

func (w *Watcher) Close() error {
	return w.conn.Close()
}
