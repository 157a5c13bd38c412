// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/platformd/lib/clock"
)

// ErrClientPointer is returned when a session is constructed without a
// connection.
var ErrClientPointer = errors.New("ipc: session requires a client connection")

// SessionState is a session's position in its one-way lifecycle.
type SessionState int32

const (
	SessionCreated SessionState = iota
	SessionStarted
	SessionStopped
)

func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionStarted:
		return "started"
	case SessionStopped:
		return "stopped"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// Session is what a Slot holds.
type Session interface {
	ID() string
	State() SessionState
	Stop()
}

// SessionEvent is posted by a session's reader to the event loop.
// Exactly one of Frame and Err is set. Err is io.EOF when the peer
// closed cleanly; after an Err event the reader has exited.
type SessionEvent struct {
	Session Session
	Frame   *Frame
	Err     error
}

// Options configures a session. Zero values take defaults.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxPayload   uint64
	Logger       *slog.Logger
	Clock        clock.Clock
}

// DefaultWriteTimeout bounds every frame write.
const DefaultWriteTimeout = 5 * time.Second

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.MaxPayload == 0 || o.MaxPayload > MaxPayloadLength {
		o.MaxPayload = MaxPayloadLength
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}

// connection is the lifecycle shared by both session kinds: an id, a
// state, one reader goroutine, and close-then-drain shutdown.
type connection struct {
	id      string
	conn    net.Conn
	options Options
	logger  *slog.Logger

	state    atomic.Int32
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newConnection(conn net.Conn, kind string, options Options) (*connection, error) {
	if conn == nil {
		return nil, ErrClientPointer
	}
	options = options.withDefaults()
	id := uuid.NewString()
	return &connection{
		id:      id,
		conn:    conn,
		options: options,
		logger:  options.Logger.With("session", id, "channel", kind),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func (c *connection) ID() string { return c.id }

func (c *connection) State() SessionState {
	return SessionState(c.state.Load())
}

// start moves Created to Started and runs read on its own goroutine.
// It reports false if the session was not in Created.
func (c *connection) start(read func()) bool {
	if !c.state.CompareAndSwap(int32(SessionCreated), int32(SessionStarted)) {
		return false
	}
	go func() {
		defer close(c.done)
		read()
	}()
	c.logger.Info("session started")
	return true
}

// post delivers an event to the loop unless the session is stopping.
func (c *connection) post(events chan<- SessionEvent, event SessionEvent) bool {
	select {
	case events <- event:
		return true
	case <-c.stop:
		return false
	}
}

// Stop closes the socket and waits for the reader to exit. The state
// becomes Stopped whatever it was. Safe to call more than once.
func (c *connection) Stop() {
	c.stopOnce.Do(func() {
		previous := SessionState(c.state.Swap(int32(SessionStopped)))
		close(c.stop)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("closing session socket", "error", err)
		}
		if previous == SessionStarted {
			<-c.done
		}
		c.logger.Info("session stopped")
	})
}

// write sends one frame under the write deadline.
func (c *connection) write(frame Frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	return WriteFrame(c.conn, frame)
}
