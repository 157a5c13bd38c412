// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// FrameType is the first header byte.
type FrameType uint8

const (
	GetRequest FrameType = iota
	SetRequest
	GetResponse
	SetResponse
	Notification
)

func (t FrameType) String() string {
	switch t {
	case GetRequest:
		return "get-request"
	case SetRequest:
		return "set-request"
	case GetResponse:
		return "get-response"
	case SetResponse:
		return "set-response"
	case Notification:
		return "notification"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// HeaderLength is the fixed size of a frame header: 1 byte type,
// 1 byte provider id, 8 bytes payload length in native byte order.
const HeaderLength = 10

// MaxPayloadLength bounds every payload regardless of configuration.
const MaxPayloadLength = 16 * 1024 * 1024

// NotificationProviderID is the provider id carried by notification
// frames.
const NotificationProviderID uint8 = 0xFF

// DefaultReadTimeout is how long each part of a frame may take to
// arrive once the previous part has.
const DefaultReadTimeout = time.Second

// ErrDataNotReady means a frame part did not fully arrive within the
// read timeout.
var ErrDataNotReady = errors.New("ipc: frame data not ready")

// ProtocolError reports a frame that can never be valid: an unknown
// type, an oversized payload, or a frame on a channel that accepts none.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "ipc: protocol error: " + e.Reason
}

// Frame is one protocol message.
type Frame struct {
	Type       FrameType
	ProviderID uint8
	Payload    []byte
}

// AppendFrame appends the encoding of frame to buffer.
func AppendFrame(buffer []byte, frame Frame) []byte {
	buffer = append(buffer, byte(frame.Type), frame.ProviderID)
	buffer = binary.NativeEndian.AppendUint64(buffer, uint64(len(frame.Payload)))
	return append(buffer, frame.Payload...)
}

// WriteFrame writes frame to w in a single Write call.
func WriteFrame(w io.Writer, frame Frame) error {
	if len(frame.Payload) > MaxPayloadLength {
		return &ProtocolError{Reason: fmt.Sprintf("payload length %d exceeds maximum %d", len(frame.Payload), MaxPayloadLength)}
	}
	if _, err := w.Write(AppendFrame(make([]byte, 0, HeaderLength+len(frame.Payload)), frame)); err != nil {
		return fmt.Errorf("writing %s frame: %w", frame.Type, err)
	}
	return nil
}

// DeadlineReader is a connection whose reads can be bounded.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// ReadFrame reads one frame. The header and the payload each get at
// most timeout to arrive in full; a part still short after that fails
// with ErrDataNotReady. The timeout is not extended while bytes trickle
// in. maxPayload of zero means MaxPayloadLength.
//
// io.EOF is returned only when the stream ends cleanly before the
// first header byte.
func ReadFrame(conn DeadlineReader, timeout time.Duration, maxPayload uint64) (Frame, error) {
	var header [HeaderLength]byte
	if err := readBounded(conn, header[:], timeout, "header"); err != nil {
		return Frame{}, err
	}
	return readPayload(conn, header, timeout, maxPayload)
}

// AwaitFrame blocks without a deadline until the first header byte
// arrives, then reads the rest of the frame as ReadFrame does. Session
// readers use it so an idle client is not timed out.
func AwaitFrame(conn DeadlineReader, timeout time.Duration, maxPayload uint64) (Frame, error) {
	var header [HeaderLength]byte
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return Frame{}, fmt.Errorf("clearing read deadline: %w", err)
	}
	if _, err := io.ReadFull(conn, header[:1]); err != nil {
		return Frame{}, err
	}
	if err := readBounded(conn, header[1:], timeout, "header"); err != nil {
		return Frame{}, unexpectedEOF(err)
	}
	return readPayload(conn, header, timeout, maxPayload)
}

func readPayload(conn DeadlineReader, header [HeaderLength]byte, timeout time.Duration, maxPayload uint64) (Frame, error) {
	if maxPayload == 0 || maxPayload > MaxPayloadLength {
		maxPayload = MaxPayloadLength
	}
	frame := Frame{Type: FrameType(header[0]), ProviderID: header[1]}
	if frame.Type > Notification {
		return Frame{}, &ProtocolError{Reason: fmt.Sprintf("unknown frame type %d", header[0])}
	}
	length := binary.NativeEndian.Uint64(header[2:])
	if length > maxPayload {
		return Frame{}, &ProtocolError{Reason: fmt.Sprintf("payload length %d exceeds maximum %d", length, maxPayload)}
	}

	frame.Payload = make([]byte, length)
	if length > 0 {
		if err := readBounded(conn, frame.Payload, timeout, "payload"); err != nil {
			return Frame{}, unexpectedEOF(err)
		}
	}
	return frame, nil
}

// readBounded fills buffer, waiting at most timeout overall.
func readBounded(conn DeadlineReader, buffer []byte, timeout time.Duration, part string) error {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	received, err := io.ReadFull(conn, buffer)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %s: %d of %d bytes after %v", ErrDataNotReady, part, received, len(buffer), timeout)
	case errors.Is(err, io.EOF) && received == 0:
		return io.EOF
	default:
		return fmt.Errorf("reading frame %s: %w", part, err)
	}
}

// unexpectedEOF converts a clean EOF in the middle of a frame.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
