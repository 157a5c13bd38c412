// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uevent

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// kernelGroup is the netlink multicast group the kernel broadcasts raw
// uevents on. Group 2 carries udevd's processed rebroadcasts.
const kernelGroup = 1

// maxMessageSize bounds a single datagram. The kernel caps a uevent
// environment at UEVENT_BUFFER_SIZE (2048) bytes; the header and
// padding fit comfortably in the rest.
const maxMessageSize = 8192

// DefaultReceiveBuffer is the socket receive buffer requested when the
// caller does not choose one. A module load can burst hundreds of
// uevents; the default rmem would drop most of them.
const DefaultReceiveBuffer = 1 << 20

// ErrOverrun is returned by Receive when the kernel dropped events
// because the receive buffer filled. The socket stays usable.
var ErrOverrun = errors.New("uevent: receive buffer overrun, events lost")

// Socket is a NETLINK_KOBJECT_UEVENT transport. It is not safe for
// concurrent Receive calls, but Poll may run concurrently with Receive.
type Socket struct {
	fd         int
	subsystems map[string]struct{}
	receiving  bool
}

// Open creates a non-blocking uevent socket. Events are not delivered
// until EnableReceiving binds it to the kernel multicast group, so
// filters can be installed first.
func Open(receiveBuffer int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("uevent: creating netlink socket: %w", err)
	}

	if receiveBuffer <= 0 {
		receiveBuffer = DefaultReceiveBuffer
	}
	// SO_RCVBUFFORCE ignores rmem_max but needs CAP_NET_ADMIN; fall
	// back to the capped request when unprivileged.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, receiveBuffer); err != nil {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, receiveBuffer)
	}

	return &Socket{fd: fd, subsystems: make(map[string]struct{})}, nil
}

// AddSubsystemFilter restricts delivery to events from subsystem. With
// no filter installed every event passes. Adding the same subsystem
// twice is harmless.
func (s *Socket) AddSubsystemFilter(subsystem string) error {
	if s.fd < 0 {
		return errors.New("uevent: socket closed")
	}
	if subsystem == "" {
		return errors.New("uevent: empty subsystem filter")
	}
	s.subsystems[subsystem] = struct{}{}
	return nil
}

// EnableReceiving binds the socket to the kernel uevent group.
func (s *Socket) EnableReceiving() error {
	if s.fd < 0 {
		return errors.New("uevent: socket closed")
	}
	if s.receiving {
		return nil
	}
	address := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: kernelGroup}
	if err := unix.Bind(s.fd, address); err != nil {
		return fmt.Errorf("uevent: binding to kernel group: %w", err)
	}
	s.receiving = true
	return nil
}

// Receive reads one pending event without blocking. It returns a nil
// event and nil error when nothing is pending, when the datagram came
// from userspace rather than the kernel, or when the subsystem is
// filtered out.
func (s *Socket) Receive() (*Event, error) {
	if !s.receiving {
		return nil, nil
	}

	buffer := make([]byte, maxMessageSize)
	count, from, err := unix.Recvfrom(s.fd, buffer, unix.MSG_DONTWAIT)
	if err != nil {
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			return nil, nil
		case errors.Is(err, unix.ENOBUFS):
			return nil, ErrOverrun
		}
		return nil, fmt.Errorf("uevent: recvfrom: %w", err)
	}
	if count <= 0 {
		return nil, nil
	}

	// Anyone may send to a netlink multicast group from userspace;
	// only port id 0 is the kernel.
	sender, ok := from.(*unix.SockaddrNetlink)
	if !ok || sender.Pid != 0 {
		return nil, nil
	}

	event, err := Parse(buffer[:count])
	if err != nil {
		return nil, err
	}
	if len(s.subsystems) > 0 {
		if _, wanted := s.subsystems[event.Subsystem]; !wanted {
			return nil, nil
		}
	}
	return &event, nil
}

// Poll waits up to timeout for the socket to become readable or fail.
// An interrupted wait reports nothing ready.
func (s *Socket) Poll(timeout time.Duration) (PollStatus, error) {
	if s.fd < 0 {
		return PollStatus{Invalid: true}, nil
	}

	milliseconds := -1
	if timeout >= 0 {
		milliseconds = int(timeout / time.Millisecond)
	}
	descriptors := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	count, err := unix.Poll(descriptors, milliseconds)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return PollStatus{}, nil
		}
		return PollStatus{}, fmt.Errorf("uevent: poll: %w", err)
	}
	if count == 0 {
		return PollStatus{}, nil
	}

	revents := descriptors[0].Revents
	return PollStatus{
		Readable: revents&unix.POLLIN != 0,
		Error:    revents&unix.POLLERR != 0,
		HangUp:   revents&unix.POLLHUP != 0,
		Invalid:  revents&unix.POLLNVAL != 0,
	}, nil
}

// Close releases the descriptor. Safe to call more than once.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	s.receiving = false
	return err
}
