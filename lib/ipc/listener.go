// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// ListenBacklog is the kernel accept queue length for both sockets.
const ListenBacklog = 1

// Listen creates a world-accessible Unix stream socket at path with a
// backlog of ListenBacklog, replacing any stale socket file. Closing
// the listener removes the file.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("creating socket for %s: %w", path, err)
	}
	file := os.NewFile(uintptr(fd), path)
	defer file.Close()

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		return nil, fmt.Errorf("binding %s: %w", path, err)
	}
	if err := unix.Listen(fd, ListenBacklog); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("setting permissions on %s: %w", path, err)
	}

	// FileListener dups the descriptor; the deferred Close releases ours.
	listener, err := net.FileListener(file)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("wrapping listener for %s: %w", path, err)
	}
	return &socketListener{Listener: listener, path: path}, nil
}

type socketListener struct {
	net.Listener
	path string
}

func (l *socketListener) Close() error {
	err := l.Listener.Close()
	if removeErr := os.Remove(l.path); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}
	return err
}

// AcceptLoop accepts connections and hands them to out until ctx is
// cancelled or the listener is closed. Cancellation closes the
// listener. Connections that cannot be delivered because ctx ended are
// closed.
func AcceptLoop(ctx context.Context, listener net.Listener, out chan<- net.Conn, logger *slog.Logger) {
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("accept failed", "address", listener.Addr().String(), "error", err)
			continue
		}
		select {
		case out <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}
