// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uevent

import (
	"testing"
	"time"
)

func openOrSkip(t *testing.T) *Socket {
	t.Helper()
	socket, err := Open(0)
	if err != nil {
		t.Skipf("netlink uevent sockets unavailable here: %v", err)
	}
	t.Cleanup(func() { socket.Close() })
	return socket
}

func TestSocketNotReceivingUntilEnabled(t *testing.T) {
	socket := openOrSkip(t)
	event, err := socket.Receive()
	if err != nil || event != nil {
		t.Errorf("Receive before EnableReceiving = (%v, %v), want (nil, nil)", event, err)
	}
}

func TestSocketPollHealthy(t *testing.T) {
	socket := openOrSkip(t)
	if err := socket.AddSubsystemFilter("module"); err != nil {
		t.Fatalf("AddSubsystemFilter: %v", err)
	}
	if err := socket.AddSubsystemFilter("module"); err != nil {
		t.Fatalf("duplicate AddSubsystemFilter: %v", err)
	}
	if err := socket.EnableReceiving(); err != nil {
		t.Skipf("binding to the uevent group is not permitted here: %v", err)
	}

	status, err := socket.Poll(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if status.Failed() {
		t.Errorf("fresh socket polls as failed: %+v", status)
	}
}

func TestSocketClosedPollsInvalid(t *testing.T) {
	socket := openOrSkip(t)
	if err := socket.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := socket.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	status, err := socket.Poll(0)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !status.Invalid {
		t.Errorf("closed socket status = %+v, want Invalid", status)
	}
	if err := socket.AddSubsystemFilter("module"); err == nil {
		t.Error("AddSubsystemFilter on closed socket succeeded")
	}
}
