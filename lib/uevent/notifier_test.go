// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uevent

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/platformd/lib/testutil"
)

// scriptedPoller reports whatever status it was last given.
type scriptedPoller struct {
	mu     sync.Mutex
	status PollStatus
	err    error
}

func (p *scriptedPoller) set(status PollStatus, err error) {
	p.mu.Lock()
	p.status, p.err = status, err
	p.mu.Unlock()
}

func (p *scriptedPoller) Poll(timeout time.Duration) (PollStatus, error) {
	p.mu.Lock()
	status, err := p.status, p.err
	p.mu.Unlock()
	if !status.Ready() && err == nil {
		time.Sleep(time.Millisecond)
	}
	return status, err
}

func TestNotifierSignalsOncePerRearm(t *testing.T) {
	poller := &scriptedPoller{}
	output := make(chan struct{})
	notifier := StartNotifier(poller, output, 5*time.Millisecond)
	defer notifier.Stop()

	testutil.RequireNoReceive(t, output, 30*time.Millisecond, "idle poller must not signal")

	poller.set(PollStatus{Readable: true}, nil)
	testutil.RequireReceive(t, output, 5*time.Second, "readable poller")

	// Still readable, but not rearmed: no second signal.
	testutil.RequireNoReceive(t, output, 30*time.Millisecond, "signal without rearm")

	notifier.Rearm()
	testutil.RequireReceive(t, output, 5*time.Second, "signal after rearm")
}

func TestNotifierReportsPollFailure(t *testing.T) {
	poller := &scriptedPoller{}
	poller.set(PollStatus{}, errors.New("EBADF"))
	output := make(chan struct{})
	notifier := StartNotifier(poller, output, 5*time.Millisecond)
	defer notifier.Stop()

	testutil.RequireReceive(t, output, 5*time.Second, "failing poller must signal")
}

func TestNotifierStopWhileBlockedOnSend(t *testing.T) {
	poller := &scriptedPoller{}
	poller.set(PollStatus{HangUp: true}, nil)
	output := make(chan struct{})
	notifier := StartNotifier(poller, output, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		notifier.Stop()
		notifier.Stop()
		close(stopped)
	}()
	testutil.RequireClosed(t, stopped, 5*time.Second, "Stop must not wait for a reader")
}

func TestPollStatus(t *testing.T) {
	if (PollStatus{}).Ready() {
		t.Error("zero status is ready")
	}
	if !(PollStatus{Readable: true}).Ready() || (PollStatus{Readable: true}).Failed() {
		t.Error("readable status misreported")
	}
	for _, status := range []PollStatus{{Error: true}, {HangUp: true}, {Invalid: true}} {
		if !status.Failed() || !status.Ready() {
			t.Errorf("%+v: Failed=%v Ready=%v, want both true", status, status.Failed(), status.Ready())
		}
	}
}
