// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/platformd/lib/uevent"
)

// fakeTransport is an in-memory kernel event source. Poll and Receive
// may be called from the notifier goroutine and the test goroutine, so
// every field is guarded.
type fakeTransport struct {
	mu        sync.Mutex
	queue     []uevent.Event
	filters   []string
	receiving bool
	broken    bool
	closed    bool
}

func (f *fakeTransport) AddSubsystemFilter(subsystem string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.filters, subsystem) {
		f.filters = append(f.filters, subsystem)
	}
	return nil
}

func (f *fakeTransport) EnableReceiving() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiving = true
	return nil
}

func (f *fakeTransport) Receive() (*uevent.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken || f.closed {
		return nil, errors.New("fake transport: receive on broken socket")
	}
	if !f.receiving || len(f.queue) == 0 {
		return nil, nil
	}
	event := f.queue[0]
	f.queue = f.queue[1:]
	if !slices.Contains(f.filters, event.Subsystem) {
		return nil, nil
	}
	return &event, nil
}

func (f *fakeTransport) Poll(timeout time.Duration) (uevent.PollStatus, error) {
	f.mu.Lock()
	status := uevent.PollStatus{
		Readable: f.receiving && len(f.queue) > 0,
		HangUp:   f.broken,
		Invalid:  f.closed,
	}
	f.mu.Unlock()
	if !status.Ready() && timeout != 0 {
		// Keep idle notifier goroutines from spinning.
		time.Sleep(min(max(timeout, 0), 2*time.Millisecond))
	}
	return status, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) inject(events ...uevent.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, events...)
}

func (f *fakeTransport) breakTransport() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = true
}

func (f *fakeTransport) registeredFilters() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.filters)
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// transportFactory hands out fakeTransports and remembers them.
type transportFactory struct {
	mu      sync.Mutex
	created []*fakeTransport
	fail    error
}

func (f *transportFactory) New() (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	transport := &fakeTransport{}
	f.created = append(f.created, transport)
	return transport, nil
}

func (f *transportFactory) latest(t *testing.T) *fakeTransport {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		t.Fatal("no transport created")
	}
	return f.created[len(f.created)-1]
}

func (f *transportFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
