// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uevent

import (
	"sync"
	"time"
)

// DefaultPollInterval bounds how long the notifier goroutine sits in
// poll(2) before checking for Stop.
const DefaultPollInterval = 100 * time.Millisecond

// Notifier watches a Poller and sends on its output channel each time
// the transport needs attention. After every send it waits for Rearm,
// so an unread event does not make it spin.
type Notifier struct {
	poller   Poller
	output   chan<- struct{}
	interval time.Duration

	rearm    chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartNotifier starts watching poller. output should be unbuffered so
// that a stopped notifier never leaves a stale signal behind.
func StartNotifier(poller Poller, output chan<- struct{}, interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	notifier := &Notifier{
		poller:   poller,
		output:   output,
		interval: interval,
		rearm:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go notifier.loop()
	return notifier
}

func (n *Notifier) loop() {
	defer close(n.done)
	for {
		select {
		case <-n.stop:
			return
		default:
		}

		status, err := n.poller.Poll(n.interval)
		if err != nil {
			// A poller that cannot poll is as broken as one reporting
			// POLLERR; let the consumer find out and rebuild it.
			status = PollStatus{Error: true}
		}
		if !status.Ready() {
			continue
		}

		select {
		case n.output <- struct{}{}:
		case <-n.stop:
			return
		}
		select {
		case <-n.rearm:
		case <-n.stop:
			return
		}
	}
}

// Rearm lets the notifier resume polling after a signal was consumed.
func (n *Notifier) Rearm() {
	select {
	case n.rearm <- struct{}{}:
	default:
	}
}

// Stop ends the goroutine and waits for it to exit. Safe to call more
// than once.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() { close(n.stop) })
	<-n.done
}
