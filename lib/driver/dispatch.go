// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/platformd/lib/uevent"
)

// Readable delivers a value each time the kernel transport needs
// attention. The channel survives reconnection. After each receive the
// event loop must call Dispatch, which re-arms the notifier.
func (r *Registry) Readable() <-chan struct{} {
	return r.readable
}

// Dispatch handles one readiness signal: it reads one event and routes
// it, or, if nothing was there, checks whether the transport broke and
// reconnects. Only a failed reconnection is returned.
func (r *Registry) Dispatch() error {
	if r.transport == nil {
		return nil
	}
	notifier := r.notifier
	defer func() {
		// After a reconnection the old notifier is gone and the new one
		// starts armed.
		if r.notifier == notifier && notifier != nil {
			notifier.Rearm()
		}
	}()
	return r.dispatchOne()
}

// Process drains pending kernel events synchronously. Each iteration
// polls the transport for up to timeout: a timeout ends the drain, an
// error or hangup triggers reconnection and ends it, and a readable
// transport has one event dispatched. Callers performing a multi-step
// hardware change use it to wait for the resulting uevent
// deterministically.
func (r *Registry) Process(timeout time.Duration) error {
	if r.transport == nil {
		return nil
	}
	for {
		status, err := r.transport.Poll(timeout)
		if err != nil || status.Failed() {
			r.logger.Warn("kernel event transport failed while draining",
				"status", fmt.Sprintf("%+v", status),
				"error", err,
			)
			return r.Reconnect()
		}
		if !status.Readable {
			return nil
		}
		if err := r.dispatchOne(); err != nil {
			return err
		}
	}
}

func (r *Registry) dispatchOne() error {
	event, receiveErr := r.transport.Receive()
	if event != nil {
		r.deliver(*event)
		return nil
	}

	// No event: either nothing was pending or the transport is dead.
	status, pollErr := r.transport.Poll(0)
	if pollErr != nil || status.Failed() {
		r.logger.Warn("kernel event transport failed",
			"status", fmt.Sprintf("%+v", status),
			"receive_error", receiveErr,
			"poll_error", pollErr,
		)
		return r.Reconnect()
	}
	if receiveErr != nil {
		r.logger.Warn("dropping unreadable kernel event", "error", receiveErr)
	}
	return nil
}

// Reconnect replaces the transport and notifier with fresh ones and
// re-registers the module filter and every driver filter. A failure
// leaves the registry without a transport and is returned; the daemon
// cannot recover from it.
func (r *Registry) Reconnect() error {
	r.disconnect()

	transport, err := r.connect()
	if err != nil {
		return fmt.Errorf("reconnecting kernel event monitor: %w", err)
	}
	r.transport = transport
	r.notifier = uevent.StartNotifier(transport, r.readable, r.pollInterval)
	r.logger.Info("kernel event monitor reconnected", "drivers", len(r.order))
	return nil
}

// connect builds a receiving transport with all filters registered.
func (r *Registry) connect() (Transport, error) {
	transport, err := r.newTransport()
	if err != nil {
		return nil, err
	}

	subsystems := []string{uevent.ModuleSubsystem}
	for _, name := range r.order {
		if subsystem := r.drivers[name].Filter().Subsystem; subsystem != "" {
			subsystems = append(subsystems, subsystem)
		}
	}
	for _, subsystem := range subsystems {
		if err := transport.AddSubsystemFilter(subsystem); err != nil {
			transport.Close()
			return nil, fmt.Errorf("adding %q filter: %w", subsystem, err)
		}
	}
	if err := transport.EnableReceiving(); err != nil {
		transport.Close()
		return nil, fmt.Errorf("enabling receiving: %w", err)
	}
	return transport, nil
}

// disconnect stops the notifier (waiting for its goroutine) before
// closing the transport it polls.
func (r *Registry) disconnect() {
	if r.notifier != nil {
		r.notifier.Stop()
		r.notifier = nil
	}
	if r.transport != nil {
		if err := r.transport.Close(); err != nil {
			r.logger.Debug("closing kernel event transport", "error", err)
		}
		r.transport = nil
	}
}

func (r *Registry) deliver(event uevent.Event) {
	if event.Subsystem == uevent.ModuleSubsystem {
		r.handleModuleEvent(event)
		return
	}

	for _, name := range r.order {
		driver := r.drivers[name]
		filter := driver.Filter()
		if filter.Subsystem != event.Subsystem {
			continue
		}
		if driver.KernelEventBlocked() {
			r.logger.Debug("kernel event blocked", "driver", name, "action", event.Action)
			continue
		}
		r.handle(driver, event.Scoped(filter.WatchedProperties))
	}
}

// handle runs one driver's handler. Errors and panics are logged and
// contained so the remaining drivers still see the event.
func (r *Registry) handle(driver Driver, event uevent.Event) {
	name := driver.Name()
	r.handling, r.emitted = name, false
	defer func() {
		r.handling, r.emitted = "", false
		if recovered := recover(); recovered != nil {
			r.logger.Error("driver panicked handling kernel event",
				"error", &HandlerError{Driver: name, Err: fmt.Errorf("panic: %v", recovered)},
				"action", event.Action,
				"subsystem", event.Subsystem,
			)
		}
	}()

	if err := driver.HandleKernelEvent(event); err != nil {
		r.logger.Warn("driver failed to handle kernel event",
			"error", &HandlerError{Driver: name, Err: err},
			"action", event.Action,
			"subsystem", event.Subsystem,
		)
	}
}

// handleModuleEvent re-probes (add) or cleans (remove) every driver
// grouped under the module, then emits one ModuleEvent.
func (r *Registry) handleModuleEvent(event uevent.Event) {
	var kind ModuleEventKind
	switch event.Action {
	case uevent.ActionAdd:
		kind = ModuleAdded
	case uevent.ActionRemove:
		kind = ModuleRemoved
	default:
		return
	}

	affected := 0
	for _, name := range r.order {
		driver := r.drivers[name]
		if driver.Module() != event.SysName {
			continue
		}
		affected++
		if kind == ModuleAdded {
			// Failures are logged by load; the driver stays unloaded.
			_ = r.load(driver)
		} else {
			driver.Clean()
		}
	}
	if affected == 0 {
		return
	}
	r.publishModuleEvent(ModuleEvent{Module: event.SysName, Kind: kind})
}
