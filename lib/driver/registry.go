// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/platformd/lib/uevent"
)

// Transport is a kernel uevent source. *uevent.Socket is the production
// implementation.
type Transport interface {
	uevent.Poller
	AddSubsystemFilter(subsystem string) error
	EnableReceiving() error
	// Receive returns one pending event without blocking, or nil when
	// none is pending.
	Receive() (*uevent.Event, error)
	Close() error
}

// TransportFactory creates a fresh, not yet receiving Transport. The
// registry calls it at InitDrivers and again on every reconnection.
type TransportFactory func() (Transport, error)

// NetlinkTransport returns a factory for NETLINK_KOBJECT_UEVENT sockets.
func NetlinkTransport(receiveBuffer int) TransportFactory {
	return func() (Transport, error) {
		socket, err := uevent.Open(receiveBuffer)
		if err != nil {
			return nil, err
		}
		return socket, nil
	}
}

// Registry owns all drivers and the kernel event transport. See the
// package documentation for the lifecycle.
type Registry struct {
	drivers map[string]Driver
	// order is registration order; dispatch and initialization follow
	// it so behavior is reproducible.
	order []string

	newTransport TransportFactory
	pollInterval time.Duration
	logger       *slog.Logger

	transport   Transport
	notifier    *uevent.Notifier
	readable    chan struct{}
	initialized bool

	eventSubscribers  []func(Event)
	moduleSubscribers []func(ModuleEvent)

	// handling names the driver whose HandleKernelEvent is running;
	// emitted records whether it has already emitted during that call.
	handling string
	emitted  bool
}

// NewRegistry returns an empty registry that will build its transport
// with newTransport.
func NewRegistry(newTransport TransportFactory, logger *slog.Logger) *Registry {
	return &Registry{
		drivers:      make(map[string]Driver),
		newTransport: newTransport,
		pollInterval: uevent.DefaultPollInterval,
		logger:       logger,
		readable:     make(chan struct{}),
	}
}

// SetPollInterval sets how long the readiness notifier sits in each
// poll(2). Takes effect at the next (re)connection.
func (r *Registry) SetPollInterval(interval time.Duration) {
	r.pollInterval = interval
}

// AddDriver registers a driver. It fails if the name is taken or the
// registry is already initialized.
func (r *Registry) AddDriver(driver Driver) error {
	if r.initialized {
		return fmt.Errorf("adding %q: %w", driver.Name(), ErrRegistryStarted)
	}
	name := driver.Name()
	if _, exists := r.drivers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDriverAlreadyLoaded, name)
	}
	r.drivers[name] = driver
	r.order = append(r.order, name)
	return nil
}

// Names returns the registered driver names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// SubscribeEvents adds a receiver for normalized driver events.
// Subscribers run synchronously, in subscription order, on the event
// loop goroutine.
func (r *Registry) SubscribeEvents(subscriber func(Event)) {
	r.eventSubscribers = append(r.eventSubscribers, subscriber)
}

// SubscribeModuleEvents adds a receiver for module add/remove events.
func (r *Registry) SubscribeModuleEvents(subscriber func(ModuleEvent)) {
	r.moduleSubscribers = append(r.moduleSubscribers, subscriber)
}

// InitDrivers probes every driver and connects the kernel transport.
// A driver that fails to probe or validate is left unloaded and logged;
// it does not stop its siblings. Failing to connect the transport is
// returned: at startup that is fatal.
func (r *Registry) InitDrivers() error {
	if r.initialized {
		return ErrRegistryStarted
	}

	for _, name := range r.order {
		driver := r.drivers[name]
		r.load(driver)
		driver.SetEmitter(r.emitterFor(name))
	}

	transport, err := r.connect()
	if err != nil {
		return fmt.Errorf("connecting kernel event monitor: %w", err)
	}
	r.transport = transport
	r.notifier = uevent.StartNotifier(transport, r.readable, r.pollInterval)
	r.initialized = true

	r.logger.Info("drivers initialized",
		"registered", len(r.order),
		"loaded", r.loadedCount(),
	)
	return nil
}

// CleanDrivers cleans every driver, releases them, and closes the
// transport. The registry is empty afterwards.
func (r *Registry) CleanDrivers() {
	for _, name := range r.order {
		r.drivers[name].Clean()
	}
	r.disconnect()
	r.drivers = make(map[string]Driver)
	r.order = nil
	r.initialized = false
}

// RefreshDriver re-probes and re-validates one driver, for use after an
// action known to change what it exposes.
func (r *Registry) RefreshDriver(name string) error {
	driver, exists := r.drivers[name]
	if !exists {
		return fmt.Errorf("%w: %q", ErrDriverNotFound, name)
	}
	return r.load(driver)
}

// BlockKernelEvent suppresses (or resumes) kernel event delivery to one
// driver, typically around a multi-step operation that would otherwise
// make the driver react to its own side effects.
func (r *Registry) BlockKernelEvent(name string, blocked bool) error {
	driver, exists := r.drivers[name]
	if !exists {
		return fmt.Errorf("%w: %q", ErrDriverNotFound, name)
	}
	driver.BlockKernelEvent(blocked)
	return nil
}

// Descriptor returns the named driver's single-instance descriptor.
func (r *Registry) Descriptor(name string) (Descriptor, error) {
	driver, err := r.trusted(name)
	if err != nil {
		return nil, err
	}
	descriptor := driver.Descriptor()
	if len(descriptor) == 0 {
		return nil, fmt.Errorf("%w: %q has no single-instance descriptor", ErrDriverNotAvailable, name)
	}
	return descriptor, nil
}

// DescriptorVector returns the named driver's per-instance descriptors.
// Any empty instance makes the whole vector unavailable.
func (r *Registry) DescriptorVector(name string) (DescriptorVector, error) {
	driver, err := r.trusted(name)
	if err != nil {
		return nil, err
	}
	vector := driver.DescriptorVector()
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: %q has no per-instance descriptors", ErrDriverNotAvailable, name)
	}
	for index, descriptor := range vector {
		if len(descriptor) == 0 {
			return nil, fmt.Errorf("%w: %q instance %d is empty", ErrDriverNotAvailable, name, index)
		}
	}
	return vector, nil
}

// trusted looks up a loaded driver and revalidates it. A driver that
// fails validation is cleaned: the caller gets the ValidationError once,
// later callers get ErrDriverNotAvailable.
func (r *Registry) trusted(name string) (Driver, error) {
	driver, exists := r.drivers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrDriverNotFound, name)
	}
	if !driver.IsLoaded() {
		return nil, fmt.Errorf("%w: %q", ErrDriverNotAvailable, name)
	}
	if err := driver.Validate(); err != nil {
		driver.Clean()
		r.logger.Warn("driver lost its hardware", "driver", name, "error", err)
		return nil, err
	}
	return driver, nil
}

// load runs Init then Validate, leaving the driver clean on failure.
func (r *Registry) load(driver Driver) error {
	name := driver.Name()
	if err := driver.Init(); err != nil {
		driver.Clean()
		r.logger.Warn("driver probe failed", "driver", name, "error", err)
		return fmt.Errorf("initializing driver %q: %w", name, err)
	}
	if err := driver.Validate(); err != nil {
		driver.Clean()
		r.logger.Warn("driver failed validation", "driver", name, "error", err)
		return err
	}
	if driver.IsLoaded() {
		r.logger.Debug("driver loaded", "driver", name, "path", driver.Path())
	} else {
		r.logger.Debug("driver hardware not present", "driver", name, "path", driver.Path())
	}
	return nil
}

func (r *Registry) loadedCount() int {
	count := 0
	for _, driver := range r.drivers {
		if driver.IsLoaded() {
			count++
		}
	}
	return count
}

func (r *Registry) emitterFor(name string) func(Event) {
	return func(event Event) {
		event.Driver = name
		if r.handling == name {
			if r.emitted {
				r.logger.Warn("driver emitted more than one event for one kernel event, dropping",
					"driver", name,
					"kind", event.Kind.String(),
				)
				return
			}
			r.emitted = true
		}
		for _, subscriber := range r.eventSubscribers {
			subscriber(event)
		}
	}
}

func (r *Registry) publishModuleEvent(event ModuleEvent) {
	r.logger.Info("kernel module event", "module", event.Module, "kind", event.Kind.String())
	for _, subscriber := range r.moduleSubscribers {
		subscriber(event)
	}
}
