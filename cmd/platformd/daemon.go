// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/platformd/lib/clock"
	"github.com/bureau-foundation/platformd/lib/config"
	"github.com/bureau-foundation/platformd/lib/driver"
	"github.com/bureau-foundation/platformd/lib/hwinfo"
	"github.com/bureau-foundation/platformd/lib/ipc"
	"github.com/bureau-foundation/platformd/lib/provider"
	"github.com/bureau-foundation/platformd/lib/sysfs"
)

// sessionEventBuffer is the capacity of the channel session readers
// post to. Readers block when it is full, which throttles clients that
// pipeline requests faster than the loop answers them.
const sessionEventBuffer = 16

// Dependencies are the daemon's injectable collaborators.
type Dependencies struct {
	Logger    *slog.Logger
	Transport driver.TransportFactory
	Clock     clock.Clock
}

// Daemon owns the driver and provider registries and the two client
// channels. All of its state is touched only from Run's goroutine,
// except ready, which Run closes once both sockets listen.
type Daemon struct {
	config *config.Config
	logger *slog.Logger
	clock  clock.Clock

	drivers   *driver.Registry
	providers *provider.Registry

	requestSlot ipc.Slot
	notifySlot  ipc.Slot

	sessionEvents chan ipc.SessionEvent

	ready     chan struct{}
	readyOnce sync.Once
}

// NewDaemon builds the registries from cfg: one sysfs driver per
// declared driver, the platform provider when enabled, and one sysfs
// provider per declared provider. Nothing is probed until Run.
func NewDaemon(cfg *config.Config, deps Dependencies) (*Daemon, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Transport == nil {
		return nil, errors.New("daemon: kernel event transport is required")
	}

	d := &Daemon{
		config:        cfg,
		logger:        deps.Logger,
		clock:         deps.Clock,
		drivers:       driver.NewRegistry(deps.Transport, deps.Logger.With("component", "drivers")),
		providers:     provider.NewRegistry(deps.Logger.With("component", "providers")),
		sessionEvents: make(chan ipc.SessionEvent, sessionEventBuffer),
		ready:         make(chan struct{}),
	}
	d.drivers.SetPollInterval(cfg.KernelEvents.PollInterval)

	specs := make(map[string]sysfs.Spec, len(cfg.Drivers))
	for _, declared := range cfg.Drivers {
		spec := sysfs.Spec(declared)
		sysfsDriver, err := sysfs.NewDriver(spec)
		if err != nil {
			return nil, fmt.Errorf("driver %q: %w", declared.Name, err)
		}
		if err := d.drivers.AddDriver(sysfsDriver); err != nil {
			return nil, err
		}
		specs[spec.Name] = spec
	}

	if cfg.Platform.Enabled {
		platform := hwinfo.NewProvider(deps.Logger.With("provider", "platform"))
		if err := d.providers.AddDataProvider(provider.ID(cfg.Platform.ProviderID), platform); err != nil {
			return nil, fmt.Errorf("platform provider: %w", err)
		}
	}
	for _, declared := range cfg.Providers {
		spec, ok := specs[declared.Driver]
		if !ok {
			return nil, fmt.Errorf("provider %d: unknown driver %q", declared.ID, declared.Driver)
		}
		sysfsProvider := sysfs.NewProvider(d.drivers, spec, sysfs.ProviderOptions{
			Settle: declared.Settle,
			Logger: deps.Logger.With("provider", provider.ID(declared.ID).String(), "driver", declared.Driver),
		})
		if err := d.providers.AddDataProvider(provider.ID(declared.ID), sysfsProvider); err != nil {
			return nil, err
		}
	}

	// Providers see events before the client does, so a notified client
	// that immediately issues a GET reads post-event state.
	d.drivers.SubscribeEvents(d.providers.HandleDriverEvent)
	d.drivers.SubscribeModuleEvents(d.providers.HandleModuleEvent)
	d.drivers.SubscribeEvents(d.notifyDriverEvent)
	d.drivers.SubscribeModuleEvents(d.notifyModuleEvent)
	return d, nil
}

// Ready is closed once both sockets accept connections.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Run probes the hardware, opens both sockets and serves until ctx is
// cancelled. It returns nil on cancellation; any other return is fatal:
// the kernel event source broke and could not be reopened, or a socket
// could not be created.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.drivers.InitDrivers(); err != nil {
		return fmt.Errorf("initializing drivers: %w", err)
	}
	defer d.drivers.CleanDrivers()

	// Events raised while probing describe state the probe already saw.
	if err := d.drivers.Process(d.config.KernelEvents.DrainTimeout); err != nil {
		return fmt.Errorf("draining startup events: %w", err)
	}

	d.providers.InitAll()
	defer d.providers.CleanAll()

	if err := d.config.EnsureRuntimeDir(); err != nil {
		return err
	}
	requestListener, err := ipc.Listen(d.config.RequestSocket)
	if err != nil {
		return err
	}
	defer requestListener.Close()
	notifyListener, err := ipc.Listen(d.config.NotifySocket)
	if err != nil {
		return err
	}
	defer notifyListener.Close()

	acceptCtx, cancelAccept := context.WithCancel(ctx)
	var acceptors sync.WaitGroup
	requestConns := make(chan net.Conn)
	notifyConns := make(chan net.Conn)
	acceptors.Go(func() {
		ipc.AcceptLoop(acceptCtx, requestListener, requestConns, d.logger.With("socket", "request"))
	})
	acceptors.Go(func() {
		ipc.AcceptLoop(acceptCtx, notifyListener, notifyConns, d.logger.With("socket", "notify"))
	})
	defer func() {
		cancelAccept()
		acceptors.Wait()
	}()
	defer d.stopSessions()

	d.logger.Info("platformd ready",
		"request_socket", d.config.RequestSocket,
		"notify_socket", d.config.NotifySocket,
		"drivers", d.drivers.Names(),
		"providers", d.providers.Len(),
	)
	d.readyOnce.Do(func() { close(d.ready) })

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down")
			return nil

		case <-d.drivers.Readable():
			if err := d.drivers.Dispatch(); err != nil {
				return fmt.Errorf("kernel event source failed: %w", err)
			}

		case conn := <-requestConns:
			d.acceptRequest(conn)

		case conn := <-notifyConns:
			d.acceptNotify(conn)

		case event := <-d.sessionEvents:
			d.handleSessionEvent(event)
		}
	}
}

func (d *Daemon) sessionOptions() ipc.Options {
	return ipc.Options{
		ReadTimeout:  d.config.IPC.ReadTimeout,
		WriteTimeout: d.config.IPC.WriteTimeout,
		MaxPayload:   d.config.IPC.MaxPayload,
		Logger:       d.logger,
		Clock:        d.clock,
	}
}

// acceptRequest admits conn as the request client, or closes it when a
// client already holds the channel.
func (d *Daemon) acceptRequest(conn net.Conn) {
	if d.requestSlot.Occupied() {
		d.logger.Warn("refusing request connection: channel in use")
		conn.Close()
		return
	}
	session, err := ipc.NewRequestSession(conn, d.providers, d.sessionOptions())
	if err != nil {
		d.logger.Error("creating request session", "error", err)
		conn.Close()
		return
	}
	if err := d.requestSlot.Take(session); err != nil {
		session.Stop()
		return
	}
	session.Start(d.sessionEvents)
	d.logger.Info("request client connected", "session", session.ID())
}

func (d *Daemon) acceptNotify(conn net.Conn) {
	if d.notifySlot.Occupied() {
		d.logger.Warn("refusing notification connection: channel in use")
		conn.Close()
		return
	}
	session, err := ipc.NewNotificationSession(conn, d.sessionOptions())
	if err != nil {
		d.logger.Error("creating notification session", "error", err)
		conn.Close()
		return
	}
	if err := d.notifySlot.Take(session); err != nil {
		session.Stop()
		return
	}
	session.Start(d.sessionEvents)
	d.logger.Info("notification client connected", "session", session.ID())
}

// handleSessionEvent answers a request frame or retires a session whose
// reader failed. Events from sessions already stopped are ignored.
func (d *Daemon) handleSessionEvent(event ipc.SessionEvent) {
	if event.Session.State() != ipc.SessionStarted {
		return
	}

	if event.Frame != nil {
		session, ok := event.Session.(*ipc.RequestSession)
		if !ok {
			return
		}
		if err := session.Handle(*event.Frame); err != nil {
			level := slog.LevelWarn
			if driver.IsNotAvailable(err) || errors.Is(err, provider.ErrDataProviderNotFound) {
				level = slog.LevelInfo
			}
			d.logger.Log(context.Background(), level, "request failed, dropping client",
				"session", session.ID(),
				"frame", event.Frame.Type.String(),
				"provider", provider.ID(event.Frame.ProviderID).String(),
				"error", err,
			)
			d.stopSession(session)
		}
		return
	}

	if ipc.IsHangUp(event.Err) {
		d.logger.Info("client disconnected", "session", event.Session.ID())
	} else {
		d.logger.Warn("client session failed", "session", event.Session.ID(), "error", event.Err)
	}
	d.stopSession(event.Session)
}

func (d *Daemon) stopSession(session ipc.Session) {
	session.Stop()
	if !d.requestSlot.Release(session) {
		d.notifySlot.Release(session)
	}
}

func (d *Daemon) stopSessions() {
	for _, slot := range []*ipc.Slot{&d.requestSlot, &d.notifySlot} {
		if session := slot.Session(); session != nil {
			d.stopSession(session)
		}
	}
}

func (d *Daemon) notificationSession() *ipc.NotificationSession {
	session, _ := d.notifySlot.Session().(*ipc.NotificationSession)
	if session == nil || session.State() != ipc.SessionStarted {
		return nil
	}
	return session
}

func (d *Daemon) notifyDriverEvent(event driver.Event) {
	session := d.notificationSession()
	if session == nil {
		return
	}
	if err := session.NotifyDriverEvent(event); err != nil {
		d.logger.Warn("notification failed, dropping client", "session", session.ID(), "error", err)
		d.stopSession(session)
	}
}

func (d *Daemon) notifyModuleEvent(event driver.ModuleEvent) {
	session := d.notificationSession()
	if session == nil {
		return
	}
	if err := session.NotifyModuleEvent(event); err != nil {
		d.logger.Warn("notification failed, dropping client", "session", session.ID(), "error", err)
		d.stopSession(session)
	}
}
