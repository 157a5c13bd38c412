// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/bureau-foundation/platformd/lib/driver"
)

// Registry maps ids to providers.
type Registry struct {
	providers map[ID]Provider
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		providers: make(map[ID]Provider),
		logger:    logger,
	}
}

// AddDataProvider registers provider under id. The first registration
// of an id wins.
func (r *Registry) AddDataProvider(id ID, provider Provider) error {
	if id == ReservedID {
		return fmt.Errorf("registering provider %s: %w", id, ErrReservedID)
	}
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("%w: %s", ErrDataProviderAlreadyLoaded, id)
	}
	r.providers[id] = provider
	return nil
}

// DataProvider resolves an id from the wire.
func (r *Registry) DataProvider(id ID) (Provider, error) {
	provider, exists := r.providers[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDataProviderNotFound, id)
	}
	return provider, nil
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.providers)
}

// ForEachDo calls fn for every provider in ascending id order.
func (r *Registry) ForEachDo(fn func(ID, Provider)) {
	for _, id := range slices.Sorted(maps.Keys(r.providers)) {
		fn(id, r.providers[id])
	}
}

// InitAll initializes every provider. Absent capabilities are normal
// and logged at debug; other failures are logged as warnings. Neither
// unregisters the provider.
func (r *Registry) InitAll() {
	r.ForEachDo(func(id ID, provider Provider) {
		err := provider.Init()
		switch {
		case err == nil:
			r.logger.Debug("provider initialized", "provider", id.String())
		case driver.IsNotAvailable(err):
			r.logger.Debug("provider unsupported on this machine", "provider", id.String(), "error", err)
		default:
			r.logger.Warn("provider initialization failed", "provider", id.String(), "error", err)
		}
	})
}

// CleanAll cleans every provider.
func (r *Registry) CleanAll() {
	r.ForEachDo(func(_ ID, provider Provider) {
		provider.Clean()
	})
}

// HandleDriverEvent forwards event to every provider implementing
// DriverEventHandler. It has the signature of a driver registry
// subscriber.
func (r *Registry) HandleDriverEvent(event driver.Event) {
	r.ForEachDo(func(_ ID, provider Provider) {
		if handler, ok := provider.(DriverEventHandler); ok {
			handler.HandleDriverEvent(event)
		}
	})
}

// HandleModuleEvent forwards event to every provider implementing
// ModuleEventHandler.
func (r *Registry) HandleModuleEvent(event driver.ModuleEvent) {
	r.ForEachDo(func(_ ID, provider Provider) {
		if handler, ok := provider.(ModuleEventHandler); ok {
			handler.HandleModuleEvent(event)
		}
	})
}
