// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/platformd/lib/driver"
)

// ID addresses a provider on the wire.
type ID uint8

// ReservedID is the provider id carried by notification frames. No
// provider may register under it.
const ReservedID ID = 0xFF

var (
	ErrDataProviderAlreadyLoaded = errors.New("provider: id already registered")
	ErrDataProviderNotFound      = errors.New("provider: not found")
	ErrReservedID                = errors.New("provider: id is reserved for notifications")
	// ErrReadOnly is returned by providers that do not accept set
	// requests.
	ErrReadOnly = errors.New("provider: read-only")
)

// Provider exposes one capability as opaque payloads.
type Provider interface {
	// Init prepares the provider. An error satisfying
	// driver.IsNotAvailable means the capability is absent; the provider
	// stays registered and reports the absence to each request.
	Init() error
	Clean()

	// Serialize encodes the full current state.
	Serialize() ([]byte, error)
	// SerializeRequest encodes the state selected by a non-empty
	// request payload.
	SerializeRequest(request []byte) ([]byte, error)
	// DeserializeAndApply applies a mutation and returns a result
	// payload, usually empty.
	DeserializeAndApply(payload []byte) ([]byte, error)
}

// DriverEventHandler is implemented by providers that react to
// normalized driver events.
type DriverEventHandler interface {
	HandleDriverEvent(event driver.Event)
}

// ModuleEventHandler is implemented by providers that react to kernel
// modules appearing or going away.
type ModuleEventHandler interface {
	HandleModuleEvent(event driver.ModuleEvent)
}

func (id ID) String() string {
	return fmt.Sprintf("0x%02x", uint8(id))
}
