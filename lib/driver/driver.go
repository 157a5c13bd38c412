// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"

	"github.com/bureau-foundation/platformd/lib/uevent"
)

// Descriptor maps a logical attribute name to its backing path.
type Descriptor map[string]string

// DescriptorVector holds one Descriptor per hardware instance, indexed
// by instance ordinal.
type DescriptorVector []Descriptor

// EventFilter declares which raw uevents a driver wants (by subsystem)
// and which properties it reads from them. An empty Subsystem means the
// driver takes no kernel events.
type EventFilter struct {
	Subsystem         string
	WatchedProperties []string
}

// EventKind classifies a normalized driver event.
type EventKind uint8

const (
	// EventReloaded means the driver re-probed and its descriptor may
	// have changed.
	EventReloaded EventKind = iota
	// EventChanged means an attribute value changed; the descriptor is
	// unchanged.
	EventChanged
	// EventSpecific carries a driver-defined Type and Value.
	EventSpecific
)

func (k EventKind) String() string {
	switch k {
	case EventReloaded:
		return "reloaded"
	case EventChanged:
		return "changed"
	case EventSpecific:
		return "specific"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a driver's interpretation of a kernel event. Driver is
// filled in by the registry.
type Event struct {
	Driver string
	Kind   EventKind
	Type   string
	Value  string
}

// ModuleEventKind says whether a kernel module appeared or went away.
type ModuleEventKind uint8

const (
	ModuleAdded ModuleEventKind = iota
	ModuleRemoved
)

func (k ModuleEventKind) String() string {
	switch k {
	case ModuleAdded:
		return "added"
	case ModuleRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ModuleEventKind(%d)", uint8(k))
	}
}

// ModuleEvent is emitted once per kernel module add/remove that touched
// at least one registered driver.
type ModuleEvent struct {
	Module string
	Kind   ModuleEventKind
}

// Driver is a capability probe. Embed Base to get everything except
// Init.
type Driver interface {
	// Name is the unique registry key.
	Name() string
	// Path is the probing root.
	Path() string
	Filter() EventFilter
	// Module groups drivers that come and go with the same kernel
	// module. Defaults to Name.
	Module() string

	// Init probes the hardware and records descriptors. It must clear
	// any previous state first, so calling it repeatedly is safe. Finding
	// nothing is not an error: the driver simply stays unloaded.
	Init() error
	// Clean drops all descriptors.
	Clean()
	// Validate fails with *ValidationError if a recorded path is gone.
	Validate() error
	IsLoaded() bool

	Descriptor() Descriptor
	DescriptorVector() DescriptorVector

	// HandleKernelEvent reacts to a raw uevent whose properties have
	// been narrowed to Filter().WatchedProperties. It may emit at most
	// one Event.
	HandleKernelEvent(event uevent.Event) error
	BlockKernelEvent(blocked bool)
	KernelEventBlocked() bool

	// SetEmitter installs the callback Emit publishes through. Called
	// by the registry.
	SetEmitter(emit func(Event))
}
