// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/bureau-foundation/platformd/lib/uevent"
)

// Base implements the Driver contract apart from Init. Embed it in a
// concrete driver and record what Init finds with SetDescriptor or
// SetDescriptorVector.
type Base struct {
	name   string
	path   string
	module string
	filter EventFilter

	descriptor Descriptor
	vector     DescriptorVector

	blocked bool
	emit    func(Event)
}

// NewBase returns a Base whose module grouping is its name.
func NewBase(name, path string, filter EventFilter) Base {
	return Base{name: name, path: path, module: name, filter: filter}
}

// SetModule overrides the module grouping key.
func (b *Base) SetModule(module string) {
	if module != "" {
		b.module = module
	}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Path() string        { return b.path }
func (b *Base) Module() string      { return b.module }
func (b *Base) Filter() EventFilter { return b.filter }

// SetDescriptor records a single-instance descriptor, replacing any
// vector.
func (b *Base) SetDescriptor(descriptor Descriptor) {
	b.descriptor = maps.Clone(descriptor)
	b.vector = nil
}

// SetDescriptorVector records per-instance descriptors, replacing any
// single descriptor.
func (b *Base) SetDescriptorVector(vector DescriptorVector) {
	b.vector = make(DescriptorVector, len(vector))
	for index, descriptor := range vector {
		b.vector[index] = maps.Clone(descriptor)
	}
	b.descriptor = nil
}

// Descriptor returns a copy of the single-instance descriptor.
func (b *Base) Descriptor() Descriptor {
	return maps.Clone(b.descriptor)
}

// DescriptorVector returns a copy of the per-instance descriptors.
func (b *Base) DescriptorVector() DescriptorVector {
	if b.vector == nil {
		return nil
	}
	vector := make(DescriptorVector, len(b.vector))
	for index, descriptor := range b.vector {
		vector[index] = maps.Clone(descriptor)
	}
	return vector
}

func (b *Base) Clean() {
	b.descriptor = nil
	b.vector = nil
}

func (b *Base) IsLoaded() bool {
	return len(b.descriptor) > 0 || len(b.vector) > 0
}

// Validate checks every recorded path, in attribute-name order so the
// reported attribute is deterministic.
func (b *Base) Validate() error {
	if err := b.validateDescriptor(b.descriptor); err != nil {
		return err
	}
	for _, descriptor := range b.vector {
		if err := b.validateDescriptor(descriptor); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) validateDescriptor(descriptor Descriptor) error {
	for _, attribute := range slices.Sorted(maps.Keys(descriptor)) {
		path := descriptor[attribute]
		if _, err := os.Stat(path); err != nil {
			return &ValidationError{Driver: b.name, Attribute: attribute, Path: path, Err: err}
		}
	}
	return nil
}

// HandleKernelEvent ignores the event. Drivers that declare a filter
// override it.
func (b *Base) HandleKernelEvent(uevent.Event) error { return nil }

func (b *Base) BlockKernelEvent(blocked bool) { b.blocked = blocked }
func (b *Base) KernelEventBlocked() bool      { return b.blocked }

func (b *Base) SetEmitter(emit func(Event)) { b.emit = emit }

// Emit publishes a normalized event through the registry. Before the
// registry has installed an emitter the event is dropped.
func (b *Base) Emit(kind EventKind, specificType, value string) {
	if b.emit == nil {
		return
	}
	b.emit(Event{Driver: b.name, Kind: kind, Type: specificType, Value: value})
}

// String identifies the driver in logs.
func (b *Base) String() string {
	return fmt.Sprintf("%s (module %s, subsystem %q)", b.name, b.module, b.filter.Subsystem)
}
