// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/bureau-foundation/platformd/lib/driver"
	"github.com/bureau-foundation/platformd/lib/uevent"
)

// Spec declares a driver. Attributes maps logical names to file names
// relative to Path, or to each instance directory when Instances is a
// glob.
type Spec struct {
	Name              string
	Module            string
	Path              string
	Instances         string
	Attributes        map[string]string
	Subsystem         string
	WatchedProperties []string
}

// Validate checks the spec for mistakes that would make the driver
// meaningless.
func (s Spec) Validate() error {
	var problems []error
	if s.Name == "" {
		problems = append(problems, errors.New("name is required"))
	}
	if !filepath.IsAbs(s.Path) {
		problems = append(problems, fmt.Errorf("path %q must be absolute", s.Path))
	}
	if len(s.Attributes) == 0 {
		problems = append(problems, errors.New("at least one attribute is required"))
	}
	for name, file := range s.Attributes {
		if !filepath.IsLocal(file) {
			problems = append(problems, fmt.Errorf("attribute %q: file %q must be a relative path inside the driver path", name, file))
		}
	}
	if s.Instances != "" {
		if _, err := filepath.Match(s.Instances, ""); err != nil {
			problems = append(problems, fmt.Errorf("instances glob %q: %w", s.Instances, err))
		}
	}
	if len(s.WatchedProperties) > 0 && s.Subsystem == "" {
		problems = append(problems, errors.New("watched_properties requires a subsystem"))
	}
	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("driver %q: %w", s.Name, err)
	}
	return nil
}

// PerInstance reports whether the driver produces a descriptor vector.
func (s Spec) PerInstance() bool {
	return s.Instances != ""
}

// Driver is a capability driver built from a Spec.
type Driver struct {
	driver.Base
	spec Spec
}

// NewDriver validates spec and builds the driver.
func NewDriver(spec Spec) (*Driver, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec.Attributes = maps.Clone(spec.Attributes)
	spec.WatchedProperties = slices.Clone(spec.WatchedProperties)

	sysfsDriver := &Driver{
		Base: driver.NewBase(spec.Name, spec.Path, driver.EventFilter{
			Subsystem:         spec.Subsystem,
			WatchedProperties: spec.WatchedProperties,
		}),
		spec: spec,
	}
	sysfsDriver.SetModule(spec.Module)
	return sysfsDriver, nil
}

// Init records every attribute file that exists. In per-instance mode
// each matching directory with at least one attribute becomes one
// descriptor, in lexical order of directory name.
func (d *Driver) Init() error {
	d.Clean()

	if !d.spec.PerInstance() {
		if descriptor := d.probe(d.spec.Path); len(descriptor) > 0 {
			d.SetDescriptor(descriptor)
		}
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(d.spec.Path, d.spec.Instances))
	if err != nil {
		return fmt.Errorf("matching instances: %w", err)
	}
	slices.Sort(matches)
	var vector driver.DescriptorVector
	for _, instance := range matches {
		if descriptor := d.probe(instance); len(descriptor) > 0 {
			vector = append(vector, descriptor)
		}
	}
	if len(vector) > 0 {
		d.SetDescriptorVector(vector)
	}
	return nil
}

func (d *Driver) probe(directory string) driver.Descriptor {
	descriptor := driver.Descriptor{}
	for name, file := range d.spec.Attributes {
		path := filepath.Join(directory, file)
		if _, err := os.Stat(path); err == nil {
			descriptor[name] = path
		}
	}
	return descriptor
}

// HandleKernelEvent re-probes on device arrival and departure, and
// reports attribute changes. In per-instance mode, events for devices
// whose name does not match the instance glob are ignored.
func (d *Driver) HandleKernelEvent(event uevent.Event) error {
	if d.spec.PerInstance() {
		if matched, _ := filepath.Match(d.spec.Instances, event.SysName); !matched {
			return nil
		}
	}

	switch event.Action {
	case uevent.ActionAdd, uevent.ActionRemove, uevent.ActionBind, uevent.ActionUnbind:
		if err := d.Init(); err != nil {
			return err
		}
		d.Emit(driver.EventReloaded, "", "")
	case uevent.ActionChange:
		for _, property := range d.spec.WatchedProperties {
			if value, ok := event.Properties[property]; ok {
				d.Emit(driver.EventSpecific, property, value)
				return nil
			}
		}
		d.Emit(driver.EventChanged, "", "")
	}
	return nil
}

// Spec returns the declaration the driver was built from.
func (d *Driver) Spec() Spec {
	return d.spec
}
