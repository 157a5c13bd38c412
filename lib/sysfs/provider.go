// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sysfs

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/platformd/lib/codec"
	"github.com/bureau-foundation/platformd/lib/driver"
)

var (
	ErrUnknownAttribute = errors.New("sysfs: unknown attribute")
	ErrInstanceRange    = errors.New("sysfs: instance out of range")
)

// Registry is the part of the driver registry a Provider uses.
type Registry interface {
	Descriptor(name string) (driver.Descriptor, error)
	DescriptorVector(name string) (driver.DescriptorVector, error)
	BlockKernelEvent(name string, blocked bool) error
	Process(timeout time.Duration) error
}

// SetRequest is the CBOR payload of a SET: attribute values to write to
// one instance. Instance is 0 for single-instance drivers.
type SetRequest struct {
	Instance int               `cbor:"instance"`
	Values   map[string]string `cbor:"values"`
}

// Provider serves one sysfs Driver. GET returns a CBOR array with one
// map of attribute values per instance; a GET payload holding a CBOR
// array of attribute names restricts each map to those names.
type Provider struct {
	registry    Registry
	driverName  string
	perInstance bool
	settle      time.Duration
	logger      *slog.Logger
}

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	// Settle, when positive, makes SET block the driver's kernel events
	// while writing and then drain the resulting uevents for up to this
	// long before unblocking, so a write does not echo back as a
	// notification.
	Settle time.Duration
	Logger *slog.Logger
}

// NewProvider binds a provider to the driver built from spec.
func NewProvider(registry Registry, spec Spec, options ProviderOptions) *Provider {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{
		registry:    registry,
		driverName:  spec.Name,
		perInstance: spec.PerInstance(),
		settle:      options.Settle,
		logger:      logger.With("driver", spec.Name),
	}
}

// Init checks that the driver's hardware is present.
func (p *Provider) Init() error {
	_, err := p.descriptors()
	return err
}

func (p *Provider) Clean() {}

func (p *Provider) Serialize() ([]byte, error) {
	return p.serialize(nil)
}

func (p *Provider) SerializeRequest(request []byte) ([]byte, error) {
	var names []string
	if err := codec.Unmarshal(request, &names); err != nil {
		return nil, fmt.Errorf("decoding attribute list: %w", err)
	}
	return p.serialize(names)
}

func (p *Provider) serialize(names []string) ([]byte, error) {
	vector, err := p.descriptors()
	if err != nil {
		return nil, err
	}
	snapshot := make([]map[string]string, 0, len(vector))
	for _, descriptor := range vector {
		selected := names
		if selected == nil {
			selected = slices.Sorted(maps.Keys(descriptor))
		}
		values := make(map[string]string, len(selected))
		for _, name := range selected {
			path, ok := descriptor[name]
			if !ok {
				continue
			}
			value, err := readAttribute(path)
			if err != nil {
				return nil, err
			}
			values[name] = value
		}
		snapshot = append(snapshot, values)
	}
	return codec.Marshal(snapshot)
}

// DeserializeAndApply writes a SetRequest. Every named attribute must
// exist before anything is written. The result payload is empty.
func (p *Provider) DeserializeAndApply(payload []byte) ([]byte, error) {
	var request SetRequest
	if err := codec.Unmarshal(payload, &request); err != nil {
		return nil, fmt.Errorf("decoding set request: %w", err)
	}
	vector, err := p.descriptors()
	if err != nil {
		return nil, err
	}
	if request.Instance < 0 || request.Instance >= len(vector) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInstanceRange, request.Instance, len(vector))
	}
	descriptor := vector[request.Instance]
	names := slices.Sorted(maps.Keys(request.Values))
	for _, name := range names {
		if _, ok := descriptor[name]; !ok {
			return nil, fmt.Errorf("%w: %q on driver %s", ErrUnknownAttribute, name, p.driverName)
		}
	}

	if p.settle > 0 {
		if err := p.registry.BlockKernelEvent(p.driverName, true); err != nil {
			return nil, err
		}
		defer func() {
			if err := p.registry.Process(p.settle); err != nil {
				p.logger.Error("draining kernel events after write", "error", err)
			}
			if err := p.registry.BlockKernelEvent(p.driverName, false); err != nil {
				p.logger.Error("unblocking kernel events", "error", err)
			}
		}()
	}

	for _, name := range names {
		if err := writeAttribute(descriptor[name], request.Values[name]); err != nil {
			return nil, err
		}
		p.logger.Info("attribute written", "attribute", name, "instance", request.Instance)
	}
	return nil, nil
}

// descriptors returns the driver's descriptors as a vector, wrapping a
// single-instance descriptor.
func (p *Provider) descriptors() (driver.DescriptorVector, error) {
	if p.perInstance {
		return p.registry.DescriptorVector(p.driverName)
	}
	descriptor, err := p.registry.Descriptor(p.driverName)
	if err != nil {
		return nil, err
	}
	return driver.DescriptorVector{descriptor}, nil
}

func readAttribute(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// writeAttribute writes value with a single write(2), as sysfs stores
// expect.
func writeAttribute(path, value string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := file.WriteString(value); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
