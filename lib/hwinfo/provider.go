// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/platformd/lib/codec"
	"github.com/bureau-foundation/platformd/lib/driver"
	"github.com/bureau-foundation/platformd/lib/provider"
)

// Provider serves the Platform as CBOR. A GET with a payload carrying a
// CBOR array of field names returns a map of just those fields.
type Provider struct {
	probe    func() Platform
	logger   *slog.Logger
	platform Platform
	probed   bool
}

// NewProvider returns a provider over Probe.
func NewProvider(logger *slog.Logger) *Provider {
	return newProvider(Probe, logger)
}

func newProvider(probe func() Platform, logger *slog.Logger) *Provider {
	return &Provider{probe: probe, logger: logger}
}

func (p *Provider) Init() error {
	p.refresh()
	return nil
}

func (p *Provider) Clean() {
	p.platform = Platform{}
	p.probed = false
}

func (p *Provider) Serialize() ([]byte, error) {
	if !p.probed {
		p.refresh()
	}
	return codec.Marshal(p.platform)
}

func (p *Provider) SerializeRequest(request []byte) ([]byte, error) {
	var fields []string
	if err := codec.Unmarshal(request, &fields); err != nil {
		return nil, fmt.Errorf("decoding field list: %w", err)
	}
	full, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	var all map[string]any
	if err := codec.Unmarshal(full, &all); err != nil {
		return nil, fmt.Errorf("decoding platform: %w", err)
	}
	selected := make(map[string]any, len(fields))
	for _, field := range fields {
		if value, ok := all[field]; ok {
			selected[field] = value
		}
	}
	return codec.Marshal(selected)
}

func (p *Provider) DeserializeAndApply([]byte) ([]byte, error) {
	return nil, provider.ErrReadOnly
}

// HandleModuleEvent re-probes: a firmware module loading can expose
// DMI fields that were unreadable before.
func (p *Provider) HandleModuleEvent(event driver.ModuleEvent) {
	p.refresh()
	p.logger.Debug("platform re-probed", "module", event.Module, "kind", event.Kind.String())
}

func (p *Provider) refresh() {
	p.platform = p.probe()
	p.probed = true
}
