// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/platformd/lib/testutil"
)

func TestBaseModuleDefaultsToName(t *testing.T) {
	base := NewBase("platform-profile", "/sys/firmware/acpi", EventFilter{})
	if base.Module() != "platform-profile" {
		t.Errorf("Module = %q, want the driver name", base.Module())
	}
	base.SetModule("")
	if base.Module() != "platform-profile" {
		t.Errorf("empty SetModule changed Module to %q", base.Module())
	}
	base.SetModule("thinkpad_acpi")
	if base.Module() != "thinkpad_acpi" {
		t.Errorf("Module = %q, want thinkpad_acpi", base.Module())
	}
}

func TestBaseDescriptorsAreCopies(t *testing.T) {
	base := NewBase("fan", "/sys", EventFilter{})
	source := Descriptor{"speed": "/sys/fan/speed"}
	base.SetDescriptor(source)
	source["speed"] = "/elsewhere"

	got := base.Descriptor()
	if got["speed"] != "/sys/fan/speed" {
		t.Fatalf("SetDescriptor kept a reference to its argument: %v", got)
	}
	got["speed"] = "/mutated"
	if base.Descriptor()["speed"] != "/sys/fan/speed" {
		t.Error("Descriptor returned the internal map")
	}

	base.SetDescriptorVector(DescriptorVector{{"speed": "/sys/fan0/speed"}})
	if base.Descriptor() != nil {
		t.Error("SetDescriptorVector did not clear the single descriptor")
	}
	vector := base.DescriptorVector()
	vector[0]["speed"] = "/mutated"
	if base.DescriptorVector()[0]["speed"] != "/sys/fan0/speed" {
		t.Error("DescriptorVector returned internal maps")
	}
}

func TestBaseIsLoadedAndClean(t *testing.T) {
	base := NewBase("fan", "/sys", EventFilter{})
	if base.IsLoaded() {
		t.Error("fresh Base is loaded")
	}
	base.SetDescriptor(Descriptor{"speed": "/sys/fan/speed"})
	if !base.IsLoaded() {
		t.Error("Base with a descriptor is not loaded")
	}
	base.Clean()
	if base.IsLoaded() || base.Descriptor() != nil || base.DescriptorVector() != nil {
		t.Error("Clean left descriptors behind")
	}
}

func TestBaseValidateReportsFirstMissingAttribute(t *testing.T) {
	root := t.TempDir()
	present := testutil.WriteFile(t, root, "mode", "quiet\n")

	base := NewBase("profile", root, EventFilter{})
	base.SetDescriptor(Descriptor{
		"mode":    present,
		"choices": filepath.Join(root, "choices"),
		"zone":    filepath.Join(root, "zone"),
	})

	err := base.Validate()
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Validate err = %v, want *ValidationError", err)
	}
	if validation.Attribute != "choices" {
		t.Errorf("Attribute = %q, want choices (sorted first missing)", validation.Attribute)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ValidationError does not unwrap to fs.ErrNotExist: %v", err)
	}
	if !IsNotAvailable(err) {
		t.Error("IsNotAvailable = false for a ValidationError")
	}
}

func TestBaseEmitWithoutEmitterIsDropped(t *testing.T) {
	base := NewBase("fan", "/sys", EventFilter{})
	base.Emit(EventChanged, "", "")

	var got []Event
	base.SetEmitter(func(event Event) { got = append(got, event) })
	base.Emit(EventSpecific, "profile", "performance")
	if len(got) != 1 || got[0] != (Event{Driver: "fan", Kind: EventSpecific, Type: "profile", Value: "performance"}) {
		t.Errorf("emitted = %+v", got)
	}
}

func TestEventKindString(t *testing.T) {
	for kind, want := range map[EventKind]string{
		EventReloaded: "reloaded",
		EventChanged:  "changed",
		EventSpecific: "specific",
		EventKind(9):  "EventKind(9)",
	} {
		if got := kind.String(); got != want {
			t.Errorf("EventKind(%d).String() = %q, want %q", uint8(kind), got, want)
		}
	}
	if ModuleRemoved.String() != "removed" {
		t.Errorf("ModuleRemoved.String() = %q", ModuleRemoved.String())
	}
}
