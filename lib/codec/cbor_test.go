// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type attributeSnapshot struct {
	Driver string            `cbor:"driver"`
	Values map[string]string `cbor:"values"`
}

func TestMarshalDeterministicMapOrder(t *testing.T) {
	snapshot := attributeSnapshot{
		Driver: "battery",
		Values: map[string]string{
			"status":   "Charging",
			"capacity": "87",
			"alarm":    "0",
		},
	}

	first, err := Marshal(snapshot)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(snapshot)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}

	var decoded attributeSnapshot
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Driver != "battery" || decoded.Values["capacity"] != "87" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestUnmarshalAnyProducesStringMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"instance": 0, "values": map[string]string{"mode": "quiet"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	// encoding/json refuses map[interface{}]interface{}, so this doubles
	// as a check of the DefaultMapType setting.
	if _, err := json.Marshal(decoded); err != nil {
		t.Fatalf("decoded value is not JSON-compatible: %v", err)
	}
}

func TestStreamRoundtrip(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, name := range []string{"fan", "battery", "keyboard"} {
		if err := encoder.Encode(attributeSnapshot{Driver: name}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for _, want := range []string{"fan", "battery", "keyboard"} {
		var got attributeSnapshot
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Driver != want {
			t.Errorf("Driver = %q, want %q", got.Driver, want)
		}
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]string{"status": "Full"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"status"`) || !strings.Contains(notation, `"Full"`) {
		t.Errorf("Diagnose = %s", notation)
	}
}
