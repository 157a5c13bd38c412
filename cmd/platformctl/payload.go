// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/platformd/lib/codec"
)

// payloadFromFile reads a JSONC document and encodes it as CBOR.
func (a *app) payloadFromFile(path string) ([]byte, error) {
	data, err := a.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	payload, err := jsoncToCBOR(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return payload, nil
}

// jsoncToCBOR strips comments and trailing commas, then re-encodes the
// document as CBOR. Integral numbers become CBOR integers so they
// decode into Go integer fields on the daemon side.
func jsoncToCBOR(data []byte) ([]byte, error) {
	var document any
	if err := json.Unmarshal(jsonc.ToJSON(data), &document); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return codec.Marshal(integralNumbers(document))
}

func integralNumbers(value any) any {
	switch typed := value.(type) {
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<53 {
			return int64(typed)
		}
		return typed
	case []any:
		for index, element := range typed {
			typed[index] = integralNumbers(element)
		}
		return typed
	case map[string]any:
		for key, element := range typed {
			typed[key] = integralNumbers(element)
		}
		return typed
	default:
		return value
	}
}

// printPayload writes a CBOR payload in diagnostic notation or as
// indented JSON.
func (a *app) printPayload(payload []byte, format string) error {
	switch format {
	case "diag":
		if len(payload) == 0 {
			return nil
		}
		text, err := codec.Diagnose(payload)
		if err != nil {
			return fmt.Errorf("response is not CBOR: %w", err)
		}
		fmt.Fprintln(a.stdout, text)
		return nil
	case "json":
		var document any
		if len(payload) > 0 {
			if err := codec.Unmarshal(payload, &document); err != nil {
				return fmt.Errorf("response is not CBOR: %w", err)
			}
		}
		text, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return fmt.Errorf("converting response to JSON: %w", err)
		}
		fmt.Fprintln(a.stdout, string(text))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want diag or json)", format)
	}
}
