// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type usageError struct{ message string }

func (e usageError) Error() string { return e.message }
func (e usageError) ExitCode() int { return 2 }

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{"plain", errors.New("boom"), 1, "error: boom\n"},
		{"coder", usageError{"missing provider id"}, 2, "error: missing provider id\n"},
		{"wrapped coder", fmt.Errorf("get: %w", usageError{"bad id"}), 2, "error: get: bad id\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buffer bytes.Buffer
			if code := report(&buffer, test.err); code != test.wantCode {
				t.Errorf("exit code = %d, want %d", code, test.wantCode)
			}
			if buffer.String() != test.wantText {
				t.Errorf("output = %q, want %q", buffer.String(), test.wantText)
			}
		})
	}
}
