// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// UsageExitCode is the exit status for command-line mistakes.
const UsageExitCode = 2

// UsageError is a command-line mistake: unknown command or flag, or
// wrong positional arguments. It exits with UsageExitCode.
type UsageError struct {
	Message string
}

// Usagef formats a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string { return e.Message }

func (e *UsageError) ExitCode() int { return UsageExitCode }

// ExitError exits with Code without printing anything more; the
// command has already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) ExitCode() int {
	return e.Code
}
