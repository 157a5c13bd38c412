// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"errors"
	"fmt"
)

var (
	ErrDriverAlreadyLoaded = errors.New("driver: already loaded")
	ErrDriverNotFound      = errors.New("driver: not found")
	ErrDriverNotAvailable  = errors.New("driver: not available")
	ErrRegistryStarted     = errors.New("driver: registry already initialized")
)

// ValidationError reports a recorded control point that no longer
// exists.
type ValidationError struct {
	Driver    string
	Attribute string
	Path      string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("driver %s: attribute %s: %s vanished: %v", e.Driver, e.Attribute, e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// HandlerError wraps a failure (returned error or recovered panic) from
// a driver's kernel event handler.
type HandlerError struct {
	Driver string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("driver %s: kernel event handler: %v", e.Driver, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// IsNotAvailable reports whether err means the feature is absent on
// this machine, including a driver that just failed validation.
func IsNotAvailable(err error) bool {
	var validation *ValidationError
	return errors.Is(err, ErrDriverNotAvailable) || errors.As(err, &validation)
}
