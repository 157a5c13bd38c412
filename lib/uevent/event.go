// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uevent

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ModuleSubsystem is the subsystem of kernel module load/unload events.
// Their DEVPATH is /module/<name>, so SysName is the module name.
const ModuleSubsystem = "module"

// Common kernel actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// ErrUdevFormat is returned for messages rebroadcast by udevd (they start
// with "libudev\0"). Only raw kernel messages are understood.
var ErrUdevFormat = errors.New("uevent: udevd-format message")

// Event is one kernel uevent.
type Event struct {
	Action     string
	Driver     string
	SysName    string
	Subsystem  string
	DevicePath string
	Sequence   uint64

	// Properties holds KEY=VALUE pairs from the uevent environment.
	// As received it contains everything the kernel sent; after Scoped
	// it holds only the requested keys.
	Properties map[string]string
}

// Parse decodes a raw kernel uevent datagram:
//
//	add@/devices/platform/foo\0ACTION=add\0DEVPATH=/devices/platform/foo\0SUBSYSTEM=platform\0SEQNUM=4242\0
func Parse(data []byte) (Event, error) {
	if bytes.HasPrefix(data, []byte("libudev\x00")) {
		return Event{}, ErrUdevFormat
	}

	fields := bytes.Split(bytes.TrimRight(data, "\x00"), []byte{0})
	if len(fields) == 0 || len(fields[0]) == 0 {
		return Event{}, errors.New("uevent: empty message")
	}

	header := string(fields[0])
	at := strings.IndexByte(header, '@')
	if at <= 0 || at == len(header)-1 {
		return Event{}, fmt.Errorf("uevent: malformed header %q", header)
	}

	event := Event{
		Action:     header[:at],
		DevicePath: header[at+1:],
		Properties: make(map[string]string, len(fields)-1),
	}

	for _, field := range fields[1:] {
		key, value, found := strings.Cut(string(field), "=")
		if !found || key == "" {
			continue
		}
		event.Properties[key] = value
	}

	if action := event.Properties["ACTION"]; action != "" {
		event.Action = action
	}
	if devicePath := event.Properties["DEVPATH"]; devicePath != "" {
		event.DevicePath = devicePath
	}
	event.Subsystem = event.Properties["SUBSYSTEM"]
	event.Driver = event.Properties["DRIVER"]
	event.SysName = path.Base(event.DevicePath)
	if sequence := event.Properties["SEQNUM"]; sequence != "" {
		parsed, err := strconv.ParseUint(sequence, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("uevent: bad SEQNUM %q: %w", sequence, err)
		}
		event.Sequence = parsed
	}

	if event.Subsystem == "" {
		return Event{}, fmt.Errorf("uevent: %s %s has no SUBSYSTEM", event.Action, event.DevicePath)
	}
	return event, nil
}

// Scoped returns a copy of the event whose Properties contain only the
// watched keys that are present. The receiver is not modified, so the
// same event can be scoped differently for each consumer.
func (e Event) Scoped(watched []string) Event {
	scoped := e
	scoped.Properties = make(map[string]string, len(watched))
	for _, key := range watched {
		if value, ok := e.Properties[key]; ok {
			scoped.Properties[key] = value
		}
	}
	return scoped
}

// String formats the event for logs.
func (e Event) String() string {
	return fmt.Sprintf("%s %s (%s)", e.Action, e.DevicePath, e.Subsystem)
}
