// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/platformd/lib/ipc"
)

// watchStyle renders one notification per line. Unstyled output is
// plain text for pipes and scripts.
type watchStyle struct {
	styled bool
	time   lipgloss.Style
	driver lipgloss.Style
	module lipgloss.Style
	name   lipgloss.Style
	value  lipgloss.Style
}

func newWatchStyle(styled bool) watchStyle {
	return watchStyle{
		styled: styled,
		time:   lipgloss.NewStyle().Faint(true),
		driver: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		module: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		name:   lipgloss.NewStyle().Bold(true),
		value:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (s watchStyle) render(notification ipc.NotificationPayload) string {
	stamp := time.UnixMilli(notification.Time).Format("15:04:05.000")
	name := notification.Driver
	kindStyle := s.driver
	if notification.Kind == ipc.NotificationModule {
		name = notification.Module
		kindStyle = s.module
	}

	parts := []string{
		s.apply(s.time, stamp),
		s.apply(kindStyle, notification.Kind),
		s.apply(s.name, name),
		notification.EventKind,
	}
	if notification.Type != "" {
		parts = append(parts, s.apply(s.value, notification.Type+"="+notification.Value))
	}
	return strings.Join(parts, " ")
}

func (s watchStyle) apply(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}
	return style.Render(text)
}
