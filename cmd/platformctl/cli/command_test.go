// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesWithFlags(t *testing.T) {
	var socket string
	var received []string
	root := &Command{
		Name: "platformctl",
		Subcommands: []*Command{{
			Name: "get",
			Flags: func() *pflag.FlagSet {
				flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
				flagSet.StringVar(&socket, "socket", "/run/platformd/request.sock", "")
				return flagSet
			},
			Run: func(args []string) error {
				received = args
				return nil
			},
		}},
	}

	if err := root.Execute([]string{"get", "--socket", "/tmp/x.sock", "3"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if socket != "/tmp/x.sock" {
		t.Errorf("socket = %q", socket)
	}
	if len(received) != 1 || received[0] != "3" {
		t.Errorf("args = %v, want [3]", received)
	}
}

func TestExecuteUsageErrors(t *testing.T) {
	root := &Command{
		Name: "platformctl",
		Subcommands: []*Command{
			{
				Name: "watch",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
					flagSet.Int("count", 0, "")
					return flagSet
				},
				Run: func([]string) error { return nil },
			},
		},
	}

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"typo", []string{"wacth"}, `did you mean "watch"`},
		{"unknown", []string{"frobnicate"}, "unknown command"},
		{"missing", nil, "command required"},
		{"flag typo", []string{"watch", "--cuont", "1"}, "did you mean --count"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := root.Execute(test.args)
			var usage *UsageError
			if !errors.As(err, &usage) {
				t.Fatalf("err = %v, want *UsageError", err)
			}
			if usage.ExitCode() != UsageExitCode {
				t.Errorf("exit code = %d", usage.ExitCode())
			}
			if !strings.Contains(err.Error(), test.message) {
				t.Errorf("err = %q, want it to contain %q", err, test.message)
			}
		})
	}
}

func TestPrintHelpListsCommandsAndFlags(t *testing.T) {
	root := &Command{
		Name:        "platformctl",
		Description: "Talk to platformd.",
		Subcommands: []*Command{
			{Name: "get", Summary: "read a provider"},
			{Name: "set", Summary: "write a provider"},
		},
	}
	var out strings.Builder
	root.PrintHelp(&out)
	for _, want := range []string{"Talk to platformd.", "platformctl <command> [flags]", "get", "read a provider", "set"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help is missing %q:\n%s", want, out.String())
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"watch", "watch", 0},
		{"wacth", "watch", 2},
		{"get", "set", 1},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
