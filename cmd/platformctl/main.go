// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/platformd/cmd/platformctl/cli"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if _, usage := err.(*cli.UsageError); usage {
			fmt.Fprintf(os.Stderr, "platformctl: %v\n", err)
			os.Exit(cli.UsageExitCode)
		}
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "platformctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := &app{
		stdout:   os.Stdout,
		styled:   term.IsTerminal(int(os.Stdout.Fd())),
		readFile: os.ReadFile,
	}
	return app.root().Execute(args)
}
