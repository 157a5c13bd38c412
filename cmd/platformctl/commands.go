// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/platformd/cmd/platformctl/cli"
	"github.com/bureau-foundation/platformd/lib/codec"
	"github.com/bureau-foundation/platformd/lib/ipc"
	"github.com/bureau-foundation/platformd/lib/provider"
	"github.com/bureau-foundation/platformd/lib/sysfs"
	"github.com/bureau-foundation/platformd/lib/version"
)

const (
	defaultRequestSocket = "/run/platformd/request.sock"
	defaultNotifySocket  = "/run/platformd/notify.sock"
)

// app carries the process environment the commands write to.
type app struct {
	stdout   io.Writer
	// styled enables lipgloss styling in watch output.
	styled   bool
	readFile func(string) ([]byte, error)
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:        "platformctl",
		Description: "Query and control platformd data providers.",
		Subcommands: []*cli.Command{
			a.getCommand(),
			a.setCommand(),
			a.watchCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					version.Print(a.stdout, "platformctl")
					return nil
				},
			},
		},
	}
}

func (a *app) getCommand() *cli.Command {
	var (
		socket     string
		timeout    time.Duration
		attributes []string
		request    string
		output     string
	)
	return &cli.Command{
		Name:    "get",
		Summary: "Read a data provider",
		Usage:   "platformctl get <provider-id> [flags]",
		Examples: []cli.Example{
			{Description: "Platform identity", Command: "platformctl get 0"},
			{Description: "Selected battery attributes as JSON", Command: "platformctl get 1 --attributes capacity,status --output json"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
			flagSet.StringVar(&socket, "socket", defaultRequestSocket, "request socket path")
			flagSet.DurationVar(&timeout, "timeout", ipc.DefaultClientTimeout, "I/O timeout")
			flagSet.StringSliceVar(&attributes, "attributes", nil, "restrict the response to these attribute names")
			flagSet.StringVar(&request, "request", "", "JSONC file holding the request payload")
			flagSet.StringVarP(&output, "output", "o", "diag", "output format: diag or json")
			return flagSet
		},
		Run: func(args []string) error {
			id, err := providerArgument(args)
			if err != nil {
				return err
			}
			if len(attributes) > 0 && request != "" {
				return cli.Usagef("--attributes and --request are mutually exclusive")
			}
			var payload []byte
			switch {
			case len(attributes) > 0:
				payload, err = codec.Marshal(attributes)
			case request != "":
				payload, err = a.payloadFromFile(request)
			}
			if err != nil {
				return err
			}

			client, err := ipc.Dial(socket, timeout)
			if err != nil {
				return err
			}
			defer client.Close()
			response, err := client.Get(id, payload)
			if err != nil {
				return explain(err)
			}
			return a.printPayload(response, output)
		},
	}
}

func (a *app) setCommand() *cli.Command {
	var (
		socket   string
		timeout  time.Duration
		file     string
		instance int
		values   []string
		output   string
	)
	return &cli.Command{
		Name:    "set",
		Summary: "Write to a data provider",
		Usage:   "platformctl set <provider-id> (--file FILE | --value NAME=VALUE ...) [flags]",
		Examples: []cli.Example{
			{Description: "Stop charging at 80%", Command: "platformctl set 1 --value charge_control_end_threshold=80"},
			{Description: "Send a payload written in JSONC", Command: "platformctl set 4 --file profile.jsonc"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("set", pflag.ContinueOnError)
			flagSet.StringVar(&socket, "socket", defaultRequestSocket, "request socket path")
			flagSet.DurationVar(&timeout, "timeout", ipc.DefaultClientTimeout, "I/O timeout")
			flagSet.StringVarP(&file, "file", "f", "", "JSONC file holding the payload")
			flagSet.IntVar(&instance, "instance", 0, "instance for --value")
			flagSet.StringArrayVar(&values, "value", nil, "attribute assignment NAME=VALUE (repeatable)")
			flagSet.StringVarP(&output, "output", "o", "diag", "output format for a non-empty result: diag or json")
			return flagSet
		},
		Run: func(args []string) error {
			id, err := providerArgument(args)
			if err != nil {
				return err
			}
			var payload []byte
			switch {
			case file != "" && len(values) > 0:
				return cli.Usagef("--file and --value are mutually exclusive")
			case file != "":
				payload, err = a.payloadFromFile(file)
			case len(values) > 0:
				payload, err = assignmentPayload(instance, values)
			default:
				return cli.Usagef("set needs --file or --value")
			}
			if err != nil {
				return err
			}

			client, err := ipc.Dial(socket, timeout)
			if err != nil {
				return err
			}
			defer client.Close()
			result, err := client.Set(id, payload)
			if err != nil {
				return explain(err)
			}
			if len(result) == 0 {
				return nil
			}
			return a.printPayload(result, output)
		},
	}
}

func (a *app) watchCommand() *cli.Command {
	var (
		socket string
		count  int
	)
	return &cli.Command{
		Name:    "watch",
		Summary: "Print driver and module notifications as they arrive",
		Usage:   "platformctl watch [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			flagSet.StringVar(&socket, "socket", defaultNotifySocket, "notification socket path")
			flagSet.IntVarP(&count, "count", "n", 0, "exit after this many notifications (0: run until the daemon closes the stream)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Usagef("watch takes no arguments")
			}
			watcher, err := ipc.DialNotifications(socket)
			if err != nil {
				return err
			}
			defer watcher.Close()

			style := newWatchStyle(a.styled)
			for received := 0; count == 0 || received < count; received++ {
				notification, err := watcher.Next()
				if err != nil {
					return explain(err)
				}
				fmt.Fprintln(a.stdout, style.render(notification))
			}
			return nil
		},
	}
}

// providerArgument parses the single <provider-id> argument. Decimal,
// 0x hex and 0o octal are accepted.
func providerArgument(args []string) (provider.ID, error) {
	if len(args) != 1 {
		return 0, cli.Usagef("expected exactly one provider id, got %d arguments", len(args))
	}
	value, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return 0, cli.Usagef("invalid provider id %q: must be 0-254", args[0])
	}
	id := provider.ID(value)
	if id == provider.ReservedID {
		return 0, cli.Usagef("provider id %s is reserved for notifications", id)
	}
	return id, nil
}

// assignmentPayload builds a sysfs SET request from NAME=VALUE pairs.
func assignmentPayload(instance int, assignments []string) ([]byte, error) {
	request := sysfs.SetRequest{Instance: instance, Values: make(map[string]string, len(assignments))}
	for _, assignment := range assignments {
		name, value, found := strings.Cut(assignment, "=")
		if !found || name == "" {
			return nil, cli.Usagef("invalid --value %q: want NAME=VALUE", assignment)
		}
		request.Values[name] = value
	}
	return codec.Marshal(request)
}

// explain rewrites a refused or dropped connection into something a
// user can act on.
func explain(err error) error {
	if errors.Is(err, ipc.ErrConnectionClosed) {
		return fmt.Errorf("%w (another client holds the channel, or the daemon rejected the request; see its log)", err)
	}
	return err
}
