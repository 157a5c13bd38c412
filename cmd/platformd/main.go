// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/platformd/lib/clock"
	"github.com/bureau-foundation/platformd/lib/config"
	"github.com/bureau-foundation/platformd/lib/driver"
	"github.com/bureau-foundation/platformd/lib/logging"
	"github.com/bureau-foundation/platformd/lib/process"
	"github.com/bureau-foundation/platformd/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath    string
		requestSocket string
		notifySocket  string
		logLevel      string
		logFormat     string
		showVersion   bool
	)

	flagSet := pflag.NewFlagSet("platformd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML configuration (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&requestSocket, "request-socket", "", "override the request socket path")
	flagSet.StringVar(&notifySocket, "notify-socket", "", "override the notification socket path")
	flagSet.StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")
	flagSet.StringVar(&logFormat, "log-format", "", "override the log format (auto, text, json)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print(os.Stdout, "platformd")
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if requestSocket != "" {
		cfg.RequestSocket = requestSocket
	}
	if notifySocket != "" {
		cfg.NotifySocket = notifySocket
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logging.Format(logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := NewDaemon(cfg, Dependencies{
		Logger:    logger,
		Transport: driver.NetlinkTransport(cfg.KernelEvents.ReceiveBuffer),
		Clock:     clock.Real(),
	})
	if err != nil {
		return err
	}
	logger.Info("platformd starting", "version", version.Info(), "drivers", len(cfg.Drivers), "providers", len(cfg.Providers))
	return daemon.Run(ctx)
}
