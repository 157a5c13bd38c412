// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/platformd/lib/logging"
)

// EnvironmentVariable names the configuration file when no --config
// flag is given.
const EnvironmentVariable = "PLATFORMD_CONFIG"

// reservedProviderID is the provider id notification frames carry.
const reservedProviderID = 0xFF

// Config is the daemon configuration.
type Config struct {
	// RuntimeDir holds both sockets unless they are configured
	// explicitly. Default: /run/platformd
	RuntimeDir string `yaml:"runtime_dir"`

	// RequestSocket is the GET/SET socket path.
	// Default: ${RUNTIME_DIR}/request.sock
	RequestSocket string `yaml:"request_socket"`

	// NotifySocket is the notification socket path.
	// Default: ${RUNTIME_DIR}/notify.sock
	NotifySocket string `yaml:"notify_socket"`

	IPC          IPCConfig          `yaml:"ipc"`
	KernelEvents KernelEventsConfig `yaml:"kernel_events"`
	Log          LogConfig          `yaml:"log"`
	Platform     PlatformConfig     `yaml:"platform"`

	// Drivers declares the sysfs capability drivers.
	Drivers []DriverConfig `yaml:"drivers"`

	// Providers binds provider ids to drivers.
	Providers []ProviderConfig `yaml:"providers"`
}

// IPCConfig bounds client I/O.
type IPCConfig struct {
	// ReadTimeout is how long each part of a frame (header, payload) may
	// take to arrive. Default: 1s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds each response or notification write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxPayload is the largest accepted request payload in bytes. The
	// protocol caps it at 16 MiB regardless. Default: 1 MiB
	MaxPayload uint64 `yaml:"max_payload"`
}

// KernelEventsConfig tunes the uevent monitor.
type KernelEventsConfig struct {
	// ReceiveBuffer is the netlink socket receive buffer in bytes.
	// Default: 1 MiB
	ReceiveBuffer int `yaml:"receive_buffer"`

	// DrainTimeout is how long each poll waits when the daemon drains
	// pending events synchronously. Default: 250ms
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// PollInterval is the readiness notifier's poll(2) timeout; it
	// bounds how long shutdown waits for the notifier. Default: 100ms
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is auto, text or json. Default: auto
	Format logging.Format `yaml:"format"`
}

// PlatformConfig controls the built-in platform identity provider.
type PlatformConfig struct {
	// Enabled registers the provider. Default: true
	Enabled bool `yaml:"enabled"`

	// ProviderID is its wire id. Default: 0
	ProviderID uint8 `yaml:"provider_id"`
}

// DriverConfig declares one sysfs driver. Its fields mirror
// sysfs.Spec so one converts directly to the other.
type DriverConfig struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module"`
	Path   string `yaml:"path"`

	// Instances is a glob under Path; each match is one instance.
	Instances string `yaml:"instances"`

	// Attributes maps logical names to files relative to the instance.
	Attributes map[string]string `yaml:"attributes"`

	Subsystem         string   `yaml:"subsystem"`
	WatchedProperties []string `yaml:"watched_properties"`
}

// ProviderConfig exposes a driver under a provider id.
type ProviderConfig struct {
	ID     uint8  `yaml:"id"`
	Driver string `yaml:"driver"`

	// Settle, when set, suppresses the driver's own kernel events
	// around SET and drains what the write triggered for this long.
	Settle time.Duration `yaml:"settle"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		RuntimeDir:    "/run/platformd",
		RequestSocket: "${RUNTIME_DIR}/request.sock",
		NotifySocket:  "${RUNTIME_DIR}/notify.sock",
		IPC: IPCConfig{
			ReadTimeout:  time.Second,
			WriteTimeout: 5 * time.Second,
			MaxPayload:   1 << 20,
		},
		KernelEvents: KernelEventsConfig{
			ReceiveBuffer: 1 << 20,
			DrainTimeout:  250 * time.Millisecond,
			PollInterval:  100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		Platform: PlatformConfig{
			Enabled: true,
		},
	}
}

// Load loads the file named by PLATFORMD_CONFIG, or returns the
// defaults when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile loads and validates the file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, expands variables and
// validates. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.RuntimeDir = expandVars(c.RuntimeDir, nil)
	vars := map[string]string{"RUNTIME_DIR": c.RuntimeDir}
	c.RequestSocket = expandVars(c.RequestSocket, vars)
	c.NotifySocket = expandVars(c.NotifySocket, vars)
	for index := range c.Drivers {
		c.Drivers[index].Path = expandVars(c.Drivers[index].Path, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if !filepath.IsAbs(c.RuntimeDir) {
		errs = append(errs, fmt.Errorf("runtime_dir must be an absolute path, got %q", c.RuntimeDir))
	}
	if c.RequestSocket == "" || c.NotifySocket == "" {
		errs = append(errs, errors.New("request_socket and notify_socket are required"))
	} else if filepath.Clean(c.RequestSocket) == filepath.Clean(c.NotifySocket) {
		errs = append(errs, fmt.Errorf("request_socket and notify_socket must differ, both are %q", c.RequestSocket))
	}

	if c.IPC.ReadTimeout <= 0 {
		errs = append(errs, errors.New("ipc.read_timeout must be positive"))
	}
	if c.IPC.WriteTimeout <= 0 {
		errs = append(errs, errors.New("ipc.write_timeout must be positive"))
	}
	if c.IPC.MaxPayload == 0 {
		errs = append(errs, errors.New("ipc.max_payload must be positive"))
	}
	if c.KernelEvents.ReceiveBuffer <= 0 {
		errs = append(errs, errors.New("kernel_events.receive_buffer must be positive"))
	}
	if c.KernelEvents.DrainTimeout <= 0 {
		errs = append(errs, errors.New("kernel_events.drain_timeout must be positive"))
	}
	if c.KernelEvents.PollInterval <= 0 {
		errs = append(errs, errors.New("kernel_events.poll_interval must be positive"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of auto, text, json, got %q", c.Log.Format))
	}

	drivers := make(map[string]bool, len(c.Drivers))
	for index, driver := range c.Drivers {
		if driver.Name == "" {
			errs = append(errs, fmt.Errorf("drivers[%d]: name is required", index))
			continue
		}
		if drivers[driver.Name] {
			errs = append(errs, fmt.Errorf("drivers[%d]: duplicate name %q", index, driver.Name))
		}
		drivers[driver.Name] = true
	}

	ids := make(map[uint8]string)
	if c.Platform.Enabled {
		ids[c.Platform.ProviderID] = "platform"
	}
	if c.Platform.Enabled && c.Platform.ProviderID == reservedProviderID {
		errs = append(errs, errors.New("platform.provider_id 255 is reserved for notifications"))
	}
	for index, provider := range c.Providers {
		if provider.ID == reservedProviderID {
			errs = append(errs, fmt.Errorf("providers[%d]: id 255 is reserved for notifications", index))
		}
		if owner, taken := ids[provider.ID]; taken {
			errs = append(errs, fmt.Errorf("providers[%d]: id %d already used by %s", index, provider.ID, owner))
		}
		ids[provider.ID] = fmt.Sprintf("providers[%d]", index)
		if !drivers[provider.Driver] {
			errs = append(errs, fmt.Errorf("providers[%d]: unknown driver %q", index, provider.Driver))
		}
		if provider.Settle < 0 {
			errs = append(errs, fmt.Errorf("providers[%d]: settle must not be negative", index))
		}
	}

	return errors.Join(errs...)
}

// EnsureRuntimeDir creates the directories holding both sockets.
func (c *Config) EnsureRuntimeDir() error {
	for _, directory := range []string{c.RuntimeDir, filepath.Dir(c.RequestSocket), filepath.Dir(c.NotifySocket)} {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}
