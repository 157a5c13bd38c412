// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/platformd/cmd/platformctl/cli"
	"github.com/bureau-foundation/platformd/lib/codec"
	"github.com/bureau-foundation/platformd/lib/driver"
	"github.com/bureau-foundation/platformd/lib/ipc"
	"github.com/bureau-foundation/platformd/lib/logging"
	"github.com/bureau-foundation/platformd/lib/provider"
	"github.com/bureau-foundation/platformd/lib/sysfs"
	"github.com/bureau-foundation/platformd/lib/testutil"
)

// batteryProvider answers GET with two fixed instances and records SET
// payloads.
type batteryProvider struct {
	applied chan []byte
}

func (p *batteryProvider) Init() error { return nil }
func (p *batteryProvider) Clean()      {}

func (p *batteryProvider) Serialize() ([]byte, error) {
	return codec.Marshal([]map[string]string{
		{"capacity": "87", "status": "Discharging"},
		{"capacity": "40", "status": "Charging"},
	})
}

func (p *batteryProvider) SerializeRequest(request []byte) ([]byte, error) {
	var names []string
	if err := codec.Unmarshal(request, &names); err != nil {
		return nil, err
	}
	return codec.Marshal([]map[string]string{{names[0]: "87"}})
}

func (p *batteryProvider) DeserializeAndApply(payload []byte) ([]byte, error) {
	p.applied <- payload
	return nil, nil
}

// serveRequests accepts request clients on a real socket and answers
// them against a registry holding the battery provider as id 1.
func serveRequests(t *testing.T) (string, *batteryProvider) {
	t.Helper()
	target := &batteryProvider{applied: make(chan []byte, 1)}
	providers := provider.NewRegistry(logging.Discard())
	if err := providers.AddDataProvider(1, target); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(testutil.SocketDir(t), "request.sock")
	listener, err := ipc.Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			session, err := ipc.NewRequestSession(conn, providers, ipc.Options{})
			if err != nil {
				conn.Close()
				continue
			}
			events := make(chan ipc.SessionEvent, 1)
			session.Start(events)
			go func() {
				defer session.Stop()
				for event := range events {
					if event.Err != nil || session.Handle(*event.Frame) != nil {
						return
					}
				}
			}()
		}
	}()
	return path, target
}

func testApp() (*app, *bytes.Buffer) {
	var stdout bytes.Buffer
	return &app{
		stdout:   &stdout,
		readFile: os.ReadFile,
	}, &stdout
}

func TestGetPrintsDiagnosticNotation(t *testing.T) {
	socket, _ := serveRequests(t)
	application, stdout := testApp()

	if err := application.root().Execute([]string{"get", "--socket", socket, "1"}); err != nil {
		t.Fatalf("get: %v", err)
	}
	output := stdout.String()
	if !strings.HasPrefix(output, "[{") || !strings.Contains(output, `"Discharging"`) || !strings.Contains(output, `"40"`) {
		t.Errorf("output = %q", output)
	}
}

func TestGetWithAttributesAsJSON(t *testing.T) {
	socket, _ := serveRequests(t)
	application, stdout := testApp()

	if err := application.root().Execute([]string{"get", "--socket", socket, "--attributes", "capacity", "-o", "json", "0x01"}); err != nil {
		t.Fatalf("get: %v", err)
	}
	want := "[\n  {\n    \"capacity\": \"87\"\n  }\n]\n"
	if stdout.String() != want {
		t.Errorf("output = %q, want %q", stdout.String(), want)
	}
}

func TestSetSendsAssignments(t *testing.T) {
	socket, target := serveRequests(t)
	application, _ := testApp()

	args := []string{"set", "--socket", socket, "--instance", "1", "--value", "charge_control_end_threshold=80", "--value", "status=Idle", "1"}
	if err := application.root().Execute(args); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload := testutil.RequireReceive(t, target.applied, 5*time.Second, "waiting for SET")
	var request sysfs.SetRequest
	if err := codec.Unmarshal(payload, &request); err != nil {
		t.Fatalf("decoding SET payload: %v", err)
	}
	if request.Instance != 1 || request.Values["charge_control_end_threshold"] != "80" || request.Values["status"] != "Idle" {
		t.Errorf("request = %+v", request)
	}
}

func TestSetFromJSONCFile(t *testing.T) {
	socket, target := serveRequests(t)
	application, _ := testApp()
	file := testutil.WriteFile(t, t.TempDir(), "set.jsonc", `{
		// second battery
		"instance": 1,
		"values": {"status": "Idle",},
	}`)

	if err := application.root().Execute([]string{"set", "--socket", socket, "-f", file, "1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload := testutil.RequireReceive(t, target.applied, 5*time.Second, "waiting for SET")
	var request sysfs.SetRequest
	if err := codec.Unmarshal(payload, &request); err != nil {
		t.Fatalf("decoding SET payload: %v", err)
	}
	if request.Instance != 1 || request.Values["status"] != "Idle" {
		t.Errorf("request = %+v", request)
	}
}

func TestGetFromUnknownProviderExplainsClosure(t *testing.T) {
	socket, _ := serveRequests(t)
	application, _ := testApp()

	err := application.root().Execute([]string{"get", "--socket", socket, "9"})
	if !errors.Is(err, ipc.ErrConnectionClosed) {
		t.Fatalf("err = %v, want ErrConnectionClosed", err)
	}
	if !strings.Contains(err.Error(), "another client") {
		t.Errorf("err = %q lacks an explanation", err)
	}
}

func TestWatchPrintsNotifications(t *testing.T) {
	path := filepath.Join(testutil.SocketDir(t), "notify.sock")
	listener, err := ipc.Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		if conn, err := listener.Accept(); err == nil {
			accepted <- conn
		}
	}()

	application, stdout := testApp()
	done := make(chan error, 1)
	go func() {
		done <- application.root().Execute([]string{"watch", "--socket", path, "--count", "2"})
	}()

	conn := testutil.RequireReceive(t, accepted, 5*time.Second, "waiting for watch to connect")
	session, err := ipc.NewNotificationSession(conn, ipc.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(session.Stop)
	session.Start(make(chan ipc.SessionEvent, 1))
	if err := session.NotifyDriverEvent(driver.Event{Driver: "battery", Kind: driver.EventSpecific, Type: "POWER_SUPPLY_CAPACITY", Value: "86"}); err != nil {
		t.Fatal(err)
	}
	if err := session.NotifyModuleEvent(driver.ModuleEvent{Module: "asus_wmi", Kind: driver.ModuleRemoved}); err != nil {
		t.Fatal(err)
	}

	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for watch to exit"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), stdout.String())
	}
	if !strings.HasSuffix(lines[0], "driver battery specific POWER_SUPPLY_CAPACITY=86") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "module asus_wmi removed") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestProviderArgument(t *testing.T) {
	tests := []struct {
		args []string
		want provider.ID
		ok   bool
	}{
		{[]string{"7"}, 7, true},
		{[]string{"0x10"}, 16, true},
		{[]string{"255"}, 0, false},
		{[]string{"256"}, 0, false},
		{[]string{"battery"}, 0, false},
		{nil, 0, false},
		{[]string{"1", "2"}, 0, false},
	}
	for _, test := range tests {
		id, err := providerArgument(test.args)
		if test.ok {
			if err != nil || id != test.want {
				t.Errorf("providerArgument(%v) = %v, %v; want %v", test.args, id, err, test.want)
			}
			continue
		}
		var usage *cli.UsageError
		if !errors.As(err, &usage) {
			t.Errorf("providerArgument(%v) err = %v, want *cli.UsageError", test.args, err)
		}
	}
}

func TestSetRequiresPayload(t *testing.T) {
	application, _ := testApp()
	err := application.root().Execute([]string{"set", "1"})
	var usage *cli.UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("err = %v, want *cli.UsageError", err)
	}
}

func TestJSONCToCBORKeepsIntegersIntegral(t *testing.T) {
	payload, err := jsoncToCBOR([]byte(`{"whole": 3, "fraction": 0.5, /* note */ "list": [1, 2,],}`))
	if err != nil {
		t.Fatalf("jsoncToCBOR: %v", err)
	}
	var decoded struct {
		Whole    int     `cbor:"whole"`
		Fraction float64 `cbor:"fraction"`
		List     []int   `cbor:"list"`
	}
	if err := codec.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Whole != 3 || decoded.Fraction != 0.5 || len(decoded.List) != 2 || decoded.List[1] != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}
