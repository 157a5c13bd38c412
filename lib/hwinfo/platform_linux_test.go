// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/bureau-foundation/platformd/lib/testutil"
)

func TestProbeFromSyntheticFS(t *testing.T) {
	root := t.TempDir()
	procRoot := filepath.Join(root, "proc")
	sysRoot := filepath.Join(root, "sys")

	testutil.WriteFile(t, root, "proc/cpuinfo",
		"processor\t: 0\nmodel name\t: AMD Ryzen 9 7940HS w/ Radeon 780M Graphics\n\n"+
			"processor\t: 1\nmodel name\t: AMD Ryzen 9 7940HS w/ Radeon 780M Graphics\n\n")
	testutil.WriteFile(t, root, "proc/sys/kernel/osrelease", "6.9.3-arch1-1\n")

	// 4 logical CPUs on 2 physical cores.
	for index, coreID := range []string{"0", "1", "0", "1"} {
		topology := filepath.Join("sys/devices/system/cpu", "cpu"+strconv.Itoa(index), "topology")
		testutil.WriteFile(t, root, filepath.Join(topology, "physical_package_id"), "0\n")
		testutil.WriteFile(t, root, filepath.Join(topology, "core_id"), coreID+"\n")
	}
	// Siblings that are not CPUs.
	testutil.WriteFile(t, root, "sys/devices/system/cpu/cpufreq/boost", "1\n")
	testutil.WriteFile(t, root, "sys/devices/system/cpu/cpuidle/current_driver", "acpi_idle\n")

	dmi := map[string]string{
		"sys_vendor":      "ASUSTeK COMPUTER INC.",
		"product_name":    "ROG Zephyrus G14 GA402XV",
		"product_version": "1.0",
		"board_vendor":    "ASUSTeK COMPUTER INC.",
		"board_name":      "GA402XV",
		"bios_vendor":     "American Megatrends International, LLC.",
		"bios_version":    "GA402XV.317",
		"bios_date":       "02/20/2024",
		"chassis_type":    "10",
	}
	for name, value := range dmi {
		testutil.WriteFile(t, root, filepath.Join("sys/class/dmi/id", name), value+"\n")
	}

	platform := probeFrom(procRoot, sysRoot)

	if platform.SystemVendor != "ASUSTeK COMPUTER INC." {
		t.Errorf("SystemVendor = %q", platform.SystemVendor)
	}
	if platform.ProductName != "ROG Zephyrus G14 GA402XV" || platform.BoardName != "GA402XV" {
		t.Errorf("product/board = %q / %q", platform.ProductName, platform.BoardName)
	}
	if platform.BIOSVersion != "GA402XV.317" || platform.BIOSDate != "02/20/2024" {
		t.Errorf("BIOS = %q %q", platform.BIOSVersion, platform.BIOSDate)
	}
	if platform.ChassisType != ChassisNotebook || !platform.Portable() {
		t.Errorf("ChassisType = %d, Portable = %v", platform.ChassisType, platform.Portable())
	}
	if platform.KernelRelease != "6.9.3-arch1-1" {
		t.Errorf("KernelRelease = %q", platform.KernelRelease)
	}
	if platform.CPUModel != "AMD Ryzen 9 7940HS w/ Radeon 780M Graphics" {
		t.Errorf("CPUModel = %q", platform.CPUModel)
	}
	if platform.LogicalCPUs != 4 || platform.PhysicalCores != 2 {
		t.Errorf("CPUs = %d logical / %d physical, want 4 / 2", platform.LogicalCPUs, platform.PhysicalCores)
	}
	if platform.DaemonVersion == "" {
		t.Error("DaemonVersion is empty")
	}
}

func TestProbeFromEmptyFS(t *testing.T) {
	root := t.TempDir()
	platform := probeFrom(filepath.Join(root, "proc"), filepath.Join(root, "sys"))

	if platform.SystemVendor != "" || platform.CPUModel != "" || platform.KernelRelease != "" {
		t.Errorf("expected empty identity, got %+v", platform)
	}
	if platform.LogicalCPUs != 0 || platform.PhysicalCores != 0 || platform.ChassisType != 0 {
		t.Errorf("expected zero counts, got %+v", platform)
	}
	if platform.Portable() {
		t.Error("unknown chassis reported as portable")
	}
}

func TestProbeLiveSystem(t *testing.T) {
	platform := Probe()
	if platform.KernelRelease == "" {
		t.Error("KernelRelease is empty on a live system")
	}
	if platform.MemoryTotalMB <= 0 {
		t.Errorf("MemoryTotalMB = %d", platform.MemoryTotalMB)
	}
}

func TestIsIndexedName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"cpu0", true},
		{"cpu127", true},
		{"cpu", false},
		{"cpufreq", false},
		{"cpu1a", false},
		{"node0", false},
	}
	for _, test := range tests {
		if got := isIndexedName(test.name, "cpu"); got != test.want {
			t.Errorf("isIndexedName(%q, cpu) = %v, want %v", test.name, got, test.want)
		}
	}
}
