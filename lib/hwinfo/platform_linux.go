// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/platformd/lib/version"
)

// Probe reads the running machine's Platform.
func Probe() Platform {
	platform := probeFrom("/proc", "/sys")
	if platform.KernelRelease == "" {
		platform.KernelRelease = unameRelease()
	}
	platform.MemoryTotalMB = memoryTotalMB()
	return platform
}

// probeFrom reads everything that comes from files, rooted at procRoot
// and sysRoot so tests can point it at synthetic trees.
func probeFrom(procRoot, sysRoot string) Platform {
	dmi := filepath.Join(sysRoot, "class/dmi/id")
	cpuBase := filepath.Join(sysRoot, "devices/system/cpu")

	logical, physical := countCPUs(cpuBase)
	return Platform{
		SystemVendor:   ReadSysfsString(filepath.Join(dmi, "sys_vendor")),
		ProductName:    ReadSysfsString(filepath.Join(dmi, "product_name")),
		ProductVersion: ReadSysfsString(filepath.Join(dmi, "product_version")),
		BoardVendor:    ReadSysfsString(filepath.Join(dmi, "board_vendor")),
		BoardName:      ReadSysfsString(filepath.Join(dmi, "board_name")),
		BIOSVendor:     ReadSysfsString(filepath.Join(dmi, "bios_vendor")),
		BIOSVersion:    ReadSysfsString(filepath.Join(dmi, "bios_version")),
		BIOSDate:       ReadSysfsString(filepath.Join(dmi, "bios_date")),
		ChassisType:    ReadSysfsInt(filepath.Join(dmi, "chassis_type")),
		KernelRelease:  ReadSysfsString(filepath.Join(procRoot, "sys/kernel/osrelease")),
		CPUModel:       readCPUModel(filepath.Join(procRoot, "cpuinfo")),
		LogicalCPUs:    logical,
		PhysicalCores:  physical,
		DaemonVersion:  version.Info(),
	}
}

func unameRelease() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return ""
	}
	return unix.ByteSliceToString(utsname.Release[:])
}

func memoryTotalMB() int {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return int(uint64(info.Totalram) * uint64(info.Unit) / (1024 * 1024))
}

// readCPUModel returns the first "model name" in /proc/cpuinfo.
func readCPUModel(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if found && strings.TrimSpace(key) == "model name" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// countCPUs counts cpuN directories and the distinct
// (physical_package_id, core_id) pairs among them.
func countCPUs(cpuBase string) (logical, physical int) {
	entries, err := os.ReadDir(cpuBase)
	if err != nil {
		return 0, 0
	}

	type coreKey struct {
		packageID string
		coreID    string
	}
	cores := make(map[coreKey]struct{})
	for _, entry := range entries {
		if !isIndexedName(entry.Name(), "cpu") {
			continue
		}
		logical++
		topology := filepath.Join(cpuBase, entry.Name(), "topology")
		key := coreKey{
			packageID: ReadSysfsString(filepath.Join(topology, "physical_package_id")),
			coreID:    ReadSysfsString(filepath.Join(topology, "core_id")),
		}
		if key.packageID != "" && key.coreID != "" {
			cores[key] = struct{}{}
		}
	}
	return logical, len(cores)
}
