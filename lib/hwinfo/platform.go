// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

// Platform describes the machine. Every field is optional.
type Platform struct {
	SystemVendor   string `cbor:"system_vendor,omitempty"`
	ProductName    string `cbor:"product_name,omitempty"`
	ProductVersion string `cbor:"product_version,omitempty"`
	BoardVendor    string `cbor:"board_vendor,omitempty"`
	BoardName      string `cbor:"board_name,omitempty"`
	BIOSVendor     string `cbor:"bios_vendor,omitempty"`
	BIOSVersion    string `cbor:"bios_version,omitempty"`
	BIOSDate       string `cbor:"bios_date,omitempty"`

	// ChassisType is the raw SMBIOS chassis type code; see Portable.
	ChassisType int `cbor:"chassis_type,omitempty"`

	KernelRelease string `cbor:"kernel_release,omitempty"`
	CPUModel      string `cbor:"cpu_model,omitempty"`
	LogicalCPUs   int    `cbor:"logical_cpus,omitempty"`
	PhysicalCores int    `cbor:"physical_cores,omitempty"`
	MemoryTotalMB int    `cbor:"memory_total_mb,omitempty"`

	DaemonVersion string `cbor:"daemon_version,omitempty"`
}

// SMBIOS chassis types that denote a portable machine.
const (
	ChassisPortable    = 8
	ChassisLaptop      = 9
	ChassisNotebook    = 10
	ChassisSubNotebook = 14
	ChassisConvertible = 31
	ChassisDetachable  = 32
)

// Portable reports whether the chassis type is one of the laptop-like
// SMBIOS types.
func (p Platform) Portable() bool {
	switch p.ChassisType {
	case ChassisPortable, ChassisLaptop, ChassisNotebook, ChassisSubNotebook, ChassisConvertible, ChassisDetachable:
		return true
	}
	return false
}
