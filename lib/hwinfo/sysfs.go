// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"os"
	"strconv"
	"strings"
)

// ReadSysfsString reads a single-line sysfs file and returns its
// trimmed content. Returns "" on any error.
func ReadSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ReadSysfsInt reads an integer from a sysfs file. Returns 0 on error.
func ReadSysfsInt(path string) int {
	result, err := strconv.Atoi(ReadSysfsString(path))
	if err != nil {
		return 0
	}
	return result
}

// isIndexedName reports whether name is prefix followed by one or more
// decimal digits, as in cpu12 or node0.
func isIndexedName(name, prefix string) bool {
	suffix, found := strings.CutPrefix(name, prefix)
	if !found || suffix == "" {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}
