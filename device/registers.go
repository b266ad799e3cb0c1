// Copyright 2026 Edge Climate Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package device maps the air-conditioning unit's register layout to typed
// controls: switches for power, home/away and humidify, a mode selector, and
// a read-only mode sensor. Controls read from the coordinator's cache and
// write through the hub with verification.
package device

import "sort"

// Holding register addresses of the supported units.
const (
	// RegPower is the power switch: 0=off, 1=on.
	RegPower uint16 = 1033

	// RegHomeAway selects home/away: 0=away, 1=home. Requires power on.
	RegHomeAway uint16 = 1034

	// RegMode is the operating mode. Writable only while power is off.
	RegMode uint16 = 1041

	// RegHumidify toggles humidification: 0=off, 1=on. Requires power on.
	RegHumidify uint16 = 1168
)

// DefaultRegisters returns the register set polled by default, in polling
// order.
func DefaultRegisters() []uint16 {
	return []uint16{RegPower, RegHomeAway, RegMode, RegHumidify}
}

// ModeMap maps mode register values to mode names.
type ModeMap map[uint16]string

// DefaultModeMap returns the factory mode mapping.
func DefaultModeMap() ModeMap {
	return ModeMap{
		1: "cool",
		2: "heat",
		3: "fan_only",
		4: "dry",
	}
}

// Name returns the mode name for a register value.
func (m ModeMap) Name(value uint16) (string, bool) {
	name, ok := m[value]
	return name, ok
}

// Value returns the register value for a mode name.
func (m ModeMap) Value(name string) (uint16, bool) {
	for v, n := range m {
		if n == name {
			return v, true
		}
	}
	return 0, false
}

// Options returns the mode names ordered by register value.
func (m ModeMap) Options() []string {
	values := make([]int, 0, len(m))
	for v := range m {
		values = append(values, int(v))
	}
	sort.Ints(values)
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = m[uint16(v)]
	}
	return names
}
