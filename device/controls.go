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

package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgeclimate/acbridge/hub"
)

// Precondition errors. The unit rejects some writes depending on power
// state; controls enforce this before touching the bus.
var (
	// ErrPowerRequired indicates the control needs the unit powered on.
	ErrPowerRequired = errors.New("device: power must be on")

	// ErrPowerOn indicates the operating mode can only change while the
	// unit is powered off.
	ErrPowerOn = errors.New("device: power must be off to change mode")
)

// Bus is the write capability controls need from the hub.
type Bus interface {
	WriteRegister(ctx context.Context, addr, value uint16, opts ...hub.WriteOption) error
}

// Cache is the cached-state capability controls need from the coordinator.
type Cache interface {
	Available() bool
	Register(addr uint16) (uint16, bool)
	Store(addr, value uint16)
}

// Switch is a boolean register control.
type Switch struct {
	bus   Bus
	cache Cache

	name          string
	register      uint16
	requiresPower bool
}

// NewPowerSwitch creates the main power control.
func NewPowerSwitch(bus Bus, cache Cache) *Switch {
	return &Switch{bus: bus, cache: cache, name: "power", register: RegPower}
}

// NewHomeAwaySwitch creates the home/away control. Writable only while the
// unit is powered on.
func NewHomeAwaySwitch(bus Bus, cache Cache) *Switch {
	return &Switch{bus: bus, cache: cache, name: "home_away", register: RegHomeAway, requiresPower: true}
}

// NewHumidifySwitch creates the humidify control. Writable only while the
// unit is powered on.
func NewHumidifySwitch(bus Bus, cache Cache) *Switch {
	return &Switch{bus: bus, cache: cache, name: "humidify", register: RegHumidify, requiresPower: true}
}

// Name returns the switch name.
func (s *Switch) Name() string { return s.name }

// Register returns the backing register address.
func (s *Switch) Register() uint16 { return s.register }

// State returns the cached switch state. ok is false when the coordinator is
// unavailable or the register is not cached.
func (s *Switch) State() (on, ok bool) {
	if !s.cache.Available() {
		return false, false
	}
	v, ok := s.cache.Register(s.register)
	if !ok {
		return false, false
	}
	return v == 1, true
}

// Set writes the switch state with verification and writes the new value
// through to the cache.
func (s *Switch) Set(ctx context.Context, on bool) error {
	if s.requiresPower {
		pv, ok := s.cache.Register(RegPower)
		if !ok || pv != 1 {
			return fmt.Errorf("set %s: %w", s.name, ErrPowerRequired)
		}
	}
	var value uint16
	if on {
		value = 1
	}
	if err := s.bus.WriteRegister(ctx, s.register, value, hub.WriteWithVerify()); err != nil {
		return fmt.Errorf("set %s: %w", s.name, err)
	}
	s.cache.Store(s.register, value)
	return nil
}

// ModeSelect changes the operating mode. The unit only accepts mode writes
// while powered off.
type ModeSelect struct {
	bus   Bus
	cache Cache
	modes ModeMap
}

// NewModeSelect creates a mode selector. A nil modes falls back to the
// factory mapping.
func NewModeSelect(bus Bus, cache Cache, modes ModeMap) *ModeSelect {
	if modes == nil {
		modes = DefaultModeMap()
	}
	return &ModeSelect{bus: bus, cache: cache, modes: modes}
}

// Options returns the selectable mode names ordered by register value.
func (m *ModeSelect) Options() []string { return m.modes.Options() }

// Current returns the cached mode name.
func (m *ModeSelect) Current() (string, bool) {
	if !m.cache.Available() {
		return "", false
	}
	v, ok := m.cache.Register(RegMode)
	if !ok {
		return "", false
	}
	return m.modes.Name(v)
}

// Select writes the mode register with verification. Fails with ErrPowerOn
// when the unit is powered on.
func (m *ModeSelect) Select(ctx context.Context, name string) error {
	value, ok := m.modes.Value(name)
	if !ok {
		return fmt.Errorf("device: unknown mode %q", name)
	}
	if pv, ok := m.cache.Register(RegPower); ok && pv == 1 {
		return fmt.Errorf("select mode %q: %w", name, ErrPowerOn)
	}
	if err := m.bus.WriteRegister(ctx, RegMode, value, hub.WriteWithVerify()); err != nil {
		return fmt.Errorf("select mode %q: %w", name, err)
	}
	m.cache.Store(RegMode, value)
	return nil
}

// ModeSensor reports the current mode regardless of power state. Read-only;
// use ModeSelect to change the mode.
type ModeSensor struct {
	cache Cache
	modes ModeMap
}

// NewModeSensor creates a mode sensor. A nil modes falls back to the factory
// mapping.
func NewModeSensor(cache Cache, modes ModeMap) *ModeSensor {
	if modes == nil {
		modes = DefaultModeMap()
	}
	return &ModeSensor{cache: cache, modes: modes}
}

// Current returns the cached mode name.
func (s *ModeSensor) Current() (string, bool) {
	if !s.cache.Available() {
		return "", false
	}
	v, ok := s.cache.Register(RegMode)
	if !ok {
		return "", false
	}
	return s.modes.Name(v)
}
