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

// Package config loads and validates device profiles.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edgeclimate/acbridge/device"
)

// Defaults and boundary constraints.
const (
	DefaultPort                    = 502
	DefaultUnitID                  = 1
	DefaultTimeoutSeconds          = 3
	DefaultPollIntervalSeconds     = 10
	DefaultReconnectBackoffSeconds = 5

	// MinPollIntervalSeconds is the lowest accepted poll interval.
	MinPollIntervalSeconds = 5
)

// Profile describes one air-conditioning unit.
type Profile struct {
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	UnitID                  int     `yaml:"unit_id"`
	TimeoutSeconds          float64 `yaml:"timeout"`
	PollIntervalSeconds     float64 `yaml:"poll_interval"`
	ReconnectBackoffSeconds float64 `yaml:"reconnect_backoff"`

	// Registers overrides the default polled register set.
	Registers []uint16 `yaml:"registers"`

	// ModeMap overrides the factory mode mapping.
	ModeMap map[uint16]string `yaml:"mode_map"`
}

// Load reads, normalizes, and validates a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &p, nil
}

// Timeout returns the per-operation timeout as a duration.
func (p *Profile) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds * float64(time.Second))
}

// PollInterval returns the poll interval as a duration.
func (p *Profile) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds * float64(time.Second))
}

// ReconnectBackoff returns the reconnect backoff base as a duration.
func (p *Profile) ReconnectBackoff() time.Duration {
	return time.Duration(p.ReconnectBackoffSeconds * float64(time.Second))
}

// Modes returns the effective mode mapping.
func (p *Profile) Modes() device.ModeMap {
	if len(p.ModeMap) == 0 {
		return device.DefaultModeMap()
	}
	return device.ModeMap(p.ModeMap)
}
