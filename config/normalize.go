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

package config

import "github.com/edgeclimate/acbridge/device"

// Normalize fills unset fields with defaults. Zero values are treated as
// unset; a profile never legitimately carries them.
func (p *Profile) Normalize() {
	if p.ID == "" {
		p.ID = p.Host
	}
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.UnitID == 0 {
		p.UnitID = DefaultUnitID
	}
	if p.TimeoutSeconds == 0 {
		p.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if p.PollIntervalSeconds == 0 {
		p.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if p.ReconnectBackoffSeconds == 0 {
		p.ReconnectBackoffSeconds = DefaultReconnectBackoffSeconds
	}
	if len(p.Registers) == 0 {
		p.Registers = device.DefaultRegisters()
	}
}
