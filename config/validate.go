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

import (
	"errors"
	"fmt"
)

// Validate enforces the boundary constraints. Call after Normalize.
func (p *Profile) Validate() error {
	if p.Host == "" {
		return errors.New("host required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", p.Port)
	}
	if p.UnitID < 1 || p.UnitID > 247 {
		return fmt.Errorf("unit_id %d out of range 1-247", p.UnitID)
	}
	if p.PollIntervalSeconds < MinPollIntervalSeconds {
		return fmt.Errorf("poll_interval %.1fs below minimum %ds", p.PollIntervalSeconds, MinPollIntervalSeconds)
	}
	if p.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout %.1fs must be positive", p.TimeoutSeconds)
	}
	// An operation slower than the poll period would stack cycles.
	if p.TimeoutSeconds >= p.PollIntervalSeconds {
		return fmt.Errorf("timeout %.1fs must be less than poll_interval %.1fs", p.TimeoutSeconds, p.PollIntervalSeconds)
	}
	if p.ReconnectBackoffSeconds <= 0 {
		return fmt.Errorf("reconnect_backoff %.1fs must be positive", p.ReconnectBackoffSeconds)
	}
	if len(p.Registers) == 0 {
		return errors.New("at least one register required")
	}
	seen := make(map[string]bool, len(p.ModeMap))
	for value, name := range p.ModeMap {
		if name == "" {
			return fmt.Errorf("mode_map value %d has an empty name", value)
		}
		if seen[name] {
			return fmt.Errorf("mode_map name %q mapped twice", name)
		}
		seen[name] = true
	}
	return nil
}
