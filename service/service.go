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

// Package service provides stateless diagnostic and ad-hoc control operations
// built directly on the hub: a verified single-register write that reports
// failure as data, and a bounded register scan that never aborts early.
package service

import (
	"context"
	"fmt"

	"github.com/edgeclimate/acbridge/hub"
)

// MaxScanRange is the maximum number of registers one scan may touch.
const MaxScanRange = 100

// Bus is the hub capability the service operations require.
type Bus interface {
	ReadRegister(ctx context.Context, addr uint16) (uint16, error)
	ReadRegisterWithUnit(ctx context.Context, unit uint8, addr uint16) (uint16, error)
	WriteRegister(ctx context.Context, addr, value uint16, opts ...hub.WriteOption) error
	UnitID() uint8
}

// WriteRequest describes one verified register write.
type WriteRequest struct {
	Register uint16  `json:"register"`
	Value    uint16  `json:"value"`
	UnitID   *uint8  `json:"unit_id,omitempty"`
	NoVerify bool    `json:"no_verify,omitempty"`
	Expected *uint16 `json:"expected,omitempty"`
}

// WriteResult reports the outcome of a write. Failures populate Error instead
// of propagating: ad-hoc operations report failure as data.
type WriteResult struct {
	Register uint16  `json:"register"`
	Value    uint16  `json:"value"`
	UnitID   uint8   `json:"unit_id"`
	Verified bool    `json:"verified"`
	Readback *uint16 `json:"readback,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// WriteRegister writes req.Register and, unless NoVerify is set, verifies the
// readback. Verification mismatches and any other hub error become a
// structured result with Verified=false and Error populated. On verified
// success one extra read reports the value actually held by the device.
func WriteRegister(ctx context.Context, bus Bus, req WriteRequest) WriteResult {
	res := WriteResult{
		Register: req.Register,
		Value:    req.Value,
		UnitID:   bus.UnitID(),
	}

	var opts []hub.WriteOption
	if req.UnitID != nil {
		res.UnitID = *req.UnitID
		opts = append(opts, hub.WriteWithUnit(*req.UnitID))
	}
	if !req.NoVerify {
		opts = append(opts, hub.WriteWithVerify())
		if req.Expected != nil {
			opts = append(opts, hub.WriteWithExpected(*req.Expected))
		}
	}

	if err := bus.WriteRegister(ctx, req.Register, req.Value, opts...); err != nil {
		res.Error = err.Error()
		return res
	}

	if req.NoVerify {
		return res
	}
	res.Verified = true

	// Distinct from the hub's internal verify read: this one reports the
	// value back to the caller.
	readback, err := readRegister(ctx, bus, req.UnitID, req.Register)
	if err == nil {
		res.Readback = &readback
	}
	return res
}

// RegisterError describes one failed read within a scan.
type RegisterError struct {
	Register uint16 `json:"register"`
	Error    string `json:"error"`
}

// ScanRequest describes an inclusive register range scan.
type ScanRequest struct {
	Start  uint16 `json:"start"`
	End    uint16 `json:"end"`
	Step   uint16 `json:"step,omitempty"`
	UnitID *uint8 `json:"unit_id,omitempty"`
}

// ScanResult partitions every attempted address between Results and Errors;
// no address is missing from both.
type ScanResult struct {
	Start   uint16            `json:"start"`
	End     uint16            `json:"end"`
	Step    uint16            `json:"step"`
	UnitID  uint8             `json:"unit_id"`
	Results map[uint16]uint16 `json:"results"`
	Errors  []RegisterError   `json:"errors,omitempty"`
}

// ScanRange reads every register in [Start, End] stepping by Step. The range
// size is validated before any bus I/O; one bad register never prevents
// reading the rest of the range.
func ScanRange(ctx context.Context, bus Bus, req ScanRequest) (*ScanResult, error) {
	if req.Step == 0 {
		req.Step = 1
	}
	if req.End < req.Start {
		return nil, fmt.Errorf("service: scan end %d before start %d", req.End, req.Start)
	}
	count := int(req.End-req.Start)/int(req.Step) + 1
	if count > MaxScanRange {
		return nil, fmt.Errorf("service: scan range of %d registers exceeds maximum %d", count, MaxScanRange)
	}

	res := &ScanResult{
		Start:   req.Start,
		End:     req.End,
		Step:    req.Step,
		UnitID:  bus.UnitID(),
		Results: make(map[uint16]uint16, count),
	}
	if req.UnitID != nil {
		res.UnitID = *req.UnitID
	}

	// uint32 arithmetic avoids wrapping past address 65535.
	for addr := uint32(req.Start); addr <= uint32(req.End); addr += uint32(req.Step) {
		a := uint16(addr)
		value, err := readRegister(ctx, bus, req.UnitID, a)
		if err != nil {
			res.Errors = append(res.Errors, RegisterError{Register: a, Error: err.Error()})
			continue
		}
		res.Results[a] = value
	}
	return res, nil
}

func readRegister(ctx context.Context, bus Bus, unit *uint8, addr uint16) (uint16, error) {
	if unit != nil {
		return bus.ReadRegisterWithUnit(ctx, *unit, addr)
	}
	return bus.ReadRegister(ctx, addr)
}
