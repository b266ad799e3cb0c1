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

package hub

import (
	"context"
	"errors"
)

// Transport drivers differ in how the target unit id is addressed: some take
// it per call, some expose a mutable client default, some only support a
// fixed default chosen at dial time. The hub tries a fixed ladder of calling
// conventions so it does not depend on any particular driver's call shape.
// A convention the transport does not implement means "try the next one";
// any I/O error is final and no further conventions are attempted.

var errConventionUnsupported = errors.New("hub: calling convention not supported by transport")

type readConvention func(ctx context.Context, t Transport, unit uint8, addr, qty uint16) ([]uint16, error)

type writeConvention func(ctx context.Context, t Transport, unit uint8, addr, value uint16) error

var readConventions = []readConvention{
	// Per-call unit id.
	func(ctx context.Context, t Transport, unit uint8, addr, qty uint16) ([]uint16, error) {
		ut, ok := t.(UnitTransport)
		if !ok {
			return nil, errConventionUnsupported
		}
		return ut.ReadHoldingRegistersUnit(ctx, unit, addr, qty)
	},
	// Mutable client default. Callers hold the bus lock, so the set-then-call
	// pair cannot interleave with another operation.
	func(ctx context.Context, t Transport, unit uint8, addr, qty uint16) ([]uint16, error) {
		us, ok := t.(UnitSetter)
		if !ok {
			return nil, errConventionUnsupported
		}
		us.SetUnitID(unit)
		return t.ReadHoldingRegisters(ctx, addr, qty)
	},
	// Fixed default chosen when the transport was built.
	func(ctx context.Context, t Transport, _ uint8, addr, qty uint16) ([]uint16, error) {
		return t.ReadHoldingRegisters(ctx, addr, qty)
	},
}

var writeConventions = []writeConvention{
	func(ctx context.Context, t Transport, unit uint8, addr, value uint16) error {
		ut, ok := t.(UnitTransport)
		if !ok {
			return errConventionUnsupported
		}
		return ut.WriteSingleRegisterUnit(ctx, unit, addr, value)
	},
	func(ctx context.Context, t Transport, unit uint8, addr, value uint16) error {
		us, ok := t.(UnitSetter)
		if !ok {
			return errConventionUnsupported
		}
		us.SetUnitID(unit)
		return t.WriteSingleRegister(ctx, addr, value)
	},
	func(ctx context.Context, t Transport, _ uint8, addr, value uint16) error {
		return t.WriteSingleRegister(ctx, addr, value)
	},
}

func readRegisters(ctx context.Context, t Transport, unit uint8, addr, qty uint16) ([]uint16, error) {
	for _, conv := range readConventions {
		regs, err := conv(ctx, t, unit, addr, qty)
		if errors.Is(err, errConventionUnsupported) {
			continue
		}
		return regs, err
	}
	return nil, errConventionUnsupported
}

func writeRegister(ctx context.Context, t Transport, unit uint8, addr, value uint16) error {
	for _, conv := range writeConventions {
		err := conv(ctx, t, unit, addr, value)
		if errors.Is(err, errConventionUnsupported) {
			continue
		}
		return err
	}
	return errConventionUnsupported
}
