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

// Package transport adapts the goburrow Modbus TCP driver to the hub's
// transport contract.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	gomodbus "github.com/goburrow/modbus"

	"github.com/edgeclimate/acbridge/hub"
)

// TCP is a Modbus TCP transport backed by goburrow/modbus. The driver takes
// the unit id as a mutable handler field, so TCP implements hub.UnitSetter;
// callers serialize access through the hub's bus lock.
type TCP struct {
	handler *gomodbus.TCPClientHandler
	client  gomodbus.Client
}

var (
	_ hub.Transport  = (*TCP)(nil)
	_ hub.UnitSetter = (*TCP)(nil)
)

// NewTCP creates a transport bound to host:port. The timeout bounds every
// socket operation including the dial.
func NewTCP(host string, port int, timeout time.Duration, unit uint8) *TCP {
	h := gomodbus.NewTCPClientHandler(net.JoinHostPort(host, strconv.Itoa(port)))
	h.Timeout = timeout
	h.SlaveId = unit
	return &TCP{
		handler: h,
		client:  gomodbus.NewClient(h),
	}
}

// Factory returns a hub.TransportFactory producing goburrow-backed TCP
// transports.
func Factory() hub.TransportFactory {
	return func(host string, port int, timeout time.Duration, unit uint8) hub.Transport {
		return NewTCP(host, port, timeout, unit)
	}
}

// Connect dials the remote unit.
func (t *TCP) Connect(ctx context.Context) error {
	return t.call(ctx, func() error {
		return t.handler.Connect()
	})
}

// Close closes the TCP connection.
func (t *TCP) Close() error {
	return t.handler.Close()
}

// SetUnitID sets the driver's default unit id for subsequent requests.
func (t *TCP) SetUnitID(id uint8) {
	t.handler.SlaveId = id
}

// ReadHoldingRegisters reads qty holding registers at addr (FC03).
func (t *TCP) ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	var regs []uint16
	err := t.call(ctx, func() error {
		data, err := t.client.ReadHoldingRegisters(addr, qty)
		if err != nil {
			return err
		}
		if len(data) < int(qty)*2 {
			return fmt.Errorf("transport: short register payload: got %d bytes, want %d", len(data), int(qty)*2)
		}
		regs = decodeRegisters(data[:int(qty)*2])
		return nil
	})
	return regs, err
}

// WriteSingleRegister writes one holding register (FC06).
func (t *TCP) WriteSingleRegister(ctx context.Context, addr, value uint16) error {
	return t.call(ctx, func() error {
		_, err := t.client.WriteSingleRegister(addr, value)
		return err
	})
}

// call runs fn while honoring ctx cancellation. The driver does not take a
// context; its own Timeout bounds the socket I/O, and the select surfaces a
// caller-side deadline as context.DeadlineExceeded.
func (t *TCP) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeRegisters(data []byte) []uint16 {
	regs := make([]uint16, len(data)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return regs
}
