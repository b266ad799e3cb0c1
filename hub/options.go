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
	"log/slog"
	"time"
)

// Option is a functional option for configuring the hub.
type Option func(*hubOptions)

type hubOptions struct {
	port             int
	unitID           uint8
	timeout          time.Duration
	reconnectBackoff time.Duration
	probeRegister    uint16

	factory TransportFactory
	logger  *slog.Logger
}

func defaultOptions() *hubOptions {
	return &hubOptions{
		port:             DefaultPort,
		unitID:           DefaultUnitID,
		timeout:          DefaultTimeout,
		reconnectBackoff: DefaultReconnectBackoff,
		probeRegister:    DefaultProbeRegister,
		logger:           slog.Default(),
	}
}

// WithPort sets the TCP port of the remote unit.
func WithPort(port int) Option {
	return func(o *hubOptions) {
		o.port = port
	}
}

// WithUnitID sets the default Modbus unit id for requests.
func WithUnitID(id uint8) Option {
	return func(o *hubOptions) {
		o.unitID = id
	}
}

// WithTimeout sets the timeout bounding each individual bus operation.
func WithTimeout(d time.Duration) Option {
	return func(o *hubOptions) {
		o.timeout = d
	}
}

// WithReconnectBackoff sets the base delay for exponential backoff between
// reconnection attempts.
func WithReconnectBackoff(d time.Duration) Option {
	return func(o *hubOptions) {
		o.reconnectBackoff = d
	}
}

// WithProbeRegister sets the register read after every connect to validate
// that the device is actually serving requests.
func WithProbeRegister(addr uint16) Option {
	return func(o *hubOptions) {
		o.probeRegister = addr
	}
}

// WithTransportFactory sets the factory used to build a fresh transport
// client on every connect.
func WithTransportFactory(f TransportFactory) Option {
	return func(o *hubOptions) {
		o.factory = f
	}
}

// WithLogger sets the logger for the hub.
func WithLogger(logger *slog.Logger) Option {
	return func(o *hubOptions) {
		o.logger = logger
	}
}

// WriteOption is a per-call option for WriteRegister.
type WriteOption func(*writeOptions)

type writeOptions struct {
	unit     *uint8
	verify   bool
	expected *uint16
}

// WriteWithUnit overrides the configured unit id for this write (and its
// verify read, if any).
func WriteWithUnit(id uint8) WriteOption {
	return func(o *writeOptions) {
		o.unit = &id
	}
}

// WriteWithVerify requests a readback after the write, comparing against the
// written value unless WriteWithExpected is also given.
func WriteWithVerify() WriteOption {
	return func(o *writeOptions) {
		o.verify = true
	}
}

// WriteWithExpected sets the expected readback value and implies verify.
func WriteWithExpected(v uint16) WriteOption {
	return func(o *writeOptions) {
		o.verify = true
		o.expected = &v
	}
}
