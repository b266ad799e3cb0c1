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

// Package hub owns the Modbus TCP link to a single air-conditioning unit. It
// serializes all bus traffic through one lock, bounds every operation with a
// timeout, tracks connection state and errors, and reconnects with
// exponential backoff. Raw frame handling is delegated to a swappable
// transport client built by a TransportFactory on every connect.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"time"
)

// Defaults for hub construction parameters.
const (
	DefaultPort             = 502
	DefaultUnitID           = 1
	DefaultTimeout          = 3 * time.Second
	DefaultReconnectBackoff = 5 * time.Second

	// DefaultProbeRegister is the power-state register on the supported
	// units, read after every connect to validate the link end to end.
	DefaultProbeRegister uint16 = 1033

	// maxReconnectDelay caps the exponential backoff.
	maxReconnectDelay = 60 * time.Second
)

// Transport is the minimal capability the hub requires from a raw Modbus TCP
// driver. A fresh transport is built for every connect attempt; the hub owns
// at most one live transport at a time.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error)
	WriteSingleRegister(ctx context.Context, addr, value uint16) error
}

// UnitTransport is an optional transport extension for drivers that address
// the target unit id per call.
type UnitTransport interface {
	ReadHoldingRegistersUnit(ctx context.Context, unit uint8, addr, qty uint16) ([]uint16, error)
	WriteSingleRegisterUnit(ctx context.Context, unit uint8, addr, value uint16) error
}

// UnitSetter is an optional transport extension for drivers that expose the
// unit id as a mutable client default.
type UnitSetter interface {
	SetUnitID(id uint8)
}

// TransportFactory builds a transport bound to host:port with the given
// operation timeout and default unit id.
type TransportFactory func(host string, port int, timeout time.Duration, unit uint8) Transport

// Status is a point-in-time snapshot of the hub's connection state.
type Status struct {
	Host            string    `json:"host"`
	Port            int       `json:"port"`
	UnitID          uint8     `json:"unit_id"`
	Connected       bool      `json:"connected"`
	ConnectedAt     time.Time `json:"connected_at,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorTime   time.Time `json:"last_error_time,omitempty"`
	LastSuccessTime time.Time `json:"last_success_time,omitempty"`
	BackoffCount    int       `json:"backoff_count"`
}

// Hub is the single point of truth for the physical link to one unit.
type Hub struct {
	host             string
	port             int
	unitID           uint8
	timeout          time.Duration
	reconnectBackoff time.Duration
	probeRegister    uint16
	factory          TransportFactory
	logger           *slog.Logger
	metrics          *Metrics

	mu              sync.Mutex
	transport       Transport
	connected       bool
	connectedAt     time.Time
	lastError       string
	lastErrorTime   time.Time
	lastSuccessTime time.Time
	backoffCount    int
}

// New creates a hub for the unit at host. The transport factory is required;
// see the transport package for the Modbus TCP implementation.
func New(host string, opts ...Option) (*Hub, error) {
	if host == "" {
		return nil, errors.New("hub: host cannot be empty")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.factory == nil {
		return nil, ErrNoTransport
	}
	if options.port < 1 || options.port > 65535 {
		return nil, fmt.Errorf("hub: port %d out of range", options.port)
	}
	if options.timeout <= 0 {
		return nil, fmt.Errorf("hub: timeout must be positive, got %v", options.timeout)
	}

	return &Hub{
		host:             host,
		port:             options.port,
		unitID:           options.unitID,
		timeout:          options.timeout,
		reconnectBackoff: options.reconnectBackoff,
		probeRegister:    options.probeRegister,
		factory:          options.factory,
		logger:           options.logger,
		metrics:          NewMetrics(),
	}, nil
}

// Addr returns the host:port of the unit.
func (h *Hub) Addr() string {
	return net.JoinHostPort(h.host, strconv.Itoa(h.port))
}

// UnitID returns the configured default unit id.
func (h *Hub) UnitID() uint8 { return h.unitID }

// Timeout returns the per-operation timeout.
func (h *Hub) Timeout() time.Duration { return h.timeout }

// Metrics returns the hub metrics.
func (h *Hub) Metrics() *Metrics { return h.metrics }

// IsConnected returns true if the hub believes the link is up.
func (h *Hub) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Status returns a snapshot of the connection state.
func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{
		Host:            h.host,
		Port:            h.port,
		UnitID:          h.unitID,
		Connected:       h.connected,
		ConnectedAt:     h.connectedAt,
		LastError:       h.lastError,
		LastErrorTime:   h.lastErrorTime,
		LastSuccessTime: h.lastSuccessTime,
		BackoffCount:    h.backoffCount,
	}
}

// Connect establishes a fresh transport connection and validates it with a
// probe read. Any existing transport is closed and discarded first. On
// failure the backoff count increments; on success it resets to zero.
func (h *Hub) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connectLocked(ctx)
}

func (h *Hub) connectLocked(ctx context.Context) error {
	if h.transport != nil {
		h.transport.Close() // best effort
		h.transport = nil
	}
	h.connected = false

	t := h.factory(h.host, h.port, h.timeout, h.unitID)

	h.logger.Debug("connecting",
		slog.String("addr", h.Addr()),
		slog.Uint64("unit_id", uint64(h.unitID)))

	dialCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := t.Connect(dialCtx)
	cancel()
	if err != nil {
		t.Close()
		h.backoffCount++
		h.recordErrorLocked(fmt.Sprintf("connect %s: %v", h.Addr(), err))
		return &ConnectError{Addr: h.Addr(), Err: err}
	}

	// A TCP connect can succeed while the device is not yet serving Modbus
	// frames, so the probe read is mandatory.
	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	_, err = readRegisters(probeCtx, t, h.unitID, h.probeRegister, 1)
	cancel()
	if err != nil {
		t.Close()
		h.backoffCount++
		h.recordErrorLocked(fmt.Sprintf("probe read register %d: %v", h.probeRegister, err))
		return &ConnectError{Addr: h.Addr(), Err: fmt.Errorf("probe read register %d: %w", h.probeRegister, err)}
	}

	h.transport = t
	h.connected = true
	h.connectedAt = time.Now()
	h.backoffCount = 0

	h.logger.Info("connected",
		slog.String("addr", h.Addr()),
		slog.Uint64("unit_id", uint64(h.unitID)))
	return nil
}

// Disconnect closes the transport if present and clears the connected flag.
// Safe to call when already disconnected.
func (h *Hub) Disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.transport != nil {
		h.transport.Close() // best effort
		h.transport = nil
	}
	h.connected = false
	h.logger.Debug("disconnected", slog.String("addr", h.Addr()))
}

// Reconnect waits out the current backoff delay and then connects. The delay
// is reconnectBackoff * 2^(backoffCount-1), capped at 60s, and skipped
// entirely when the backoff count is zero.
func (h *Hub) Reconnect(ctx context.Context) error {
	h.mu.Lock()
	count := h.backoffCount
	h.mu.Unlock()

	if count > 0 {
		delay := time.Duration(math.Min(
			float64(h.reconnectBackoff)*math.Pow(2, float64(count-1)),
			float64(maxReconnectDelay),
		))
		h.logger.Debug("reconnect backoff",
			slog.Int("backoff_count", count),
			slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	h.metrics.Reconnects.Add(1)
	return h.Connect(ctx)
}

// ensureConnected lazily connects if the link is down. The lazy path calls
// Connect directly, without the backoff delay: a degraded link must not
// silently impose latency on first access.
func (h *Hub) ensureConnected(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected && h.transport != nil {
		return nil
	}
	return h.connectLocked(ctx)
}

// ReadRegister reads one holding register using the configured unit id.
func (h *Hub) ReadRegister(ctx context.Context, addr uint16) (uint16, error) {
	return h.ReadRegisterWithUnit(ctx, h.unitID, addr)
}

// ReadRegisterWithUnit reads one holding register using a specific unit id.
func (h *Hub) ReadRegisterWithUnit(ctx context.Context, unit uint8, addr uint16) (uint16, error) {
	regs, err := h.read(ctx, unit, addr, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

// read performs a bounded, lock-serialized holding-register read. Reads of
// count > 1 are supported by the transport; the public surface currently
// consumes only the first register.
func (h *Hub) read(ctx context.Context, unit uint8, addr, count uint16) ([]uint16, error) {
	if err := h.ensureConnected(ctx); err != nil {
		return nil, &ReadError{Register: addr, Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connected || h.transport == nil {
		return nil, ErrNotConnected
	}

	opCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	h.metrics.ReadsTotal.Add(1)

	regs, err := readRegisters(opCtx, h.transport, unit, addr, count)
	if err != nil {
		h.metrics.ErrorsTotal.Add(1)
		if IsTimeout(err) {
			h.connected = false
			h.recordErrorLocked(fmt.Sprintf("read timeout at register %d", addr))
			return nil, fmt.Errorf("%w: read register %d", ErrTimeout, addr)
		}
		h.recordErrorLocked(fmt.Sprintf("read register %d: %v", addr, err))
		return nil, &ReadError{Register: addr, Err: err}
	}
	if len(regs) < int(count) {
		h.metrics.ErrorsTotal.Add(1)
		h.recordErrorLocked(fmt.Sprintf("read register %d: short response", addr))
		return nil, &ReadError{Register: addr, Err: errors.New("short response")}
	}

	h.lastSuccessTime = time.Now()
	h.metrics.Latency.Observe(time.Since(start))

	h.logger.Debug("read register",
		slog.Uint64("register", uint64(addr)),
		slog.Uint64("value", uint64(regs[0])))
	return regs, nil
}

// WriteRegister writes one holding register. With WriteWithVerify a separate
// readback is compared against the expected value (default: the written
// value); a mismatch returns *VerifyError. The bus lock covers the write and
// the verify read individually, not the pair: a concurrent writer between
// the two can cause a spurious mismatch, an accepted tradeoff favoring
// simplicity over read-after-write atomicity.
func (h *Hub) WriteRegister(ctx context.Context, addr, value uint16, opts ...WriteOption) error {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	unit := h.unitID
	if o.unit != nil {
		unit = *o.unit
	}

	if err := h.doWrite(ctx, unit, addr, value); err != nil {
		return err
	}
	if !o.verify {
		return nil
	}

	expected := value
	if o.expected != nil {
		expected = *o.expected
	}
	got, err := h.ReadRegisterWithUnit(ctx, unit, addr)
	if err != nil {
		return fmt.Errorf("verify read register %d: %w", addr, err)
	}
	if got != expected {
		verr := &VerifyError{Register: addr, Wrote: value, Expected: expected, Got: got}
		h.recordError(verr.Error())
		return verr
	}
	return nil
}

func (h *Hub) doWrite(ctx context.Context, unit uint8, addr, value uint16) error {
	if err := h.ensureConnected(ctx); err != nil {
		return &WriteError{Register: addr, Value: value, Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connected || h.transport == nil {
		return ErrNotConnected
	}

	opCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	h.metrics.WritesTotal.Add(1)

	if err := writeRegister(opCtx, h.transport, unit, addr, value); err != nil {
		h.metrics.ErrorsTotal.Add(1)
		if IsTimeout(err) {
			h.connected = false
			h.recordErrorLocked(fmt.Sprintf("write timeout at register %d", addr))
			return fmt.Errorf("%w: write register %d", ErrTimeout, addr)
		}
		h.recordErrorLocked(fmt.Sprintf("write register %d = %d: %v", addr, value, err))
		return &WriteError{Register: addr, Value: value, Err: err}
	}

	h.lastSuccessTime = time.Now()
	h.metrics.Latency.Observe(time.Since(start))

	h.logger.Debug("wrote register",
		slog.Uint64("register", uint64(addr)),
		slog.Uint64("value", uint64(value)))
	return nil
}

func (h *Hub) recordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recordErrorLocked(msg)
}

// recordErrorLocked records an error for diagnostics. Must be called with mu
// held.
func (h *Hub) recordErrorLocked(msg string) {
	h.lastError = msg
	h.lastErrorTime = time.Now()
	h.logger.Warn("modbus error", slog.String("error", msg))
}
