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

// Package poll turns the hub's point-in-time register operations into a
// cache-backed view with availability semantics. A refresh cycle is
// all-or-nothing: the cache is replaced wholesale on full success and left
// untouched on any failure, so consumers never see a partial merge.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the default polling interval.
const DefaultInterval = 10 * time.Second

// Reader is the register-read capability the coordinator needs from the hub.
type Reader interface {
	ReadRegister(ctx context.Context, addr uint16) (uint16, error)
}

// Status is a snapshot of the coordinator's availability state.
type Status struct {
	Available         bool      `json:"available"`
	LastUpdate        time.Time `json:"last_update,omitempty"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
}

// Coordinator periodically refreshes a tracked set of registers into a cache.
type Coordinator struct {
	reader   Reader
	interval time.Duration
	logger   *slog.Logger

	// refreshMu serializes refresh cycles: an overlapping trigger waits for
	// the in-flight cycle instead of racing it on the bus.
	refreshMu sync.Mutex

	mu                sync.Mutex
	registers         []uint16
	data              map[uint16]uint16
	available         bool
	lastUpdate        time.Time
	consecutiveErrors int
}

// Option is a functional option for configuring the coordinator.
type Option func(*Coordinator)

// WithInterval sets the polling interval for Run.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.interval = d
	}
}

// WithRegisters sets the initial tracked register set, polled in order.
func WithRegisters(regs []uint16) Option {
	return func(c *Coordinator) {
		c.registers = append([]uint16(nil), regs...)
	}
}

// WithLogger sets the logger for the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates a coordinator over reader. Availability starts true: the cache
// is optimistically presumed fresh until a refresh fails.
func New(reader Reader, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		reader:    reader,
		interval:  DefaultInterval,
		logger:    slog.Default(),
		data:      make(map[uint16]uint16),
		available: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if reader == nil {
		return nil, errors.New("poll: reader required")
	}
	if c.interval <= 0 {
		return nil, errors.New("poll: interval must be positive")
	}
	if len(c.registers) == 0 {
		return nil, errors.New("poll: at least one register required")
	}
	return c, nil
}

// Interval returns the polling interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Refresh reads every tracked register and replaces the cache atomically on
// full success. The first read failure aborts the cycle, leaving the cache at
// its previous contents; partial data under ambiguous device state could
// drive controls into unsafe writes. Errors are never propagated: callers
// observe only Available and ConsecutiveErrors.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	regs := append([]uint16(nil), c.registers...)
	c.mu.Unlock()

	fresh := make(map[uint16]uint16, len(regs))
	for _, addr := range regs {
		value, err := c.reader.ReadRegister(ctx, addr)
		if err != nil {
			c.mu.Lock()
			c.available = false
			c.consecutiveErrors++
			n := c.consecutiveErrors
			c.mu.Unlock()
			c.logger.Error("refresh failed",
				slog.Uint64("register", uint64(addr)),
				slog.Int("consecutive_errors", n),
				slog.String("error", err.Error()))
			return
		}
		fresh[addr] = value
	}

	c.mu.Lock()
	// Registers removed while this cycle was in flight must not reappear.
	for addr := range fresh {
		if !containsLocked(c.registers, addr) {
			delete(fresh, addr)
		}
	}
	c.data = fresh
	c.available = true
	c.consecutiveErrors = 0
	c.lastUpdate = time.Now()
	c.mu.Unlock()

	c.logger.Debug("refresh successful", slog.Int("registers", len(fresh)))
}

// Run refreshes on a fixed ticker until ctx is done. One goroutine drives the
// loop, so scheduled cycles never overlap; a slow cycle simply delays the
// next tick's handling.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Register returns the cached value for addr. Pure cache lookup; never
// touches the bus.
func (c *Coordinator) Register(addr uint16) (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[addr]
	return v, ok
}

// Data returns a copy of the cache.
func (c *Coordinator) Data() map[uint16]uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint16]uint16, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Store updates the cached value for a tracked register. Used by controls to
// write through after a verified register write; untracked addresses are
// ignored.
func (c *Coordinator) Store(addr, value uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if containsLocked(c.registers, addr) {
		c.data[addr] = value
	}
}

// Add adds a register to the tracked set. Its value appears in the cache
// after the next successful refresh.
func (c *Coordinator) Add(addr uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if containsLocked(c.registers, addr) {
		return
	}
	c.registers = append(c.registers, addr)
	c.logger.Debug("register added", slog.Uint64("register", uint64(addr)))
}

// Remove removes a register from the tracked set and purges its cached value
// immediately, so stale data is never exposed for an address no longer
// polled.
func (c *Coordinator) Remove(addr uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.registers {
		if r == addr {
			c.registers = append(c.registers[:i], c.registers[i+1:]...)
			break
		}
	}
	delete(c.data, addr)
	c.logger.Debug("register removed", slog.Uint64("register", uint64(addr)))
}

// Registers returns the tracked register set in polling order.
func (c *Coordinator) Registers() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint16(nil), c.registers...)
}

// Available reports whether the most recent refresh cycle succeeded.
func (c *Coordinator) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// ConsecutiveErrors returns the count of consecutive failed refresh cycles.
func (c *Coordinator) ConsecutiveErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveErrors
}

// LastUpdate returns the time of the last successful refresh.
func (c *Coordinator) LastUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdate
}

// Status returns a snapshot of the availability state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Available:         c.available,
		LastUpdate:        c.lastUpdate,
		ConsecutiveErrors: c.consecutiveErrors,
	}
}

func containsLocked(regs []uint16, addr uint16) bool {
	for _, r := range regs {
		if r == addr {
			return true
		}
	}
	return false
}
