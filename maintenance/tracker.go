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

// Package maintenance tracks the filter replacement countdown. The unit has
// no register for this, so the state lives in local storage keyed by a
// stable identifier.
package maintenance

import (
	"log/slog"
	"sync"
	"time"
)

// CycleDays is the number of days between filter replacements.
const CycleDays = 90

// Store persists the last replacement time. ok is false when no state has
// been saved yet.
type Store interface {
	Load() (last time.Time, ok bool, err error)
	Save(last time.Time) error
}

// Tracker computes the replacement countdown and notifies listeners on reset.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	last      time.Time
	listeners []func()
}

// Option is a functional option for configuring the tracker.
type Option func(*Tracker)

// WithLogger sets the logger for the tracker.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a tracker over store. Call Load before first use.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load restores the last replacement time from storage. Missing or corrupt
// state initializes to now, treating the filter as just replaced.
func (t *Tracker) Load() error {
	last, ok, err := t.store.Load()
	if err != nil {
		t.logger.Warn("invalid filter data, resetting to current date",
			slog.String("error", err.Error()))
		return t.Reset()
	}
	if !ok {
		t.logger.Info("no filter data found, initializing with current date")
		return t.Reset()
	}

	t.mu.Lock()
	t.last = last
	t.mu.Unlock()
	return nil
}

// LastReplacement returns the last replacement time.
func (t *Tracker) LastReplacement() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// NextReplacement returns the next due date, zero when unknown.
func (t *Tracker) NextReplacement() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last.IsZero() {
		return time.Time{}
	}
	return t.last.Add(CycleDays * 24 * time.Hour)
}

// DaysRemaining returns the days until the next replacement: positive when
// not due, negative when overdue, the full cycle when unknown.
func (t *Tracker) DaysRemaining() int {
	next := t.NextReplacement()
	if next.IsZero() {
		return CycleDays
	}
	return int(next.Sub(t.now()).Hours() / 24)
}

// Reset records a replacement now, persists it, and notifies listeners.
func (t *Tracker) Reset() error {
	now := t.now()

	t.mu.Lock()
	t.last = now
	listeners := append([]func(){}, t.listeners...)
	t.mu.Unlock()

	if err := t.store.Save(now); err != nil {
		return err
	}
	t.logger.Info("filter replacement date reset", slog.Time("at", now))
	for _, fn := range listeners {
		fn()
	}
	return nil
}

// Subscribe registers a listener called after every reset. The returned
// function removes it.
func (t *Tracker) Subscribe(fn func()) (unsubscribe func()) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	i := len(t.listeners) - 1
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if i < len(t.listeners) {
			t.listeners[i] = func() {}
		}
	}
}
