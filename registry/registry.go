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

// Package registry owns the hub, coordinator, and filter tracker built for
// each configured device, indexed by its stable profile id. Components are
// constructed once per device and handed around by reference; there is no
// global mutable state.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/edgeclimate/acbridge/config"
	"github.com/edgeclimate/acbridge/hub"
	"github.com/edgeclimate/acbridge/maintenance"
	"github.com/edgeclimate/acbridge/poll"
	"github.com/edgeclimate/acbridge/transport"
)

// Device bundles the long-lived components for one configured unit.
type Device struct {
	ID          string
	Hub         *hub.Hub
	Coordinator *poll.Coordinator
	Filter      *maintenance.Tracker
}

// Open builds a device from its profile. dataDir holds auxiliary non-Modbus
// state (the filter countdown); empty disables it.
func Open(p *config.Profile, dataDir string, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("device", p.ID))

	h, err := hub.New(p.Host,
		hub.WithPort(p.Port),
		hub.WithUnitID(uint8(p.UnitID)),
		hub.WithTimeout(p.Timeout()),
		hub.WithReconnectBackoff(p.ReconnectBackoff()),
		hub.WithTransportFactory(transport.Factory()),
		hub.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	c, err := poll.New(h,
		poll.WithInterval(p.PollInterval()),
		poll.WithRegisters(p.Registers),
		poll.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	d := &Device{ID: p.ID, Hub: h, Coordinator: c}
	if dataDir != "" {
		store := maintenance.NewFileStore(dataDir, p.ID+"_filter")
		d.Filter = maintenance.NewTracker(store, maintenance.WithLogger(logger))
		if err := d.Filter.Load(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Registry indexes devices by id.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Add registers a device. Duplicate ids are rejected.
func (r *Registry) Add(d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[d.ID]; ok {
		return fmt.Errorf("registry: device %q already registered", d.ID)
	}
	r.devices[d.ID] = d
	return nil
}

// Get returns the device for id.
func (r *Registry) Get(id string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	return d, ok
}

// Remove disconnects and drops the device for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	d, ok := r.devices[id]
	delete(r.devices, id)
	r.mu.Unlock()
	if ok {
		d.Hub.Disconnect()
	}
}

// IDs returns the registered device ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll disconnects every device and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	devices := r.devices
	r.devices = make(map[string]*Device)
	r.mu.Unlock()
	for _, d := range devices {
		d.Hub.Disconnect()
	}
}
