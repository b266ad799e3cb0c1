package device

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/edgeclimate/acbridge/hub"
)

// fakeCache is an in-memory stand-in for the poll coordinator.
type fakeCache struct {
	available bool
	data      map[uint16]uint16
}

func newFakeCache() *fakeCache {
	return &fakeCache{available: true, data: make(map[uint16]uint16)}
}

func (c *fakeCache) Available() bool { return c.available }

func (c *fakeCache) Register(addr uint16) (uint16, bool) {
	v, ok := c.data[addr]
	return v, ok
}

func (c *fakeCache) Store(addr, value uint16) { c.data[addr] = value }

// fakeBus records writes and optionally fails them.
type fakeBus struct {
	writes   []writeCall
	writeErr error
}

type writeCall struct {
	addr  uint16
	value uint16
}

func (b *fakeBus) WriteRegister(ctx context.Context, addr, value uint16, opts ...hub.WriteOption) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes = append(b.writes, writeCall{addr, value})
	return nil
}

func TestPowerSwitch(t *testing.T) {
	bus := &fakeBus{}
	cache := newFakeCache()
	sw := NewPowerSwitch(bus, cache)

	if sw.Register() != RegPower {
		t.Errorf("Register() = %d, want %d", sw.Register(), RegPower)
	}

	// Power works regardless of current power state.
	if err := sw.Set(context.Background(), true); err != nil {
		t.Fatalf("Set(true) error = %v", err)
	}
	if len(bus.writes) != 1 || bus.writes[0] != (writeCall{RegPower, 1}) {
		t.Errorf("writes = %+v, want one write of 1 to %d", bus.writes, RegPower)
	}
	if on, ok := sw.State(); !ok || !on {
		t.Errorf("State() = %t, %t after Set(true), want true, true", on, ok)
	}

	if err := sw.Set(context.Background(), false); err != nil {
		t.Fatalf("Set(false) error = %v", err)
	}
	if on, _ := sw.State(); on {
		t.Error("State() = true after Set(false)")
	}
}

func TestSwitchRequiresPower(t *testing.T) {
	tests := []struct {
		name string
		make func(Bus, Cache) *Switch
		reg  uint16
	}{
		{"home_away", NewHomeAwaySwitch, RegHomeAway},
		{"humidify", NewHumidifySwitch, RegHumidify},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &fakeBus{}
			cache := newFakeCache()
			sw := tt.make(bus, cache)

			// Power off: the write is rejected before reaching the bus.
			cache.data[RegPower] = 0
			err := sw.Set(context.Background(), true)
			if !errors.Is(err, ErrPowerRequired) {
				t.Fatalf("Set() error = %v, want ErrPowerRequired", err)
			}
			if len(bus.writes) != 0 {
				t.Errorf("writes = %+v, want none", bus.writes)
			}

			// Power unknown counts as off.
			delete(cache.data, RegPower)
			if err := sw.Set(context.Background(), true); !errors.Is(err, ErrPowerRequired) {
				t.Fatalf("Set() with unknown power error = %v, want ErrPowerRequired", err)
			}

			cache.data[RegPower] = 1
			if err := sw.Set(context.Background(), true); err != nil {
				t.Fatalf("Set() with power on error = %v", err)
			}
			if v, _ := cache.Register(tt.reg); v != 1 {
				t.Errorf("cache[%d] = %d after Set, want 1", tt.reg, v)
			}
		})
	}
}

func TestSwitchStateUnavailable(t *testing.T) {
	cache := newFakeCache()
	cache.data[RegPower] = 1
	sw := NewPowerSwitch(&fakeBus{}, cache)

	cache.available = false
	if _, ok := sw.State(); ok {
		t.Error("State() ok = true while cache unavailable")
	}

	cache.available = true
	delete(cache.data, RegPower)
	if _, ok := sw.State(); ok {
		t.Error("State() ok = true for uncached register")
	}
}

func TestSwitchWriteError(t *testing.T) {
	bus := &fakeBus{writeErr: &hub.VerifyError{Register: RegPower, Wrote: 1, Expected: 1, Got: 0}}
	cache := newFakeCache()
	sw := NewPowerSwitch(bus, cache)

	err := sw.Set(context.Background(), true)
	var verr *hub.VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("Set() error = %v, want *hub.VerifyError", err)
	}
	// Failed writes must not pollute the cache.
	if _, ok := cache.Register(RegPower); ok {
		t.Error("cache updated after failed write")
	}
}

func TestModeSelect(t *testing.T) {
	bus := &fakeBus{}
	cache := newFakeCache()
	sel := NewModeSelect(bus, cache, nil)

	want := []string{"cool", "heat", "fan_only", "dry"}
	if got := sel.Options(); !reflect.DeepEqual(got, want) {
		t.Errorf("Options() = %v, want %v", got, want)
	}

	// Mode changes require power off.
	cache.data[RegPower] = 1
	if err := sel.Select(context.Background(), "heat"); !errors.Is(err, ErrPowerOn) {
		t.Fatalf("Select() with power on error = %v, want ErrPowerOn", err)
	}
	if len(bus.writes) != 0 {
		t.Errorf("writes = %+v, want none", bus.writes)
	}

	cache.data[RegPower] = 0
	if err := sel.Select(context.Background(), "heat"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(bus.writes) != 1 || bus.writes[0] != (writeCall{RegMode, 2}) {
		t.Errorf("writes = %+v, want one write of 2 to %d", bus.writes, RegMode)
	}
	if name, ok := sel.Current(); !ok || name != "heat" {
		t.Errorf("Current() = %q, %t, want heat, true", name, ok)
	}
}

func TestModeSelectUnknownMode(t *testing.T) {
	bus := &fakeBus{}
	sel := NewModeSelect(bus, newFakeCache(), nil)

	if err := sel.Select(context.Background(), "turbo"); err == nil {
		t.Fatal("Select() with unknown mode expected error")
	}
	if len(bus.writes) != 0 {
		t.Errorf("writes = %+v, want none", bus.writes)
	}
}

func TestModeSelectCustomMap(t *testing.T) {
	bus := &fakeBus{}
	cache := newFakeCache()
	sel := NewModeSelect(bus, cache, ModeMap{10: "eco", 20: "boost"})

	if got := sel.Options(); !reflect.DeepEqual(got, []string{"eco", "boost"}) {
		t.Errorf("Options() = %v, want [eco boost]", got)
	}
	if err := sel.Select(context.Background(), "boost"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if bus.writes[0] != (writeCall{RegMode, 20}) {
		t.Errorf("writes[0] = %+v, want write of 20 to %d", bus.writes[0], RegMode)
	}
}

func TestModeSensor(t *testing.T) {
	cache := newFakeCache()
	sensor := NewModeSensor(cache, nil)

	// The sensor reports regardless of power state.
	cache.data[RegPower] = 0
	cache.data[RegMode] = 4
	if name, ok := sensor.Current(); !ok || name != "dry" {
		t.Errorf("Current() = %q, %t, want dry, true", name, ok)
	}

	cache.data[RegMode] = 99
	if _, ok := sensor.Current(); ok {
		t.Error("Current() ok = true for unmapped value")
	}

	cache.available = false
	if _, ok := sensor.Current(); ok {
		t.Error("Current() ok = true while cache unavailable")
	}
}

func TestModeMap(t *testing.T) {
	m := DefaultModeMap()

	if name, ok := m.Name(1); !ok || name != "cool" {
		t.Errorf("Name(1) = %q, %t, want cool, true", name, ok)
	}
	if _, ok := m.Name(0); ok {
		t.Error("Name(0) ok = true, want false")
	}
	if v, ok := m.Value("dry"); !ok || v != 4 {
		t.Errorf("Value(dry) = %d, %t, want 4, true", v, ok)
	}
	if _, ok := m.Value("auto"); ok {
		t.Error("Value(auto) ok = true, want false")
	}
}

func TestDefaultRegisters(t *testing.T) {
	want := []uint16{RegPower, RegHomeAway, RegMode, RegHumidify}
	if got := DefaultRegisters(); !reflect.DeepEqual(got, want) {
		t.Errorf("DefaultRegisters() = %v, want %v", got, want)
	}
}
