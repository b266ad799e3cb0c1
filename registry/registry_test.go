package registry

import (
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/edgeclimate/acbridge/config"
	"github.com/edgeclimate/acbridge/hub"
	"github.com/edgeclimate/acbridge/transport"
)

func testProfile(id string) *config.Profile {
	p := &config.Profile{ID: id, Host: "192.168.1.50"}
	p.Normalize()
	return p
}

func newTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	h, err := hub.New("192.168.1.50", hub.WithTransportFactory(transport.Factory()))
	if err != nil {
		t.Fatalf("hub.New() error = %v", err)
	}
	return h
}

func TestOpen(t *testing.T) {
	p := testProfile("living_room")
	p.PollIntervalSeconds = 15

	d, err := Open(p, "", slog.Default())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.ID != "living_room" {
		t.Errorf("ID = %q, want living_room", d.ID)
	}
	if d.Hub == nil || d.Coordinator == nil {
		t.Fatal("Open() left components nil")
	}
	if d.Filter != nil {
		t.Error("Filter built without a data dir")
	}
	if got := d.Hub.Addr(); got != "192.168.1.50:502" {
		t.Errorf("Hub.Addr() = %q, want 192.168.1.50:502", got)
	}
	if got := d.Coordinator.Interval().Seconds(); got != 15 {
		t.Errorf("Coordinator.Interval() = %vs, want 15s", got)
	}
	if got := d.Coordinator.Registers(); !reflect.DeepEqual(got, p.Registers) {
		t.Errorf("Coordinator.Registers() = %v, want %v", got, p.Registers)
	}
}

func TestOpenWithDataDir(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(testProfile("unit1"), dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.Filter == nil {
		t.Fatal("Filter nil with data dir set")
	}
	// Load initializes missing state, so the file exists already.
	want := filepath.Join(dir, "unit1_filter.json")
	if d.Filter.LastReplacement().IsZero() {
		t.Error("Filter not initialized")
	}
	if _, err := Open(testProfile("unit1"), dir, nil); err != nil {
		t.Errorf("reopening over existing state file %s: %v", want, err)
	}
}

func TestOpenInvalidProfile(t *testing.T) {
	p := testProfile("bad")
	p.Registers = nil
	if _, err := Open(p, "", nil); err == nil {
		t.Error("Open() expected error for empty register set")
	}
}

func TestRegistryAddGet(t *testing.T) {
	r := New()
	d := &Device{ID: "a", Hub: newTestHub(t)}

	if err := r.Add(d); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add(&Device{ID: "a", Hub: newTestHub(t)}); err == nil {
		t.Error("Add() duplicate id expected error")
	}

	got, ok := r.Get("a")
	if !ok || got != d {
		t.Errorf("Get(a) = %v, %t, want original device", got, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := New()
	r.Add(&Device{ID: "a", Hub: newTestHub(t)})

	r.Remove("a")
	if _, ok := r.Get("a"); ok {
		t.Error("Get(a) ok = true after Remove")
	}
	r.Remove("a") // second remove is a no-op
}

func TestRegistryIDs(t *testing.T) {
	r := New()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Add(&Device{ID: id, Hub: newTestHub(t)}); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}
	want := []string{"a", "b", "c"}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := New()
	r.Add(&Device{ID: "a", Hub: newTestHub(t)})
	r.Add(&Device{ID: "b", Hub: newTestHub(t)})

	r.CloseAll()
	if got := r.IDs(); len(got) != 0 {
		t.Errorf("IDs() = %v after CloseAll, want empty", got)
	}
}
