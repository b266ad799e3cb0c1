package maintenance

import (
	"errors"
	"os"
	"testing"
	"time"
)

// memStore keeps tracker state in memory with fault injection.
type memStore struct {
	last    time.Time
	ok      bool
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Load() (time.Time, bool, error) {
	return s.last, s.ok, s.loadErr
}

func (s *memStore) Save(last time.Time) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.last = last
	s.ok = true
	s.saves++
	return nil
}

func TestLoadExisting(t *testing.T) {
	last := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &memStore{last: last, ok: true}
	tr := NewTracker(store)

	if err := tr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !tr.LastReplacement().Equal(last) {
		t.Errorf("LastReplacement() = %v, want %v", tr.LastReplacement(), last)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}

func TestLoadMissingInitializesNow(t *testing.T) {
	store := &memStore{}
	tr := NewTracker(store)
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	if err := tr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !tr.LastReplacement().Equal(now) {
		t.Errorf("LastReplacement() = %v, want %v", tr.LastReplacement(), now)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestLoadCorruptResets(t *testing.T) {
	store := &memStore{loadErr: errors.New("parse: invalid timestamp")}
	tr := NewTracker(store)

	if err := tr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tr.LastReplacement().IsZero() {
		t.Error("LastReplacement() zero after corrupt load, want reset to now")
	}
}

func TestNextReplacement(t *testing.T) {
	last := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{last: last, ok: true}
	tr := NewTracker(store)
	if err := tr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := last.Add(CycleDays * 24 * time.Hour)
	if got := tr.NextReplacement(); !got.Equal(want) {
		t.Errorf("NextReplacement() = %v, want %v", got, want)
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		want int
	}{
		{"just replaced", now, CycleDays},
		{"30 days in", now.AddDate(0, 0, -30), CycleDays - 30},
		{"overdue", now.AddDate(0, 0, -100), -10},
		{"unknown", time.Time{}, CycleDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{last: tt.last, ok: !tt.last.IsZero()}
			tr := NewTracker(store)
			tr.now = func() time.Time { return now }
			if !tt.last.IsZero() {
				if err := tr.Load(); err != nil {
					t.Fatalf("Load() error = %v", err)
				}
			}
			if got := tr.DaysRemaining(); got != tt.want {
				t.Errorf("DaysRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResetNotifiesListeners(t *testing.T) {
	store := &memStore{}
	tr := NewTracker(store)

	calls := 0
	unsubscribe := tr.Subscribe(func() { calls++ })

	if err := tr.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("listener calls = %d, want 1", calls)
	}

	unsubscribe()
	if err := tr.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("listener calls = %d after unsubscribe, want 1", calls)
	}
}

func TestResetSaveFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	tr := NewTracker(store)

	if err := tr.Reset(); err == nil {
		t.Error("Reset() expected error, got nil")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, "living_room_filter")

	// Load before any save reports no state.
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("Load() = ok %t, err %v, want false, nil", ok, err)
	}

	last := time.Date(2026, 7, 15, 8, 30, 0, 0, time.UTC)
	if err := store.Save(last); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false after Save")
	}
	if !got.Equal(last) {
		t.Errorf("Load() = %v, want %v", got, last)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, "bad")

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Error("Load() expected error for corrupt file")
	}

	if err := os.WriteFile(store.Path(), []byte(`{"last_replacement":"yesterday"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Error("Load() expected error for invalid timestamp")
	}
}

func TestFileStoreCreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/state"
	store := NewFileStore(dir, "unit1_filter")

	if err := store.Save(time.Now()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("state file missing: %v", err)
	}
}
