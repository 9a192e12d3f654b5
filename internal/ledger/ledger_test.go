package ledger

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func testDate(t *testing.T) time.Time {
	t.Helper()
	date, err := time.Parse(DateFormat, "2026-08-29")
	if err != nil {
		t.Fatalf("parse test date: %v", err)
	}
	return date
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	date := testDate(t)

	l := store.Load(date)
	l.TimeSpentSec = 3600
	l.ConsumeCode("2026-08-29:600:abcd", 600)
	l.AddEvent(date, "redeem code 600")
	l.RecordTick(date, 60*time.Second)

	if err := store.Save(l, date); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := store.Load(date)
	if got.TimeSpentSec != 3660 {
		t.Errorf("time_spent_sec = %d, want 3660", got.TimeSpentSec)
	}
	if got.ExtraTimeSec != 600 {
		t.Errorf("extra_time_sec = %d, want 600", got.ExtraTimeSec)
	}
	if !got.HasCode("2026-08-29:600:abcd") {
		t.Error("consumed code missing from used_redeem_codes")
	}
	if len(got.Ticks) != 1 || got.LastTick != got.Ticks[0] {
		t.Errorf("ticks = %v, last_tick = %q", got.Ticks, got.LastTick)
	}
	if len(got.EventLog) != 1 || !strings.HasPrefix(got.EventLog[0], "redeem code 600") {
		t.Errorf("event_log = %v", got.EventLog)
	}
}

func TestLoadMissingReturnsZeroed(t *testing.T) {
	store := testStore(t)
	l := store.Load(testDate(t))

	if l.TimeSpentSec != 0 || l.ExtraTimeSec != 0 {
		t.Errorf("fresh ledger not zeroed: %+v", l)
	}
	if l.Ticks == nil || l.EventLog == nil || l.UsedRedeemCodes == nil {
		t.Error("fresh ledger has nil slices")
	}
}

func TestLoadCorruptReturnsZeroed(t *testing.T) {
	store := testStore(t)
	date := testDate(t)

	if err := os.WriteFile(store.Path(date), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt ledger: %v", err)
	}

	l := store.Load(date)
	if l.TimeSpentSec != 0 || len(l.UsedRedeemCodes) != 0 {
		t.Errorf("corrupt ledger did not reset: %+v", l)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	store := testStore(t)
	date := testDate(t)

	l := store.Load(date)
	l.TimeSpentSec = 60
	if err := store.Save(l, date); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(store.Path(date) + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file still present after save: %v", err)
	}
}

func TestInterruptedSavePreservesPriorState(t *testing.T) {
	store := testStore(t)
	date := testDate(t)

	l := store.Load(date)
	l.TimeSpentSec = 1200
	if err := store.Save(l, date); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Simulate a crash between temp-write and rename: a half-written
	// temp file sits next to the complete ledger.
	if err := os.WriteFile(store.Path(date)+".tmp", []byte(`{"time_spent_`), 0o644); err != nil {
		t.Fatalf("write stale temp file: %v", err)
	}

	got := store.Load(date)
	if got.TimeSpentSec != 1200 {
		t.Errorf("time_spent_sec = %d, want prior complete state 1200", got.TimeSpentSec)
	}
}

func TestHasCode(t *testing.T) {
	l := &Ledger{}
	if l.HasCode("2026-08-29:600:abcd") {
		t.Error("empty ledger claims to have a code")
	}
	l.ConsumeCode("2026-08-29:600:abcd", 600)
	if !l.HasCode("2026-08-29:600:abcd") {
		t.Error("consumed code not found")
	}
	if l.HasCode("2026-08-29:900:ffff") {
		t.Error("unconsumed code found")
	}
}

func TestRecordTickAccumulates(t *testing.T) {
	l := &Ledger{}
	now := testDate(t)

	l.RecordTick(now, 60*time.Second)
	l.RecordTick(now.Add(time.Minute), 60*time.Second)

	if l.TimeSpentSec != 120 {
		t.Errorf("time_spent_sec = %d, want 120", l.TimeSpentSec)
	}
	if len(l.Ticks) != 2 {
		t.Errorf("ticks = %d entries, want 2", len(l.Ticks))
	}
	if l.LastTick != l.Ticks[1] {
		t.Errorf("last_tick = %q, want %q", l.LastTick, l.Ticks[1])
	}
}
