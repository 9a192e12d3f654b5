package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/kwatch/internal/actuator"
	"github.com/goodtune/kwatch/internal/ledger"
	"github.com/goodtune/kwatch/internal/redeem"
	"github.com/goodtune/kwatch/internal/secret"
	"github.com/rs/zerolog"
)

var testKey = secret.Secret([]byte("kwatch-test-key"))

type fakeProbe struct {
	loggedIn bool
}

func (p *fakeProbe) LoggedIn(ctx context.Context, user string) bool {
	return p.loggedIn
}

type fakeActuator struct {
	broadcasts []string
	shutdowns  []time.Duration
}

func (a *fakeActuator) Broadcast(ctx context.Context, message string) {
	a.broadcasts = append(a.broadcasts, message)
}

func (a *fakeActuator) Shutdown(ctx context.Context, delay time.Duration) {
	a.shutdowns = append(a.shutdowns, delay)
}

var _ actuator.Actuator = (*fakeActuator)(nil)

type fixture struct {
	monitor *Monitor
	store   *ledger.Store
	probe   *fakeProbe
	act     *fakeActuator
	now     time.Time
}

// newFixture builds a monitor against fakes: a fixed clock at 10:00 on
// 2026-08-29, a 2h limit, 60s interval, hours 6-20.
func newFixture(t *testing.T, key secret.Secret) *fixture {
	t.Helper()

	dir := t.TempDir()
	store, err := ledger.NewStore(filepath.Join(dir, "data"), zerolog.Nop())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	f := &fixture{
		store: store,
		probe: &fakeProbe{loggedIn: true},
		act:   &fakeActuator{},
		now:   time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local),
	}

	f.monitor = New(
		Config{
			TargetUser:         "elias",
			RedeemFile:         filepath.Join(dir, "redeem.txt"),
			DailyLimit:         2 * time.Hour,
			CheckInterval:      60 * time.Second,
			EarliestHour:       6,
			LatestHour:         20,
			ShutdownDelay:      300 * time.Second,
			NightShutdownDelay: 10 * time.Second,
			Clock:              func() time.Time { return f.now },
		},
		store,
		key,
		f.probe,
		f.act,
		zerolog.Nop(),
	)

	return f
}

func (f *fixture) writeRedeemFile(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(f.monitor.cfg.RedeemFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write redeem file: %v", err)
	}
}

func TestTickNotLoggedIn(t *testing.T) {
	f := newFixture(t, testKey)
	f.probe.loggedIn = false

	state := f.monitor.Tick(context.Background())
	if state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}

	// No session means no ledger mutation at all.
	if _, err := os.Stat(f.store.Path(f.now)); !os.IsNotExist(err) {
		t.Errorf("ledger file written for an idle tick: %v", err)
	}
}

func TestTickAccruesTime(t *testing.T) {
	f := newFixture(t, testKey)

	state := f.monitor.Tick(context.Background())
	if state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}

	led := f.store.Load(f.now)
	if led.TimeSpentSec != 60 {
		t.Errorf("time_spent_sec = %d, want 60", led.TimeSpentSec)
	}
	if len(led.Ticks) != 1 {
		t.Errorf("ticks = %d entries, want 1", len(led.Ticks))
	}
	if led.LastTick == "" {
		t.Error("last_tick not set")
	}
	if len(f.act.shutdowns) != 0 {
		t.Errorf("unexpected shutdown issued: %v", f.act.shutdowns)
	}
}

func TestBudgetBoundary(t *testing.T) {
	f := newFixture(t, testKey)

	// One interval short of the limit: this tick reaches the limit
	// exactly but must not shut down, since the check precedes the
	// increment.
	led := f.store.Load(f.now)
	led.TimeSpentSec = int64((2 * time.Hour).Seconds()) - 60
	if err := f.store.Save(led, f.now); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	if state := f.monitor.Tick(context.Background()); state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}
	led = f.store.Load(f.now)
	if want := int64((2 * time.Hour).Seconds()); led.TimeSpentSec != want {
		t.Fatalf("time_spent_sec = %d, want %d", led.TimeSpentSec, want)
	}
	if len(f.act.shutdowns) != 0 {
		t.Fatalf("shutdown issued before the budget check could see the limit")
	}

	// The next tick lands exactly on the boundary: >= triggers.
	state := f.monitor.Tick(context.Background())
	if state != StateBudgetShutdown {
		t.Fatalf("state = %s, want %s", state, StateBudgetShutdown)
	}
	if len(f.act.shutdowns) != 1 || f.act.shutdowns[0] != 300*time.Second {
		t.Errorf("shutdowns = %v, want one with 300s delay", f.act.shutdowns)
	}
	if len(f.act.broadcasts) == 0 || f.act.broadcasts[len(f.act.broadcasts)-1] != "time up" {
		t.Errorf("broadcasts = %v, want trailing %q", f.act.broadcasts, "time up")
	}

	// The terminal tick must not have accrued another interval.
	led = f.store.Load(f.now)
	if want := int64((2 * time.Hour).Seconds()); led.TimeSpentSec != want {
		t.Errorf("time_spent_sec = %d after shutdown, want %d", led.TimeSpentSec, want)
	}
	if !hasEventPrefix(led.EventLog, "time up") {
		t.Errorf("event_log = %v, want a %q entry", led.EventLog, "time up")
	}
}

func TestNightShutdown(t *testing.T) {
	f := newFixture(t, testKey)
	f.now = time.Date(2026, 8, 29, 21, 0, 0, 0, time.Local)

	state := f.monitor.Tick(context.Background())
	if state != StateNightShutdown {
		t.Fatalf("state = %s, want %s", state, StateNightShutdown)
	}
	if len(f.act.shutdowns) != 1 || f.act.shutdowns[0] != 10*time.Second {
		t.Errorf("shutdowns = %v, want one with 10s delay", f.act.shutdowns)
	}

	led := f.store.Load(f.now)
	if !hasEventPrefix(led.EventLog, "Night time") {
		t.Errorf("event_log = %v, want a %q entry", led.EventLog, "Night time")
	}
	if led.TimeSpentSec != 0 {
		t.Errorf("time accrued on the night-shutdown tick: %d", led.TimeSpentSec)
	}
}

func TestNightShutdownBeforeEarliestHour(t *testing.T) {
	f := newFixture(t, testKey)
	f.now = time.Date(2026, 8, 29, 5, 59, 0, 0, time.Local)

	if state := f.monitor.Tick(context.Background()); state != StateNightShutdown {
		t.Fatalf("state = %s, want %s", state, StateNightShutdown)
	}
}

func TestRedeemConsumedExactlyOnce(t *testing.T) {
	f := newFixture(t, testKey)
	code := redeem.Generate(f.now.Format(redeem.DateFormat), 1800, testKey)
	f.writeRedeemFile(t, code+"\n")

	if state := f.monitor.Tick(context.Background()); state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}

	led := f.store.Load(f.now)
	if led.ExtraTimeSec != 1800 {
		t.Fatalf("extra_time_sec = %d, want 1800", led.ExtraTimeSec)
	}
	if !led.HasCode(code) {
		t.Fatal("code missing from used_redeem_codes")
	}
	if len(f.act.broadcasts) != 1 || f.act.broadcasts[0] != "extra time 1800" {
		t.Errorf("broadcasts = %v, want [extra time 1800]", f.act.broadcasts)
	}

	// The daemon never deletes the file; resubmission is a no-op.
	if state := f.monitor.Tick(context.Background()); state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}

	led = f.store.Load(f.now)
	if led.ExtraTimeSec != 1800 {
		t.Errorf("extra_time_sec = %d after replay, want 1800", led.ExtraTimeSec)
	}
	if len(led.UsedRedeemCodes) != 1 {
		t.Errorf("used_redeem_codes = %v, want exactly one entry", led.UsedRedeemCodes)
	}
	if len(f.act.broadcasts) != 1 {
		t.Errorf("broadcasts = %v, replay must not announce again", f.act.broadcasts)
	}
	if led.TimeSpentSec != 120 {
		t.Errorf("time_spent_sec = %d, want 120 after two ticks", led.TimeSpentSec)
	}
}

func TestExtraTimeExtendsBudget(t *testing.T) {
	f := newFixture(t, testKey)

	led := f.store.Load(f.now)
	led.TimeSpentSec = int64((2 * time.Hour).Seconds())
	if err := f.store.Save(led, f.now); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	code := redeem.Generate(f.now.Format(redeem.DateFormat), 3600, testKey)
	f.writeRedeemFile(t, code)

	// The code is ingested before the budget check on the same tick, so
	// the spent budget is no longer exhausted.
	state := f.monitor.Tick(context.Background())
	if state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}
	if len(f.act.shutdowns) != 0 {
		t.Errorf("shutdown issued despite granted extra time: %v", f.act.shutdowns)
	}

	led = f.store.Load(f.now)
	if led.ExtraTimeSec != 3600 {
		t.Errorf("extra_time_sec = %d, want 3600", led.ExtraTimeSec)
	}
	if want := int64((2*time.Hour).Seconds()) + 60; led.TimeSpentSec != want {
		t.Errorf("time_spent_sec = %d, want %d", led.TimeSpentSec, want)
	}
}

func TestEmptySecretStillAccruesTime(t *testing.T) {
	f := newFixture(t, nil)

	// A perfectly valid code cannot be verified without a secret.
	code := redeem.Generate(f.now.Format(redeem.DateFormat), 3600, testKey)
	f.writeRedeemFile(t, code)

	if state := f.monitor.Tick(context.Background()); state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}

	led := f.store.Load(f.now)
	if led.ExtraTimeSec != 0 {
		t.Errorf("extra_time_sec = %d, want 0 with no secret", led.ExtraTimeSec)
	}
	if led.TimeSpentSec != 60 {
		t.Errorf("time_spent_sec = %d, want 60", led.TimeSpentSec)
	}
}

func TestWrongDateCodeIgnored(t *testing.T) {
	f := newFixture(t, testKey)
	code := redeem.Generate("2026-08-28", 3600, testKey)
	f.writeRedeemFile(t, code)

	if state := f.monitor.Tick(context.Background()); state != StatePolling {
		t.Fatalf("state = %s, want %s", state, StatePolling)
	}

	led := f.store.Load(f.now)
	if led.ExtraTimeSec != 0 {
		t.Errorf("extra_time_sec = %d, want 0 for a stale code", led.ExtraTimeSec)
	}
}

func hasEventPrefix(events []string, prefix string) bool {
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}
