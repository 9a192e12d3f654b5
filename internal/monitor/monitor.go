// Package monitor runs the enforcement loop: poll the session state,
// ingest redeem codes, advance the daily ledger, and power the machine
// off when the budget is spent or the allowed hours are over.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/kwatch/internal/actuator"
	"github.com/goodtune/kwatch/internal/ledger"
	"github.com/goodtune/kwatch/internal/metrics"
	"github.com/goodtune/kwatch/internal/redeem"
	"github.com/goodtune/kwatch/internal/secret"
	"github.com/goodtune/kwatch/internal/session"
	"github.com/rs/zerolog"
)

// State is the enforcement loop state. Polling is the only non-terminal
// state; the two shutdown states end the process.
type State string

const (
	StatePolling        State = "polling"
	StateNightShutdown  State = "night_shutdown"
	StateBudgetShutdown State = "budget_shutdown"
)

// Terminal reports whether the loop must stop after this state.
func (s State) Terminal() bool {
	return s != StatePolling
}

// Config holds everything the loop needs, injected at construction so
// tests can run it against fakes and a fixed clock.
type Config struct {
	TargetUser         string
	RedeemFile         string
	DailyLimit         time.Duration
	CheckInterval      time.Duration
	StartupDelay       time.Duration
	EarliestHour       int
	LatestHour         int
	ShutdownDelay      time.Duration
	NightShutdownDelay time.Duration

	// Clock overrides the time source; nil means time.Now.
	Clock func() time.Time
}

// Monitor is the enforcement loop.
type Monitor struct {
	cfg    Config
	store  *ledger.Store
	key    secret.Secret
	probe  session.Probe
	act    actuator.Actuator
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a monitor. The secret may be empty; the loop then tracks
// time normally but never accepts a redeem code.
func New(cfg Config, store *ledger.Store, key secret.Secret, probe session.Probe, act actuator.Actuator, logger zerolog.Logger) *Monitor {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		cfg:    cfg,
		store:  store,
		key:    key,
		probe:  probe,
		act:    act,
		now:    now,
		logger: logger.With().Str("component", "monitor").Logger(),
	}
}

// Run executes the loop until a terminal state or context cancellation.
// The initial startup delay gives the redeem-file collaborator time to
// be provisioned before the first poll.
func (m *Monitor) Run(ctx context.Context) State {
	m.logger.Info().
		Str("target_user", m.cfg.TargetUser).
		Dur("daily_limit", m.cfg.DailyLimit).
		Dur("check_interval", m.cfg.CheckInterval).
		Int("earliest_hour", m.cfg.EarliestHour).
		Int("latest_hour", m.cfg.LatestHour).
		Msg("Enforcement loop starting")

	select {
	case <-time.After(m.cfg.StartupDelay):
	case <-ctx.Done():
		return StatePolling
	}

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		state := m.Tick(ctx)
		if state.Terminal() {
			m.logger.Info().Str("state", string(state)).Msg("Enforcement loop finished")
			return state
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return StatePolling
		}
	}
}

// Tick executes one enforcement step and returns the resulting state.
// Every mutation of the ledger is persisted before the next decision.
func (m *Monitor) Tick(ctx context.Context) State {
	now := m.now()
	led := m.store.Load(now)

	if !m.probe.LoggedIn(ctx, m.cfg.TargetUser) {
		// Time only accrues while logged in; no ledger mutation.
		metrics.TicksTotal.WithLabelValues("idle").Inc()
		m.logger.Debug().Msg("Target user not logged in")
		return StatePolling
	}
	metrics.TicksTotal.WithLabelValues("active").Inc()

	if hour := now.Hour(); hour < m.cfg.EarliestHour || hour > m.cfg.LatestHour {
		m.logger.Info().Int("hour", hour).Msg("Outside allowed hours, shutting down")
		m.act.Broadcast(ctx, "Night time")
		led.AddEvent(now, "Night time")
		m.persist(led, now)
		metrics.ShutdownsTotal.WithLabelValues("night").Inc()
		m.act.Shutdown(ctx, m.cfg.NightShutdownDelay)
		return StateNightShutdown
	}

	m.ingestRedeem(ctx, led, now)

	budget := int64(m.cfg.DailyLimit.Seconds()) + led.ExtraTimeSec
	if led.TimeSpentSec >= budget {
		m.logger.Info().
			Int64("time_spent_sec", led.TimeSpentSec).
			Int64("budget_sec", budget).
			Msg("Daily budget exhausted, shutting down")
		m.act.Broadcast(ctx, "time up")
		led.AddEvent(now, "time up")
		m.persist(led, now)
		metrics.ShutdownsTotal.WithLabelValues("budget").Inc()
		m.act.Shutdown(ctx, m.cfg.ShutdownDelay)
		return StateBudgetShutdown
	}

	led.RecordTick(now, m.cfg.CheckInterval)
	m.persist(led, now)

	metrics.TimeSpentSeconds.Set(float64(led.TimeSpentSec))
	metrics.ExtraTimeSeconds.Set(float64(led.ExtraTimeSec))

	return StatePolling
}

// ingestRedeem checks the redeem file and consumes a valid, previously
// unseen code. Everything else (no file, bad signature, a replayed
// code) is a silent no-op this tick; the file is re-read next tick.
func (m *Monitor) ingestRedeem(ctx context.Context, led *ledger.Ledger, now time.Time) {
	res := redeem.CheckFile(m.cfg.RedeemFile, now, m.key)
	metrics.RedeemResultsTotal.WithLabelValues(string(res.Status)).Inc()

	if res.Status != redeem.StatusValid {
		if res.Status != redeem.StatusNoFile {
			m.logger.Debug().Str("status", string(res.Status)).Msg("Redeem code rejected")
		}
		return
	}
	if led.HasCode(res.Code) {
		return
	}

	led.ConsumeCode(res.Code, res.ExtraSeconds)
	led.AddEvent(now, fmt.Sprintf("redeem code %d", res.ExtraSeconds))
	m.logger.Info().Int64("extra_seconds", res.ExtraSeconds).Msg("Redeem code accepted")
	m.act.Broadcast(ctx, fmt.Sprintf("extra time %d", res.ExtraSeconds))
	m.persist(led, now)
}

// persist saves the ledger; a failed save is logged and the loop keeps
// going, since losing one day's bookkeeping beats losing enforcement.
func (m *Monitor) persist(led *ledger.Ledger, now time.Time) {
	if err := m.store.Save(led, now); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist ledger")
	}
}
