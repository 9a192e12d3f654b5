// Package ledger persists the per-day usage record. One JSON document
// per calendar date, written atomically, never deleted. Old ledgers
// double as an audit trail.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DateFormat names the ledger file for a given day.
const DateFormat = "2006-01-02"

// TimestampFormat is used for ticks and event log entries.
const TimestampFormat = "2006-01-02 15:04:05"

// Ledger is the durable usage record for one calendar day.
type Ledger struct {
	TimeSpentSec    int64    `json:"time_spent_sec"`
	ExtraTimeSec    int64    `json:"extra_time_sec"`
	Ticks           []string `json:"ticks"`
	LastTick        string   `json:"last_tick,omitempty"`
	EventLog        []string `json:"event_log"`
	UsedRedeemCodes []string `json:"used_redeem_codes"`
}

// HasCode reports whether a redeem code was already consumed today.
func (l *Ledger) HasCode(code string) bool {
	for _, used := range l.UsedRedeemCodes {
		if used == code {
			return true
		}
	}
	return false
}

// ConsumeCode marks a code as used and credits its extra time.
func (l *Ledger) ConsumeCode(code string, extraSeconds int64) {
	l.UsedRedeemCodes = append(l.UsedRedeemCodes, code)
	l.ExtraTimeSec += extraSeconds
}

// AddEvent appends a human-readable entry to the event log.
func (l *Ledger) AddEvent(now time.Time, event string) {
	l.EventLog = append(l.EventLog, fmt.Sprintf("%s %s", event, now.Format(TimestampFormat)))
}

// RecordTick credits one poll interval of usage.
func (l *Ledger) RecordTick(now time.Time, interval time.Duration) {
	ts := now.Format(TimestampFormat)
	l.TimeSpentSec += int64(interval.Seconds())
	l.Ticks = append(l.Ticks, ts)
	l.LastTick = ts
}

// Store reads and writes per-day ledger files under a single directory.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates the data directory if needed and returns a store.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "ledger").Logger(),
	}, nil
}

// Path returns the ledger file path for a date.
func (s *Store) Path(date time.Time) string {
	return filepath.Join(s.dir, date.Format(DateFormat)+".json")
}

// Load reads the ledger for a date. Any read or parse failure yields a
// fresh zeroed ledger: a corrupted file costs at most one day's
// generosity, never the ability to keep enforcing.
func (s *Store) Load(date time.Time) *Ledger {
	l := &Ledger{
		Ticks:           []string{},
		EventLog:        []string{},
		UsedRedeemCodes: []string{},
	}

	data, err := os.ReadFile(s.Path(date))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("date", date.Format(DateFormat)).
				Msg("Failed to read ledger, starting the day over")
		}
		return l
	}

	if err := json.Unmarshal(data, l); err != nil {
		s.logger.Warn().Err(err).Str("date", date.Format(DateFormat)).
			Msg("Ledger is corrupt, starting the day over")
		return &Ledger{
			Ticks:           []string{},
			EventLog:        []string{},
			UsedRedeemCodes: []string{},
		}
	}

	return l
}

// Save writes the ledger atomically: full serialization to a temp file
// in the same directory, then rename onto the final path. A crash or
// power loss mid-write leaves either the old complete file or the new
// complete file, never a truncated one.
func (s *Store) Save(l *Ledger, date time.Time) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize ledger: %w", err)
	}

	path := s.Path(date)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}
