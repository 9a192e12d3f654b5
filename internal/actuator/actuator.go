// Package actuator carries out the two irreversible side effects of an
// enforcement decision: telling the user and powering the machine off.
// Both are best-effort; by the time either is called the loop has
// already committed to its terminal decision, so failures are logged
// and swallowed.
package actuator

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Actuator broadcasts messages to active sessions and schedules a
// forced power-off.
type Actuator interface {
	Broadcast(ctx context.Context, message string)
	Shutdown(ctx context.Context, delay time.Duration)
}

// New returns the platform actuator for the current OS.
func New(logger zerolog.Logger) Actuator {
	logger = logger.With().Str("component", "actuator").Logger()
	if runtime.GOOS == "windows" {
		return &windowsActuator{logger: logger}
	}
	return &unixActuator{logger: logger}
}
