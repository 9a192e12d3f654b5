// Package session answers one question: does the target account
// currently have an interactive session. Probe failures are never
// fatal; they read as "not logged in" so the loop keeps running.
package session

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"
)

// Probe reports whether a user has an active interactive session.
type Probe interface {
	LoggedIn(ctx context.Context, user string) bool
}

// NewProbe returns the platform probe for the current OS.
func NewProbe(logger zerolog.Logger) Probe {
	logger = logger.With().Str("component", "session").Logger()
	if runtime.GOOS == "windows" {
		return &queryUserProbe{logger: logger}
	}
	return &logindProbe{logger: logger}
}
