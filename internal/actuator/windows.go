package actuator

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// windowsActuator uses `msg *` for broadcasts and `shutdown /s /f /t N`
// for a forced, delayed power-off.
type windowsActuator struct {
	logger zerolog.Logger
}

func (a *windowsActuator) Broadcast(ctx context.Context, message string) {
	if err := exec.CommandContext(ctx, "msg", "*", message).Run(); err != nil {
		a.logger.Warn().Err(err).Str("message", message).Msg("Broadcast failed")
	}
}

func (a *windowsActuator) Shutdown(ctx context.Context, delay time.Duration) {
	seconds := strconv.Itoa(int(delay.Seconds()))
	a.logger.Info().Str("delay", delay.String()).Msg("Issuing shutdown")
	if err := exec.CommandContext(ctx, "shutdown", "/s", "/f", "/t", seconds).Run(); err != nil {
		a.logger.Warn().Err(err).Msg("Shutdown command failed")
	}
}
