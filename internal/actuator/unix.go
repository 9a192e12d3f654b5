package actuator

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// unixActuator uses `wall` for broadcasts and `shutdown -h` for the
// power-off. shutdown(8) only takes whole minutes, so sub-minute delays
// become an immediate halt, which is acceptable for the 10s night case.
type unixActuator struct {
	logger zerolog.Logger
}

func (a *unixActuator) Broadcast(ctx context.Context, message string) {
	if err := exec.CommandContext(ctx, "wall", message).Run(); err != nil {
		a.logger.Warn().Err(err).Str("message", message).Msg("Broadcast failed")
	}
}

func (a *unixActuator) Shutdown(ctx context.Context, delay time.Duration) {
	when := "now"
	if minutes := int(delay.Minutes()); minutes > 0 {
		when = fmt.Sprintf("+%d", minutes)
	}
	a.logger.Info().Str("delay", delay.String()).Msg("Issuing shutdown")
	if err := exec.CommandContext(ctx, "shutdown", "-h", when).Run(); err != nil {
		a.logger.Warn().Err(err).Msg("Shutdown command failed")
	}
}
