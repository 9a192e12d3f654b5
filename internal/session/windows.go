package session

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// queryUserProbe shells out to `query user` and looks for the target
// account in the session table. The command exits non-zero when nobody
// is logged on, so its error is informational only.
type queryUserProbe struct {
	logger zerolog.Logger
}

func (p *queryUserProbe) LoggedIn(ctx context.Context, user string) bool {
	out, err := exec.CommandContext(ctx, "query", "user").Output()
	if err != nil && len(out) == 0 {
		p.logger.Debug().Err(err).Msg("query user returned nothing")
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), strings.ToLower(user))
}
