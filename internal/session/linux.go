package session

import (
	"context"
	"strings"

	"github.com/coreos/go-systemd/v22/login1"
	"github.com/rs/zerolog"
)

// logindProbe asks systemd-logind over D-Bus for the active session
// list. The connection is established lazily and reused; any D-Bus
// failure reads as "not logged in".
type logindProbe struct {
	logger zerolog.Logger
	conn   *login1.Conn
}

func (p *logindProbe) LoggedIn(ctx context.Context, user string) bool {
	if p.conn == nil {
		conn, err := login1.New()
		if err != nil {
			p.logger.Debug().Err(err).Msg("Failed to connect to logind")
			return false
		}
		p.conn = conn
	}

	sessions, err := p.conn.ListSessions()
	if err != nil {
		p.logger.Debug().Err(err).Msg("Failed to list logind sessions")
		// Drop the connection so the next tick reconnects.
		p.conn.Close()
		p.conn = nil
		return false
	}

	for _, s := range sessions {
		if strings.EqualFold(s.User, user) {
			return true
		}
	}
	return false
}
