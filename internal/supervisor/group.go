package supervisor

import (
	"context"
	"log/slog"
	"time"

	"farmd/internal/bootstrap"
)

// AuthGroup runs the authenticated subsystems as a nested supervision
// tree. The group only exists once authorization has produced a token,
// so construction of its members is deferred until Start.
type AuthGroup struct {
	// Build constructs the authenticated subsystems from the session
	// token. Called once per Start.
	Build func(token bootstrap.Token) []Subsystem

	RestartDelay time.Duration
	MaxRestarts  int
}

// Start builds the group and supervises it until ctx is cancelled or
// its restart budget runs out. All-or-nothing: a failing member brings
// the whole group down and back up together.
func (g *AuthGroup) Start(ctx context.Context, token bootstrap.Token) error {
	subs := g.Build(token)
	if len(subs) == 0 {
		slog.Info("no authenticated subsystems configured")
		return nil
	}

	inner := &Tree{
		PostAuth:     subs,
		RestartDelay: g.RestartDelay,
		MaxRestarts:  g.MaxRestarts,
	}
	return inner.Run(ctx)
}
