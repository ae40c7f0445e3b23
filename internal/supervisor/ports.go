package supervisor

import "context"

// Subsystem is one supervised unit of device functionality. Run blocks
// for the subsystem's lifetime and returns nil on clean completion,
// ctx.Err() when stopped, or the fault that killed it.
type Subsystem interface {
	Name() string
	Run(ctx context.Context) error
}

// StartNotifier is implemented by subsystems with a meaningful
// readiness point. The tree waits for Started before launching the
// next phase; subsystems without it count as started at launch.
type StartNotifier interface {
	Started() <-chan struct{}
}
