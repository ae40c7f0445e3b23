package netwatch

import "farmd/internal/check"

// Phase is the watcher lifecycle. There is no terminal phase: a watcher
// monitors its interface until it is stopped.
type Phase uint8

const (
	WaitingForInterface Phase = iota + 1
	Configuring
	Monitoring
)

func (p Phase) String() string {
	switch p {
	case WaitingForInterface:
		return "waiting_for_interface"
	case Configuring:
		return "configuring"
	case Monitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

func (p Phase) Transition(to Phase) Phase {
	ok := false
	switch p {
	case WaitingForInterface:
		ok = to == Configuring
	case Configuring:
		ok = to == Monitoring
	case Monitoring:
		ok = false
	}
	check.Assertf(ok, "watcher phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}
