package supervisor

import "farmd/internal/check"

type BootPhase uint8

const (
	BootIdle BootPhase = iota + 1
	BootPreAuth
	BootInit
	BootPostAuth
	BootRunning
	BootRestarting
)

func (p BootPhase) String() string {
	switch p {
	case BootIdle:
		return "idle"
	case BootPreAuth:
		return "pre_auth"
	case BootInit:
		return "init"
	case BootPostAuth:
		return "post_auth"
	case BootRunning:
		return "running"
	case BootRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

func (p BootPhase) Transition(to BootPhase) BootPhase {
	ok := false
	switch p {
	case BootIdle:
		ok = to == BootPreAuth
	case BootPreAuth:
		ok = to == BootInit || to == BootRestarting
	case BootInit:
		ok = to == BootPostAuth || to == BootRestarting
	case BootPostAuth:
		ok = to == BootRunning || to == BootRestarting
	case BootRunning:
		ok = to == BootRestarting
	case BootRestarting:
		ok = to == BootPreAuth
	}
	check.Assertf(ok, "boot phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}
