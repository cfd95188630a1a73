package proc

import "github.com/fanyingfx/sdb/breakpoint"

// VirtAddr re-exports breakpoint.VirtAddr so callers of this package
// don't need to import breakpoint just to name an address.
type VirtAddr = breakpoint.VirtAddr

// State is the lifecycle state of a traced inferior.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateExited
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StopReason explains why WaitOnSignal returned: the new state, and
// either an exit status (StateExited) or a signal number (StateStopped,
// StateTerminated).
type StopReason struct {
	Reason State
	Info   int
}
