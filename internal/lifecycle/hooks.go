package lifecycle

import (
	"context"
	"io"
)

// Phase orders shutdown work. Hooks of one phase run concurrently; a phase
// starts once the previous one has finished.
type Phase int

const (
	// PhaseDrain stops taking new work, for example by failing readiness.
	PhaseDrain Phase = iota
	// PhaseStop ends servers and pollers.
	PhaseStop
	// PhaseClose releases stores the earlier phases used.
	PhaseClose
)

func (p Phase) String() string {
	switch p {
	case PhaseDrain:
		return "drain"
	case PhaseStop:
		return "stop"
	case PhaseClose:
		return "close"
	default:
		return "unknown"
	}
}

type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}

// CloserHook closes c, such as *sql.DB or a Redis client, in PhaseClose.
func CloserHook(name string, c io.Closer) Hook {
	return Hook{
		Name:  name,
		Phase: PhaseClose,
		Fn:    func(context.Context) error { return c.Close() },
	}
}
