package livesync

import "github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"

// State is the lifecycle state of a Synchronizer.
type State int

const (
	// StateIdle means no owner is bound and no subscription is held.
	StateIdle State = iota
	// StateSubscribing means a subscription was requested and no set has arrived yet.
	StateSubscribing
	// StateLive means the snapshot reflects the latest set delivered by the store.
	StateLive
	// StateFailed means the feed terminated with an error. Only Open or Close leave it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// View is an immutable copy of a Synchronizer's observable state.
type View struct {
	OwnerID  string
	State    State
	Projects []domain.Project
	Err      error
}

// Empty reports whether the view holds no records.
func (v View) Empty() bool { return len(v.Projects) == 0 }
