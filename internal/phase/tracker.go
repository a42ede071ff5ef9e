package phase

import (
	"sync/atomic"

	"github.com/lolparty/partywatch/internal/common/cnst"
)

// State is the coarse game-state bucket the rest of the watcher keys off.
type State int32

const (
	// Unknown means no gameflow data has been observed yet.
	Unknown State = iota
	// ChampSelect means the client is in champion select.
	ChampSelect
	// Other covers every phase that is not champ select.
	Other
)

func (s State) String() string {
	switch s {
	case ChampSelect:
		return "champselect"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Tracker holds the current phase. The watcher tick loop is the single
// writer; the chat loop and the status server read it lock-free.
type Tracker struct {
	v atomic.Int32
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Set records the current phase.
func (t *Tracker) Set(s State) {
	t.v.Store(int32(s))
}

// Get returns the last recorded phase.
func (t *Tracker) Get() State {
	return State(t.v.Load())
}

// InChampSelect reports whether the client is currently in champ select.
func (t *Tracker) InChampSelect() bool {
	return t.Get() == ChampSelect
}

// FromGameflow maps a gameflow phase string onto a State.
func FromGameflow(phase string) State {
	switch phase {
	case "":
		return Unknown
	case cnst.GameflowChampSelect:
		return ChampSelect
	default:
		return Other
	}
}
