package cnst

// GameflowPhase values reported by the client's gameflow session.
const (
	GameflowChampSelect = "ChampSelect"
	GameflowNone        = "None"
	GameflowLobby       = "Lobby"
	GameflowInProgress  = "InProgress"
)

// GameMode identifies how champions are obtained in the current queue.
type GameMode string

const (
	ModeUnknown   GameMode = ""
	ModeClassic   GameMode = "CLASSIC"
	ModeARAM      GameMode = "ARAM"
	ModeSwiftPlay GameMode = "SWIFTPLAY"
	ModeURF       GameMode = "URF"
)

func (m GameMode) String() string {
	return string(m)
}

// SharedAssignment reports whether champions are assigned (or chosen from a
// short bench) rather than drafted. In these modes a partial party is normal
// and injection must not wait for every member to share.
func (m GameMode) SharedAssignment() bool {
	switch m {
	case ModeARAM, ModeSwiftPlay, ModeURF:
		return true
	default:
		return false
	}
}
