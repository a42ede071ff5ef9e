package champselect

import (
	"github.com/tidwall/gjson"
)

// SelectionState is the coarse result of reading a champ-select session.
type SelectionState int

const (
	// SelectionNone means the local player has no pick yet.
	SelectionNone SelectionState = iota
	// SelectionInProgress means the local pick action is currently open.
	SelectionInProgress
	// SelectionLocked means the local player has a final champion.
	SelectionLocked
)

// Selection is the normalized local selection status for one tick.
type Selection struct {
	State      SelectionState
	ChampionID int64
}

// ReadSelection normalizes a champ-select session body into a Selection.
//
// Precedence matters: an in-progress pick action always wins over any
// completed value elsewhere in the payload, because draft sessions keep
// stale championId fields around while the player is still re-picking.
// The myTeam fallback is what resolves ARAM and other instant-assign
// modes, where no pick actions exist at all.
func ReadSelection(session []byte) Selection {
	cell := gjson.GetBytes(session, "localPlayerCellId")
	if !cell.Exists() {
		return Selection{State: SelectionNone}
	}
	localCell := cell.Int()

	var inProgress bool
	var lockedID int64

	gjson.GetBytes(session, "actions").ForEach(func(_, group gjson.Result) bool {
		group.ForEach(func(_, action gjson.Result) bool {
			if action.Get("actorCellId").Int() != localCell {
				return true
			}
			if action.Get("type").String() != "pick" {
				return true
			}
			if action.Get("isInProgress").Bool() {
				inProgress = true
				return false
			}
			if lockedID == 0 && action.Get("completed").Bool() {
				if id := action.Get("championId").Int(); id > 0 {
					lockedID = id
				}
			}
			return true
		})
		return !inProgress
	})

	if inProgress {
		return Selection{State: SelectionInProgress}
	}
	if lockedID > 0 {
		return Selection{State: SelectionLocked, ChampionID: lockedID}
	}

	// Assignment-only modes have no local pick action; the team roster is
	// the only place the assigned champion shows up.
	var assigned int64
	gjson.GetBytes(session, "myTeam").ForEach(func(_, member gjson.Result) bool {
		if member.Get("cellId").Int() != localCell {
			return true
		}
		if id := member.Get("championId").Int(); id > 0 {
			assigned = id
		}
		return false
	})
	if assigned > 0 {
		return Selection{State: SelectionLocked, ChampionID: assigned}
	}

	return Selection{State: SelectionNone}
}

// SwiftPlayCandidates extracts the short list of champions the local player
// may end up on in Swift Play, where there is no single locked pick to read.
// Sources are tried in priority order and the first non-empty one wins:
//
//  1. the local myTeam entry's championIds list
//  2. the session-level selectedChampions list
//  3. the local myTeam entry's primary/secondary championId
//  4. the lobby localMember playerSlots list
//
// As a last resort the whole session is walked for championId values; this
// generic walk is deliberately the lowest priority because it cannot tell
// the local player's champions from anyone else's.
func SwiftPlayCandidates(session, lobby []byte) []int64 {
	localCell := gjson.GetBytes(session, "localPlayerCellId").Int()

	var local gjson.Result
	gjson.GetBytes(session, "myTeam").ForEach(func(_, member gjson.Result) bool {
		if member.Get("cellId").Int() == localCell {
			local = member
			return false
		}
		return true
	})

	if ids := collectIDs(local.Get("championIds")); len(ids) > 0 {
		return ids
	}

	var selected []int64
	gjson.GetBytes(session, "selectedChampions").ForEach(func(_, v gjson.Result) bool {
		selected = appendID(selected, championID(v))
		return true
	})
	if len(selected) > 0 {
		return selected
	}

	var prim []int64
	prim = appendID(prim, local.Get("primaryChampionId").Int())
	prim = appendID(prim, local.Get("secondaryChampionId").Int())
	if len(prim) > 0 {
		return prim
	}

	var slots []int64
	gjson.GetBytes(lobby, "localMember.playerSlots").ForEach(func(_, slot gjson.Result) bool {
		slots = appendID(slots, championID(slot))
		return true
	})
	if len(slots) > 0 {
		return slots
	}

	var walked []int64
	walk(gjson.ParseBytes(session), func(id int64) {
		walked = appendID(walked, id)
	})
	return walked
}

// championID reads a champion id from either a bare number or an object
// carrying a championId field.
func championID(v gjson.Result) int64 {
	if v.Type == gjson.Number {
		return v.Int()
	}
	return v.Get("championId").Int()
}

func collectIDs(list gjson.Result) []int64 {
	var ids []int64
	list.ForEach(func(_, v gjson.Result) bool {
		ids = appendID(ids, championID(v))
		return true
	})
	return ids
}

// appendID discards non-positive ids and duplicates, preserving first-seen
// order.
func appendID(ids []int64, id int64) []int64 {
	if id <= 0 {
		return ids
	}
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}

func walk(v gjson.Result, visit func(int64)) {
	if v.IsObject() || v.IsArray() {
		v.ForEach(func(key, child gjson.Result) bool {
			if key.String() == "championId" && child.Type == gjson.Number {
				visit(child.Int())
				return true
			}
			walk(child, visit)
			return true
		})
	}
}
