package cnst

// MessageTag prefixes every party-mode chat body. Anything without the tag
// is ordinary player chat and must be ignored.
const MessageTag = "$PW$"

// EnvelopeVersion is the current wire version of the party-mode envelope.
const EnvelopeVersion = 1

// Party-mode message types carried inside the envelope.
const (
	MessageTypeSkinShare = "skin_share"
	MessageTypePing      = "ping"
)

// LCU endpoints polled by the watcher and the chat transport.
const (
	PathGameflowSession    = "/lol-gameflow/v1/session"
	PathChampSelectSession = "/lol-champ-select/v1/session"
	PathLobby              = "/lol-lobby/v2/lobby"
	PathConversations      = "/lol-chat/v1/conversations"
)
