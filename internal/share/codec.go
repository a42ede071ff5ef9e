package share

import (
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/lolparty/partywatch/internal/common/cnst"
)

var (
	// ErrNotPartyMessage marks a chat body without the party-mode tag.
	ErrNotPartyMessage = errors.New("share: not a party-mode message")
	// ErrBadEnvelope marks a tagged body whose payload fails to decode.
	// Such messages are dropped silently and never retried.
	ErrBadEnvelope = errors.New("share: malformed envelope")
)

// Envelope is the wire format tunneled through chat bodies. V and Seq were
// absent from early builds; the decoder treats a missing V as version 1 and
// a missing Seq as 0 so old peers keep working.
type Envelope struct {
	V      int             `json:"v"`
	Seq    uint64          `json:"seq"`
	Sender string          `json:"sender,omitempty"`
	Type   string          `json:"message_type"`
	Data   json.RawMessage `json:"data"`
}

// SkinShare is the payload of a skin_share message.
type SkinShare struct {
	SummonerID   string `json:"summonerId"`
	SummonerName string `json:"summonerName,omitempty"`
	ChampionID   int64  `json:"championId"`
	SkinID       int64  `json:"skinId"`
	ChromaID     int64  `json:"chromaId,omitempty"`
	FilePath     string `json:"filePath,omitempty"`
	SentAt       int64  `json:"sentAt,omitempty"`
}

// Codec encodes and decodes party-mode envelopes. Each process instance
// stamps its own id into outbound messages so it can drop its own echoes
// when polling shared conversations.
type Codec struct {
	instanceID string
	seq        atomic.Uint64
}

func NewCodec() *Codec {
	return &Codec{instanceID: uuid.NewString()}
}

// InstanceID returns the sender id stamped into outbound envelopes.
func (c *Codec) InstanceID() string {
	return c.instanceID
}

// Encode wraps data in a tagged, versioned envelope with the next
// per-sender sequence number and returns the chat body to send.
func (c *Codec) Encode(msgType string, data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	env := Envelope{
		V:      cnst.EnvelopeVersion,
		Seq:    c.seq.Add(1),
		Sender: c.instanceID,
		Type:   msgType,
		Data:   raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return cnst.MessageTag + string(body), nil
}

// Decode parses a chat body. Bodies without the tag return
// ErrNotPartyMessage; tagged bodies that fail to parse return
// ErrBadEnvelope.
func Decode(body string) (*Envelope, error) {
	if !strings.HasPrefix(body, cnst.MessageTag) {
		return nil, ErrNotPartyMessage
	}
	payload := strings.TrimPrefix(body, cnst.MessageTag)

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, ErrBadEnvelope
	}
	if env.Type == "" {
		return nil, ErrBadEnvelope
	}
	if env.V == 0 {
		env.V = 1
	}
	return &env, nil
}
