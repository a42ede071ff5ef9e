package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/lolparty/partywatch/internal/common/cnst"
	"github.com/lolparty/partywatch/internal/lcu"
	"github.com/lolparty/partywatch/internal/share"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Transport tunnels party-mode messages through the client's chat feature.
// Chat was never meant to be a control plane: delivery is best effort, every
// open conversation has to be polled, and ordinary player chat shares the
// same stream, so everything here filters on the fixed message tag and
// deduplicates on provider message ids.
type Transport struct {
	logger *zap.Logger
	client *lcu.Client
	codec  *share.Codec
	seen   *share.SeenMessages
}

func NewTransport(logger *zap.Logger, client *lcu.Client, codec *share.Codec, seen *share.SeenMessages) *Transport {
	return &Transport{
		logger: logger.Named("chat.transport"),
		client: client,
		codec:  codec,
		seen:   seen,
	}
}

// Poll scans every open conversation for inbound skin shares and returns
// the decoded ones. Transport and parse failures on a single conversation
// never abort the poll; a failed conversation simply contributes nothing.
func (t *Transport) Poll(ctx context.Context) ([]share.ReceivedShare, error) {
	convs, err := t.client.Get(ctx, cnst.PathConversations)
	if err != nil {
		return nil, err
	}

	var out []share.ReceivedShare
	gjson.ParseBytes(convs).ForEach(func(_, conv gjson.Result) bool {
		id := conv.Get("id").String()
		if id == "" {
			return true
		}
		msgs, err := t.client.Get(ctx, cnst.PathConversations+"/"+url.PathEscape(id)+"/messages")
		if err != nil {
			t.logger.Debug("skipping conversation",
				zap.String("conversation", id),
				zap.Error(err))
			return true
		}
		out = append(out, t.parseMessages(msgs)...)
		return true
	})
	return out, nil
}

func (t *Transport) parseMessages(msgs []byte) []share.ReceivedShare {
	var out []share.ReceivedShare
	gjson.ParseBytes(msgs).ForEach(func(_, msg gjson.Result) bool {
		body := msg.Get("body").String()
		if !strings.HasPrefix(body, cnst.MessageTag) {
			return true
		}

		// Provider ids may be strings or numbers; gjson coerces both.
		providerID := msg.Get("id").String()
		if providerID != "" {
			if t.seen.Seen(providerID) {
				return true
			}
			// Marked even when the body turns out malformed: a broken
			// message must not be re-parsed on every poll.
			t.seen.Mark(providerID)
		}

		env, err := share.Decode(body)
		if err != nil {
			if !errors.Is(err, share.ErrNotPartyMessage) {
				t.logger.Debug("dropping malformed party message",
					zap.String("id", providerID),
					zap.Error(err))
			}
			return true
		}
		if env.Sender == t.codec.InstanceID() {
			// Own outbound message echoed back by the chat service.
			return true
		}
		if env.Type != cnst.MessageTypeSkinShare {
			return true
		}

		var payload share.SkinShare
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.logger.Debug("dropping undecodable skin share",
				zap.String("id", providerID),
				zap.Error(err))
			return true
		}
		rs := toReceived(payload, msg)
		if rs.FromSummonerID == "" || rs.ChampionID <= 0 {
			return true
		}
		out = append(out, rs)
		return true
	})
	return out
}

// toReceived converts a wire payload into a cache entry, filling the sender
// from the surrounding chat message when the payload omits it. ReceivedAt
// comes from the chat service's message timestamp, falling back to local
// receipt time; the sender's own clock is never used for aging.
func toReceived(payload share.SkinShare, msg gjson.Result) share.ReceivedShare {
	from := payload.SummonerID
	if from == "" {
		from = msg.Get("fromSummonerId").String()
	}
	receivedAt := time.Now().UnixMilli()
	if ts, err := time.Parse(time.RFC3339, msg.Get("timestamp").String()); err == nil {
		receivedAt = ts.UnixMilli()
	}
	return share.ReceivedShare{
		FromSummonerID:   from,
		FromSummonerName: payload.SummonerName,
		ChampionID:       payload.ChampionID,
		SkinID:           payload.SkinID,
		ChromaID:         payload.ChromaID,
		FilePath:         payload.FilePath,
		ReceivedAt:       receivedAt,
	}
}

// SendShare encodes the payload and posts it to an already-resolved
// conversation. Conversation resolution (friend id to chat id) is the
// caller's concern.
func (t *Transport) SendShare(ctx context.Context, conversationID string, payload share.SkinShare) error {
	body, err := t.codec.Encode(cnst.MessageTypeSkinShare, payload)
	if err != nil {
		return err
	}
	req, err := json.Marshal(map[string]string{
		"body": body,
		"type": "chat",
	})
	if err != nil {
		return err
	}
	_, err = t.client.Post(ctx, cnst.PathConversations+"/"+url.PathEscape(conversationID)+"/messages", req)
	return err
}
