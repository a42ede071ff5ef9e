package share

import (
	"context"
	"strconv"
	"time"
)

// ReceivedShare is a friend's cosmetic offer for one champion. Keyed by
// (FromSummonerID, ChampionID): a re-share for the same champion overwrites
// the previous entry, modeling re-rolls and trades.
type ReceivedShare struct {
	FromSummonerID   string `json:"fromSummonerId"`
	FromSummonerName string `json:"fromSummonerName,omitempty"`
	ChampionID       int64  `json:"championId"`
	SkinID           int64  `json:"skinId"`
	ChromaID         int64  `json:"chromaId,omitempty"`
	FilePath         string `json:"filePath,omitempty"`
	ReceivedAt       int64  `json:"receivedAt"` // unix millis or seconds
}

// Key returns the cache key for the share.
func (s ReceivedShare) Key() string {
	return s.FromSummonerID + "|" + itoa(s.ChampionID)
}

// Cache holds the shares received during the current session. All
// implementations are last-write-wins per key and session-scoped: Clear is
// invoked on every session change.
type Cache interface {
	// Put stores the share, overwriting any previous entry for the same
	// (friend, champion) key.
	Put(ctx context.Context, s ReceivedShare) error

	// Shares returns a snapshot of all cached shares.
	Shares(ctx context.Context) ([]ReceivedShare, error)

	// Prune removes entries older than maxAge. An entry exactly at maxAge
	// is retained.
	Prune(ctx context.Context, maxAge time.Duration, now time.Time) error

	// Count returns the number of unique (friend, champion) keys.
	Count(ctx context.Context) (int, error)

	// Clear drops all entries.
	Clear(ctx context.Context) error
}

// ageSeconds computes the entry age, tolerating either millisecond or
// second timestamps: values too large to be a plausible unix-seconds time
// are treated as milliseconds.
func ageSeconds(now time.Time, receivedAt int64) int64 {
	ts := receivedAt
	if ts > 10_000_000_000 {
		ts /= 1000
	}
	return now.Unix() - ts
}

// expired applies the prune rule: strictly older than maxAge goes away.
func expired(now time.Time, receivedAt int64, maxAge time.Duration) bool {
	return ageSeconds(now, receivedAt) > int64(maxAge.Seconds())
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
