package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// BucketWindow is the width of the fallback session window used when the
// gameflow payload carries no real game id yet.
const BucketWindow = 10 * time.Minute

// InvalidateFunc clears one piece of per-session state. Hooks run after the
// new id is stored and outside the registry lock, so they are free to call
// back into the registry; the context bounds any backend round-trip a cache
// clear needs.
type InvalidateFunc func(ctx context.Context)

// Registry derives the current session identifier and clears per-session
// state whenever it changes. Shares must never leak from one game into the
// next, and a differing id on the very first observation also counts as a
// change so the caches self-heal after an app restart mid-game.
type Registry struct {
	logger   *zap.Logger
	mu       sync.Mutex
	current  string
	onChange []InvalidateFunc
}

func NewRegistry(logger *zap.Logger, onChange ...InvalidateFunc) *Registry {
	return &Registry{
		logger:   logger.Named("session.registry"),
		onChange: onChange,
	}
}

// Current returns the last derived session id, or "" before the first
// successful refresh.
func (r *Registry) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Refresh derives the session id from a gameflow session body and, on any
// change, stores the new id and then runs the invalidation hooks. The id is
// swapped before the hooks run so no clear can block Current; a concurrent
// reader may briefly see the new id while the caches are still emptying,
// which only ever under-reports cached shares.
func (r *Registry) Refresh(ctx context.Context, gameflow []byte, now time.Time) string {
	id := DeriveID(gameflow, now)

	r.mu.Lock()
	if id == r.current {
		r.mu.Unlock()
		return id
	}

	// A bucket id that gains a real game id within its own window is the
	// same underlying session being upgraded, not a new one; clearing here
	// would throw away shares received seconds earlier.
	upgrade := isBucket(r.current) && isGame(id) && r.current == bucketID(now)
	prev := r.current
	r.current = id
	r.mu.Unlock()

	if upgrade {
		r.logger.Debug("session id upgraded",
			zap.String("from", prev),
			zap.String("to", id))
		return id
	}

	r.logger.Info("session changed, clearing per-session state",
		zap.String("from", prev),
		zap.String("to", id))
	for _, fn := range r.onChange {
		fn(ctx)
	}
	return id
}

// DeriveID extracts a session id from gameflow JSON: an explicit game id
// when present (top-level or nested), otherwise a 10-minute time bucket.
func DeriveID(gameflow []byte, now time.Time) string {
	if id := gjson.GetBytes(gameflow, "gameData.gameId").Int(); id > 0 {
		return fmt.Sprintf("game:%d", id)
	}
	if id := gjson.GetBytes(gameflow, "id").Int(); id > 0 {
		return fmt.Sprintf("game:%d", id)
	}
	return bucketID(now)
}

func bucketID(now time.Time) string {
	return fmt.Sprintf("bucket:%d", now.Unix()/int64(BucketWindow.Seconds()))
}

func isBucket(id string) bool {
	return strings.HasPrefix(id, "bucket:")
}

func isGame(id string) bool {
	return strings.HasPrefix(id, "game:")
}
