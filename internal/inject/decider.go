package inject

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lolparty/partywatch/internal/common/cnst"
	"github.com/lolparty/partywatch/internal/share"
	"go.uber.org/zap"
)

// Injector is the external collaborator that performs the actual cosmetic
// injection. The decider only decides when to call it.
type Injector interface {
	Inject(ctx context.Context, championID int64, shares []share.ReceivedShare) error
}

// Decider computes a change-detection signature over the decision-relevant
// state and fires the one-shot injection when the signature changes to an
// actionable value. Re-evaluating an unchanged signature is a no-op; the
// latch is cleared only on phase exit.
type Decider struct {
	logger   *zap.Logger
	injector Injector

	mu      sync.Mutex
	lastSig string
}

func NewDecider(logger *zap.Logger, injector Injector) *Decider {
	return &Decider{
		logger:   logger.Named("inject.decider"),
		injector: injector,
	}
}

// Signature summarizes the local champion and the cached shares. Tuples are
// sorted so that receive order never changes the signature.
func Signature(localChampionID int64, shares []share.ReceivedShare) string {
	tuples := make([]string, 0, len(shares))
	for _, s := range shares {
		tuples = append(tuples, strings.Join([]string{
			s.FromSummonerID,
			strconv.FormatInt(s.ChampionID, 10),
			strconv.FormatInt(s.SkinID, 10),
			strconv.FormatInt(s.ChromaID, 10),
		}, ":"))
	}
	sort.Strings(tuples)

	var b strings.Builder
	b.WriteString("champion:")
	b.WriteString(strconv.FormatInt(localChampionID, 10))
	for _, t := range tuples {
		b.WriteByte('|')
		b.WriteString(t)
	}
	return b.String()
}

// ShouldInject reports whether injection is warranted right now: the local
// champion must be locked, and at least one valid share must exist. Full
// party participation is never required; in shared-assignment modes some
// members simply never share.
func ShouldInject(localChampionID int64, mode cnst.GameMode, shareCount int) bool {
	if localChampionID == 0 {
		return false
	}
	if mode.SharedAssignment() {
		// Partial participation suffices: waiting for the whole party would
		// deadlock on members who never share.
		return shareCount > 0
	}
	return shareCount > 0
}

// Evaluate runs one decision: if the state is actionable and its signature
// differs from the last fired one, the injector is invoked exactly once for
// that signature. Returns whether injection fired.
func (d *Decider) Evaluate(ctx context.Context, localChampionID int64, mode cnst.GameMode, shares []share.ReceivedShare) (bool, error) {
	sig := Signature(localChampionID, shares)

	d.mu.Lock()
	if sig == d.lastSig {
		d.mu.Unlock()
		return false, nil
	}
	if !ShouldInject(localChampionID, mode, len(shares)) {
		d.mu.Unlock()
		return false, nil
	}
	d.lastSig = sig
	d.mu.Unlock()

	d.logger.Info("firing injection",
		zap.Int64("championId", localChampionID),
		zap.String("mode", mode.String()),
		zap.Int("shares", len(shares)))
	if err := d.injector.Inject(ctx, localChampionID, shares); err != nil {
		return true, err
	}
	return true, nil
}

// Reset clears the latch. Called on phase exit and session change.
func (d *Decider) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSig = ""
}
