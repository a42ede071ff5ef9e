package watcher

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/lolparty/partywatch/internal/champselect"
	"github.com/lolparty/partywatch/internal/chat"
	"github.com/lolparty/partywatch/internal/common/cnst"
	"github.com/lolparty/partywatch/internal/common/config"
	"github.com/lolparty/partywatch/internal/inject"
	"github.com/lolparty/partywatch/internal/lcu"
	"github.com/lolparty/partywatch/internal/phase"
	"github.com/lolparty/partywatch/internal/session"
	"github.com/lolparty/partywatch/internal/share"
	"github.com/lolparty/partywatch/internal/status"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Options wires the watcher's collaborators. Everything is constructor
// injected so tests can run isolated instances side by side.
type Options struct {
	Logger  *zap.Logger
	Client  *lcu.Client
	Config  config.WatcherConfig
	Cache   share.Cache
	Deduper *share.Deduper
	Decider *inject.Decider
	Chat    *chat.Transport
	Metrics *status.Metrics
}

// Watcher owns the two poll loops: the tick loop driving phase, session and
// injection state off the gameflow/champ-select endpoints, and the chat
// loop feeding the share cache. Within one tick the order is fixed: phase,
// then session, then champ-select parse, then the injection decision, so a
// session clear can never interleave with a stale read in the same tick.
type Watcher struct {
	logger   *zap.Logger
	client   *lcu.Client
	cfg      config.WatcherConfig
	tracker  *phase.Tracker
	registry *session.Registry
	cache    share.Cache
	deduper  *share.Deduper
	decider  *inject.Decider
	chat     *chat.Transport
	metrics  *status.Metrics

	modeMu     sync.RWMutex
	mode       cnst.GameMode
	candidates []int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options) *Watcher {
	w := &Watcher{
		logger:  opts.Logger.Named("watcher"),
		client:  opts.Client,
		cfg:     opts.Config,
		tracker: phase.NewTracker(),
		cache:   opts.Cache,
		deduper: opts.Deduper,
		decider: opts.Decider,
		chat:    opts.Chat,
		metrics: opts.Metrics,
	}
	w.registry = session.NewRegistry(opts.Logger, func(ctx context.Context) {
		if err := w.cache.Clear(ctx); err != nil {
			w.logger.Warn("failed to clear share cache", zap.Error(err))
		}
		w.deduper.Clear()
		w.decider.Reset()
		w.metrics.SessionReset()
	})
	return w
}

// Tracker exposes the phase tracker for lock-free reads elsewhere.
func (w *Watcher) Tracker() *phase.Tracker {
	return w.tracker
}

// setPhase records the new phase. Per-phase state (send dedup, injection
// latch, swift-play candidates) is cleared on any transition out of champ
// select, including one observed through a gameflow endpoint error.
func (w *Watcher) setPhase(state phase.State) {
	prev := w.tracker.Get()
	w.tracker.Set(state)
	if prev == phase.ChampSelect && state != phase.ChampSelect {
		w.logger.Info("left champ select", zap.String("phase", state.String()))
		w.deduper.Clear()
		w.decider.Reset()
		w.setCandidates(nil)
	}
}

// Start launches both loops. They run until the context is cancelled or
// Shutdown is called.
func (w *Watcher) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel

	w.wg.Add(2)
	go w.runTicks(ctx)
	go w.runChat(ctx)
}

// Shutdown stops both loops and waits for them to exit.
func (w *Watcher) Shutdown() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) runTicks(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	streak := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := w.tick(ctx); err != nil {
			streak++
			w.metrics.LCUError()
			delay := backoffDelay(w.cfg.PollInterval, streak, w.cfg.MaxBackoff)
			w.logger.Debug("tick failed, backing off",
				zap.Int("streak", streak),
				zap.Duration("delay", delay),
				zap.Error(err))
			timer.Reset(delay)
			continue
		}
		streak = 0
		w.metrics.TickDone()
		timer.Reset(w.cfg.PollInterval)
	}
}

// tick runs one poll cycle. Only transport-level failures return an error
// (and trigger backoff); a missing session or unexpected status means
// nothing happened this tick.
func (w *Watcher) tick(ctx context.Context) error {
	now := time.Now()

	gameflow, err := w.client.Get(ctx, cnst.PathGameflowSession)
	if err != nil {
		if errors.Is(err, lcu.ErrStatus) {
			// No gameflow session exists outside of lobby/game. Losing the
			// endpoint mid champ select still counts as leaving it.
			w.setPhase(phase.Unknown)
			return nil
		}
		return err
	}

	state := phase.FromGameflow(gjson.GetBytes(gameflow, "phase").String())
	w.setPhase(state)

	w.registry.Refresh(ctx, gameflow, now)
	w.setMode(cnst.GameMode(gjson.GetBytes(gameflow, "gameData.queue.gameMode").String()))

	if state != phase.ChampSelect {
		return nil
	}

	csession, err := w.client.Get(ctx, cnst.PathChampSelectSession)
	if err != nil {
		if errors.Is(err, lcu.ErrStatus) {
			return nil
		}
		return err
	}
	sel := champselect.ReadSelection(csession)

	if err := w.cache.Prune(ctx, w.cfg.ShareMaxAge, now); err != nil {
		w.logger.Warn("share cache prune failed", zap.Error(err))
	}

	var candidates []int64
	if sel.State != champselect.SelectionLocked && w.Mode() == cnst.ModeSwiftPlay {
		lobby, err := w.client.Get(ctx, cnst.PathLobby)
		if err != nil && !errors.Is(err, lcu.ErrStatus) {
			return err
		}
		candidates = champselect.SwiftPlayCandidates(csession, lobby)
		// an unambiguous shortlist is as good as a lock
		if len(candidates) == 1 {
			sel = champselect.Selection{State: champselect.SelectionLocked, ChampionID: candidates[0]}
		}
	}
	w.setCandidates(candidates)

	if sel.State != champselect.SelectionLocked {
		return nil
	}

	shares, err := w.cache.Shares(ctx)
	if err != nil {
		w.logger.Warn("share cache read failed", zap.Error(err))
		return nil
	}
	fired, err := w.decider.Evaluate(ctx, sel.ChampionID, w.Mode(), shares)
	if fired {
		w.metrics.InjectionFired()
	}
	if err != nil {
		// Injection failures surface through the injector's own channel;
		// the loop keeps ticking.
		w.logger.Warn("injection failed", zap.Error(err))
	}
	return nil
}

func (w *Watcher) runChat(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.cfg.ChatPollInterval)
	defer timer.Stop()

	streak := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		received, err := w.chat.Poll(ctx)
		if err != nil {
			streak++
			delay := backoffDelay(w.cfg.ChatPollInterval, streak, w.cfg.MaxBackoff)
			w.logger.Debug("chat poll failed, backing off",
				zap.Duration("delay", delay),
				zap.Error(err))
			timer.Reset(delay)
			continue
		}
		streak = 0

		for _, rs := range received {
			if err := w.cache.Put(ctx, rs); err != nil {
				w.logger.Warn("failed to cache received share", zap.Error(err))
				continue
			}
			w.metrics.ShareReceived()
			w.logger.Info("received share",
				zap.String("from", rs.FromSummonerID),
				zap.Int64("championId", rs.ChampionID),
				zap.Int64("skinId", rs.SkinID))
		}
		timer.Reset(w.cfg.ChatPollInterval)
	}
}

// ShareSkin sends the local player's skin for a champion to a party member,
// at most once per phase. The conversation id must already be resolved from
// the friend id by the caller.
func (w *Watcher) ShareSkin(ctx context.Context, friendID, conversationID string, payload share.SkinShare) error {
	sig := share.SentSignature(friendID, payload.ChampionID, payload.SkinID, payload.ChromaID)
	if w.deduper.WasSent(sig) {
		return nil
	}
	if payload.SentAt == 0 {
		payload.SentAt = time.Now().UnixMilli()
	}
	if err := w.chat.SendShare(ctx, conversationID, payload); err != nil {
		return err
	}
	w.deduper.MarkSent(sig)
	w.metrics.ShareSent()
	return nil
}

// Snapshot implements the status server's view of the watcher.
func (w *Watcher) Snapshot(ctx context.Context) status.Snapshot {
	count, err := w.cache.Count(ctx)
	if err != nil {
		w.logger.Debug("share count unavailable", zap.Error(err))
	}
	return status.Snapshot{
		Phase:               w.tracker.Get().String(),
		SessionID:           w.registry.Current(),
		CachedShares:        count,
		SentShares:          w.deduper.Size(),
		Mode:                w.Mode().String(),
		SwiftPlayCandidates: w.Candidates(),
	}
}

// Mode returns the game mode observed on the last tick.
func (w *Watcher) Mode() cnst.GameMode {
	w.modeMu.RLock()
	defer w.modeMu.RUnlock()
	return w.mode
}

func (w *Watcher) setMode(m cnst.GameMode) {
	w.modeMu.Lock()
	defer w.modeMu.Unlock()
	if m != "" {
		w.mode = m
	}
}

// Candidates returns the swift-play champion shortlist from the last tick,
// empty outside swift-play champ select.
func (w *Watcher) Candidates() []int64 {
	w.modeMu.RLock()
	defer w.modeMu.RUnlock()
	return append([]int64(nil), w.candidates...)
}

func (w *Watcher) setCandidates(ids []int64) {
	w.modeMu.Lock()
	defer w.modeMu.Unlock()
	w.candidates = ids
}

// backoffDelay grows the retry delay multiplicatively with the error
// streak, capped at max.
func backoffDelay(base time.Duration, streak int, max time.Duration) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(streak-1)))
	if d > max {
		return max
	}
	if d < base {
		return base
	}
	return d
}
