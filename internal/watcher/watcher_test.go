package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lolparty/partywatch/internal/chat"
	"github.com/lolparty/partywatch/internal/common/config"
	"github.com/lolparty/partywatch/internal/inject"
	"github.com/lolparty/partywatch/internal/lcu"
	"github.com/lolparty/partywatch/internal/phase"
	"github.com/lolparty/partywatch/internal/share"
	"github.com/lolparty/partywatch/internal/status"
)

type fakeLCU struct {
	mu       sync.Mutex
	gameflow string
	csession string
	lobby    string
}

func (f *fakeLCU) set(gameflow, csession string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gameflow = gameflow
	f.csession = csession
}

func (f *fakeLCU) setLobby(lobby string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lobby = lobby
}

func (f *fakeLCU) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lol-gameflow/v1/session", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gameflow == "" {
			http.Error(w, "no session", http.StatusNotFound)
			return
		}
		w.Write([]byte(f.gameflow))
	})
	mux.HandleFunc("/lol-champ-select/v1/session", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.csession == "" {
			http.Error(w, "no session", http.StatusNotFound)
			return
		}
		w.Write([]byte(f.csession))
	})
	mux.HandleFunc("/lol-lobby/v2/lobby", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.lobby == "" {
			http.Error(w, "no lobby", http.StatusNotFound)
			return
		}
		w.Write([]byte(f.lobby))
	})
	mux.HandleFunc("/lol-chat/v1/conversations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	return mux
}

type countingInjector struct {
	mu    sync.Mutex
	calls int
	last  int64
}

func (c *countingInjector) Inject(_ context.Context, championID int64, _ []share.ReceivedShare) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.last = championID
	return nil
}

func (c *countingInjector) snapshot() (int, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.last
}

func newTestWatcher(t *testing.T, f *fakeLCU) (*Watcher, *countingInjector, share.Cache) {
	t.Helper()
	srv := httptest.NewTLSServer(f.handler())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	log := zap.NewNop()
	client := lcu.NewClient(log, lcu.Connection{Port: port, Token: "x"}, time.Second)
	cache := share.NewMemoryCache(log)
	codec := share.NewCodec()
	injector := &countingInjector{}

	w := New(Options{
		Logger:  log,
		Client:  client,
		Config:  config.DefaultConfig().Watcher,
		Cache:   cache,
		Deduper: share.NewDeduper(),
		Decider: inject.NewDecider(log, injector),
		Chat:    chat.NewTransport(log, client, codec, share.NewSeenMessages()),
		Metrics: status.NewMetrics("test"),
	})
	return w, injector, cache
}

const aramGameflow = `{"phase":"ChampSelect","gameData":{"gameId":42,"queue":{"gameMode":"ARAM"}}}`
const aramSession = `{"localPlayerCellId":1,"actions":[],"myTeam":[{"cellId":1,"championId":103}]}`

func TestTick_InjectsOncePerSignature(t *testing.T) {
	f := &fakeLCU{}
	f.set(aramGameflow, aramSession)
	w, injector, cache := newTestWatcher(t, f)
	ctx := context.Background()

	// first tick establishes the session (and clears the fresh caches)
	require.NoError(t, w.tick(ctx))
	require.NoError(t, cache.Put(ctx, share.ReceivedShare{
		FromSummonerID: "777", ChampionID: 103, SkinID: 5, ReceivedAt: time.Now().UnixMilli(),
	}))

	require.NoError(t, w.tick(ctx))
	calls, last := injector.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(103), last)
	assert.True(t, w.Tracker().InChampSelect())
	assert.Equal(t, "game:42", w.registry.Current())

	// unchanged state: the latch holds
	require.NoError(t, w.tick(ctx))
	calls, _ = injector.snapshot()
	assert.Equal(t, 1, calls)
}

func TestTick_NoSharesNoInjection(t *testing.T) {
	f := &fakeLCU{}
	f.set(aramGameflow, aramSession)
	w, injector, _ := newTestWatcher(t, f)

	require.NoError(t, w.tick(context.Background()))
	calls, _ := injector.snapshot()
	assert.Equal(t, 0, calls)
}

func TestTick_PhaseExitClearsDeduperAndLatch(t *testing.T) {
	f := &fakeLCU{}
	f.set(aramGameflow, aramSession)
	w, injector, cache := newTestWatcher(t, f)
	ctx := context.Background()

	require.NoError(t, w.tick(ctx))
	require.NoError(t, cache.Put(ctx, share.ReceivedShare{
		FromSummonerID: "777", ChampionID: 103, SkinID: 5, ReceivedAt: time.Now().UnixMilli(),
	}))
	w.deduper.MarkSent(share.SentSignature("777", 103, 5, 0))
	require.NoError(t, w.tick(ctx))

	// game starts: same game id, phase leaves champ select
	f.set(`{"phase":"InProgress","gameData":{"gameId":42,"queue":{"gameMode":"ARAM"}}}`, "")
	require.NoError(t, w.tick(ctx))
	assert.Equal(t, phase.Other, w.Tracker().Get())
	assert.Equal(t, 0, w.deduper.Size())

	// back in champ select with identical state: latch was cleared, so it
	// fires again
	f.set(aramGameflow, aramSession)
	require.NoError(t, w.tick(ctx))
	calls, _ := injector.snapshot()
	assert.Equal(t, 2, calls)
}

func TestTick_GameflowDropClearsPhaseState(t *testing.T) {
	f := &fakeLCU{}
	f.set(aramGameflow, aramSession)
	w, injector, cache := newTestWatcher(t, f)
	ctx := context.Background()

	require.NoError(t, w.tick(ctx))
	require.NoError(t, cache.Put(ctx, share.ReceivedShare{
		FromSummonerID: "777", ChampionID: 103, SkinID: 5, ReceivedAt: time.Now().UnixMilli(),
	}))
	w.deduper.MarkSent(share.SentSignature("777", 103, 5, 0))
	require.NoError(t, w.tick(ctx))
	calls, _ := injector.snapshot()
	require.Equal(t, 1, calls)

	// the gameflow endpoint drops out mid champ select; that is still a
	// phase exit and must clear the per-phase state
	f.set("", "")
	require.NoError(t, w.tick(ctx))
	assert.Equal(t, phase.Unknown, w.Tracker().Get())
	assert.Equal(t, 0, w.deduper.Size())

	// identical state on re-entry within the same session: the share cache
	// survives and the cleared latch fires again
	f.set(aramGameflow, aramSession)
	require.NoError(t, w.tick(ctx))
	calls, _ = injector.snapshot()
	assert.Equal(t, 2, calls)
}

const swiftGameflow = `{"phase":"ChampSelect","gameData":{"gameId":88,"queue":{"gameMode":"SWIFTPLAY"}}}`
const swiftSession = `{"localPlayerCellId":2,"actions":[],"myTeam":[{"cellId":2,"championId":0}]}`

func TestTick_SwiftPlaySingleCandidateInjects(t *testing.T) {
	f := &fakeLCU{}
	f.set(swiftGameflow, swiftSession)
	f.setLobby(`{"localMember":{"playerSlots":[{"championId":55}]}}`)
	w, injector, cache := newTestWatcher(t, f)
	ctx := context.Background()

	require.NoError(t, w.tick(ctx))
	require.NoError(t, cache.Put(ctx, share.ReceivedShare{
		FromSummonerID: "777", ChampionID: 55, SkinID: 2, ReceivedAt: time.Now().UnixMilli(),
	}))
	require.NoError(t, w.tick(ctx))

	calls, last := injector.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(55), last)
	assert.Equal(t, []int64{55}, w.Candidates())
}

func TestTick_SwiftPlayAmbiguousCandidatesHold(t *testing.T) {
	f := &fakeLCU{}
	f.set(swiftGameflow, swiftSession)
	f.setLobby(`{"localMember":{"playerSlots":[{"championId":55},{"championId":10}]}}`)
	w, injector, cache := newTestWatcher(t, f)
	ctx := context.Background()

	require.NoError(t, w.tick(ctx))
	require.NoError(t, cache.Put(ctx, share.ReceivedShare{
		FromSummonerID: "777", ChampionID: 55, SkinID: 2, ReceivedAt: time.Now().UnixMilli(),
	}))
	require.NoError(t, w.tick(ctx))

	// two possible champions: no injection, but the shortlist is visible
	calls, _ := injector.snapshot()
	assert.Equal(t, 0, calls)
	assert.Equal(t, []int64{55, 10}, w.Candidates())

	s := w.Snapshot(ctx)
	assert.Equal(t, []int64{55, 10}, s.SwiftPlayCandidates)
}

func TestTick_SessionChangeClearsCache(t *testing.T) {
	f := &fakeLCU{}
	f.set(aramGameflow, aramSession)
	w, _, cache := newTestWatcher(t, f)
	ctx := context.Background()

	require.NoError(t, w.tick(ctx))
	require.NoError(t, cache.Put(ctx, share.ReceivedShare{
		FromSummonerID: "777", ChampionID: 103, SkinID: 5, ReceivedAt: time.Now().UnixMilli(),
	}))

	f.set(`{"phase":"ChampSelect","gameData":{"gameId":43,"queue":{"gameMode":"ARAM"}}}`, aramSession)
	require.NoError(t, w.tick(ctx))

	count, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, "game:43", w.registry.Current())
}

func TestTick_MissingSessionIsNotAnError(t *testing.T) {
	f := &fakeLCU{} // 404 on everything
	w, _, _ := newTestWatcher(t, f)

	require.NoError(t, w.tick(context.Background()))
	assert.Equal(t, phase.Unknown, w.Tracker().Get())
}

func TestWatcher_StartShutdown(t *testing.T) {
	f := &fakeLCU{}
	f.set(aramGameflow, aramSession)
	w, _, _ := newTestWatcher(t, f)

	w.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	w.Shutdown() // must return promptly with both loops stopped
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	max := 10 * time.Second

	assert.Equal(t, time.Second, backoffDelay(base, 1, max))
	assert.Equal(t, 2*time.Second, backoffDelay(base, 2, max))
	assert.Equal(t, 4*time.Second, backoffDelay(base, 3, max))
	assert.Equal(t, max, backoffDelay(base, 10, max))
}

func TestShareSkin_DedupedWithinPhase(t *testing.T) {
	var sends int
	mux := http.NewServeMux()
	mux.HandleFunc("/lol-chat/v1/conversations/9@x/messages", func(w http.ResponseWriter, r *http.Request) {
		sends++
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, _ := strconv.Atoi(u.Port())

	log := zap.NewNop()
	client := lcu.NewClient(log, lcu.Connection{Port: port, Token: "x"}, time.Second)
	codec := share.NewCodec()
	w := New(Options{
		Logger:  log,
		Client:  client,
		Config:  config.DefaultConfig().Watcher,
		Cache:   share.NewMemoryCache(log),
		Deduper: share.NewDeduper(),
		Decider: inject.NewDecider(log, &countingInjector{}),
		Chat:    chat.NewTransport(log, client, codec, share.NewSeenMessages()),
		Metrics: status.NewMetrics("test2"),
	})

	payload := share.SkinShare{SummonerID: "1", ChampionID: 89, SkinID: 4}
	require.NoError(t, w.ShareSkin(context.Background(), "9", "9@x", payload))
	require.NoError(t, w.ShareSkin(context.Background(), "9", "9@x", payload))
	assert.Equal(t, 1, sends)

	s := w.Snapshot(context.Background())
	assert.Equal(t, 1, s.SentShares)
}
