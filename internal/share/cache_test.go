package share

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCache_LastWriteWinsPerKey(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	// friend B re-shares for the same champion: single entry, newest wins
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "B", ChampionID: 238, SkinID: 15, ReceivedAt: time.Now().UnixMilli()}))
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "B", ChampionID: 238, SkinID: 20, ReceivedAt: time.Now().UnixMilli()}))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	shares, err := c.Shares(ctx)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, int64(20), shares[0].SkinID)
}

func TestMemoryCache_DistinctChampionsKeepDistinctEntries(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	t0 := time.Now().UnixMilli()
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "A", ChampionID: 89, SkinID: 1, ReceivedAt: t0}))
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "A", ChampionID: 61, SkinID: 3, ReceivedAt: t0 + 3000}))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	shares, err := c.Shares(ctx)
	require.NoError(t, err)
	skins := map[int64]int64{}
	for _, s := range shares {
		skins[s.ChampionID] = s.SkinID
	}
	assert.Equal(t, int64(1), skins[89])
	assert.Equal(t, int64(3), skins[61])
}

func TestMemoryCache_PruneBoundary(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()
	now := time.Now()
	maxAge := 300 * time.Second

	// exactly at max age: retained; one second older: removed
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "A", ChampionID: 1, ReceivedAt: now.Unix() - 300}))
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "B", ChampionID: 1, ReceivedAt: now.Unix() - 301}))
	require.NoError(t, c.Prune(ctx, maxAge, now))

	shares, err := c.Shares(ctx)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "A", shares[0].FromSummonerID)
}

func TestMemoryCache_PruneToleratesMillisecondTimestamps(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "ms", ChampionID: 1, ReceivedAt: (now.Unix() - 100) * 1000}))
	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "sec", ChampionID: 1, ReceivedAt: now.Unix() - 100}))
	require.NoError(t, c.Prune(ctx, 300*time.Second, now))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, c.Prune(ctx, 50*time.Second, now))
	count, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, ReceivedShare{FromSummonerID: "A", ChampionID: 89, ReceivedAt: time.Now().UnixMilli()}))
	require.NoError(t, c.Clear(ctx))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
