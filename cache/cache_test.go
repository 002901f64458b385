package cache

import (
	"context"
	"testing"
	"time"

	"songbox/config"
	"songbox/core/player"
	"songbox/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestConnectAndTestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()}

	require.NoError(t, ConnectRedis(cfg))
	t.Cleanup(func() { _ = CloseRedis() })

	require.NoError(t, TestRedis(context.Background(), RedisClient))
	assert.False(t, mr.Exists(testKey))
}

func TestConnectRedisFails(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()}
	mr.Close()

	assert.Error(t, ConnectRedis(cfg))
}

func TestJamendoCache(t *testing.T) {
	mr, client := newRedis(t)
	c := NewJamendoCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "jamendo:tracks?limit=20")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "jamendo:tracks?limit=20", []byte(`[{"id":"1"}]`)))

	val, ok, err := c.Get(ctx, "jamendo:tracks?limit=20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, string(val))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "jamendo:tracks?limit=20")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueCacheRoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	c := NewQueueCache(client)
	ctx := context.Background()

	q, err := c.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, player.NoSelection, q.Cursor())

	q.Add(
		model.QueueItem{SongID: 1, Title: "One", URL: "/music/1.mp3"},
		model.QueueItem{SongID: 2, Title: "Two"},
		model.QueueItem{SongID: 1, Title: "One"}, // queued twice
	)
	require.True(t, q.Play(2))
	require.NoError(t, c.Save(ctx, "s1", q))

	loaded, err := c.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, q.Items(), loaded.Items())
	assert.Equal(t, 2, loaded.Cursor())

	assert.Equal(t, queueTTL, mr.TTL(queueKey("s1")))
	assert.Equal(t, queueTTL, mr.TTL(cursorKey("s1")))
}

func TestQueueCacheSaveShrinks(t *testing.T) {
	_, client := newRedis(t)
	c := NewQueueCache(client)
	ctx := context.Background()

	q := player.Restore([]model.QueueItem{{SongID: 1}, {SongID: 2}, {SongID: 3}}, 0)
	require.NoError(t, c.Save(ctx, "s1", q))

	require.True(t, q.Remove(1))
	require.NoError(t, c.Save(ctx, "s1", q))

	loaded, err := c.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, int64(3), loaded.Items()[1].SongID)

	q.Clear()
	require.NoError(t, c.Save(ctx, "s1", q))
	loaded, err = c.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestQueueCacheDelete(t *testing.T) {
	mr, client := newRedis(t)
	c := NewQueueCache(client)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "s1", player.Restore([]model.QueueItem{{SongID: 1}}, 0)))
	require.NoError(t, c.Delete(ctx, "s1"))

	assert.False(t, mr.Exists(queueKey("s1")))
	assert.False(t, mr.Exists(cursorKey("s1")))
}

func TestQueueCacheBacksPlayer(t *testing.T) {
	_, client := newRedis(t)
	p := player.New(NewQueueCache(client))
	ctx := context.Background()

	_, _, err := p.Update(ctx, "default", func(q *player.Queue) bool {
		q.Add(model.QueueItem{SongID: 7}, model.QueueItem{SongID: 8})
		return q.Next()
	})
	require.NoError(t, err)

	st, _, err := p.Update(ctx, "default", func(q *player.Queue) bool { return q.Ended() })
	require.NoError(t, err)
	require.NotNil(t, st.Current)
	assert.Equal(t, int64(8), st.Current.SongID)

	// a second process sees the same queue
	other := player.New(NewQueueCache(client))
	st, err = other.State(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cursor)
}
