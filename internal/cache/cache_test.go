package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmypdf/internal/model"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHistoryCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewHistoryCache(client, time.Minute, 5*time.Second)

	_, hit, err := c.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit)

	messages := []model.Message{
		{ID: "m1", SessionID: "s1", Sender: model.SenderUser, Content: "hi"},
		{ID: "m2", SessionID: "s1", Sender: model.SenderAssistant, Content: "hello"},
	}
	require.NoError(t, c.SetHistory(ctx, "s1", messages))

	got, hit, err := c.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[1].ID)

	require.NoError(t, c.Invalidate(ctx, "s1"))
	dirty, err := c.IsDirty(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, dirty)
	_, hit, err = c.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetHistory(ctx, "s1", messages))
	_, hit, err = c.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit, "dirty sessions never hit")

	mr.FastForward(6 * time.Second)
	dirty, err = c.IsDirty(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, dirty)
	_, hit, err = c.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, c.DeleteHistory(ctx, "s1"))
	_, hit, err = c.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisUserRecords(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	store := NewRedisUserRecords(client, time.Hour)

	missing, err := store.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	record := model.UserRecord{ID: "user-1", Email: "a@x.com", Credits: 7}
	require.NoError(t, store.Save(ctx, "ws-1", record))

	got, err := store.Load(ctx, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record, *got)
	assert.True(t, mr.TTL("chatmypdf:user:ws-1") > 0)

	require.NoError(t, store.Delete(ctx, "ws-1"))
	got, err = store.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisUserRecordsCorrupt(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	store := NewRedisUserRecords(client, 0)

	mr.HSet("chatmypdf:user:ws-1", "id", "user-1", "credits", "lots")
	_, err := store.Load(ctx, "ws-1")
	assert.ErrorIs(t, err, ErrCorruptRecord)

	mr.HSet("chatmypdf:user:ws-2", "email", "a@x.com")
	_, err = store.Load(ctx, "ws-2")
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestMemoryUserRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserRecords(0)

	record := model.UserRecord{ID: "user-1", Email: "a@x.com", Credits: 3}
	require.NoError(t, store.Save(ctx, "ws-1", record))

	got, err := store.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, record, *got)

	store.items.SetDefault("ws-2", []byte("{not json"))
	_, err = store.Load(ctx, "ws-2")
	assert.ErrorIs(t, err, ErrCorruptRecord)

	require.NoError(t, store.Delete(ctx, "ws-1"))
	got, err = store.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
