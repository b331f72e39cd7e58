package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmypdf/internal/cache"
	"chatmypdf/internal/model"
)

type capturePublisher struct {
	published []model.Message
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, msg model.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

type countingLister struct {
	calls    int
	messages []model.Message
}

func (l *countingLister) ListBySessionID(_ context.Context, _ string, _ int) ([]model.Message, error) {
	l.calls++
	return l.messages, nil
}

func newHistoryCache(t *testing.T) *cache.HistoryCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewHistoryCache(client, time.Minute, time.Minute)
}

func TestCachedHistoryFallsThroughWhileDirty(t *testing.T) {
	ctx := context.Background()
	hc := newHistoryCache(t)
	lister := &countingLister{messages: []model.Message{{ID: "m1", SessionID: "s1"}}}
	history := NewCachedHistory(lister, hc, 50)

	got, err := history.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, lister.calls)

	// served from cache now
	_, err = history.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)

	publisher := &capturePublisher{}
	recorder := NewQueueRecorder(publisher, hc, nil)
	require.NoError(t, recorder.Record(ctx, model.Message{ID: "m2", SessionID: "s1"}))
	require.Len(t, publisher.published, 1)

	_, err = history.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestQueueRecorderPublishFailure(t *testing.T) {
	recorder := NewQueueRecorder(&capturePublisher{err: errBoom}, nil, nil)
	err := recorder.Record(context.Background(), model.Message{ID: "m1", SessionID: "s1"})
	assert.ErrorIs(t, err, ErrBackendFailure)
}

func TestTrimMessages(t *testing.T) {
	msgs := []model.Message{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	assert.Len(t, trimMessages(msgs, 0), 3)
	assert.Equal(t, []model.Message{{ID: "2"}, {ID: "3"}}, trimMessages(msgs, 2))
}
