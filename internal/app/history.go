package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chatmypdf/internal/model"
)

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message) error
	Invalidate(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

type MessageLister interface {
	ListBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

// QueueRecorder publishes messages for the persistence worker and
// invalidates the cached history of their session.
type QueueRecorder struct {
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	logger       *zap.Logger
}

func NewQueueRecorder(publisher AsyncMessagePublisher, historyCache HistoryCache, logger *zap.Logger) *QueueRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueRecorder{publisher: publisher, historyCache: historyCache, logger: logger}
}

func (r *QueueRecorder) Record(ctx context.Context, msg model.Message) error {
	if r.historyCache != nil {
		if err := r.historyCache.Invalidate(ctx, msg.SessionID); err != nil {
			r.logger.Warn("invalidate cached history failed", zap.String("session_id", msg.SessionID), zap.Error(err))
		}
	}
	if err := r.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("%w: enqueue message: %v", ErrBackendFailure, err)
	}
	return nil
}

// CachedHistory reads from the redis cache unless the session has writes in
// flight, and falls back to the message table.
type CachedHistory struct {
	messages     MessageLister
	historyCache HistoryCache
	limit        int
}

func NewCachedHistory(messages MessageLister, historyCache HistoryCache, limit int) *CachedHistory {
	return &CachedHistory{messages: messages, historyCache: historyCache, limit: limit}
}

func (h *CachedHistory) Load(ctx context.Context, sessionID string) ([]model.Message, error) {
	if h.historyCache != nil {
		if cached, hit, err := h.historyCache.GetHistory(ctx, sessionID); err == nil && hit {
			return trimMessages(cached, h.limit), nil
		}
	}

	messages, err := h.messages.ListBySessionID(ctx, sessionID, h.limit)
	if err != nil {
		return nil, err
	}
	if h.historyCache != nil {
		if dirty, dirtyErr := h.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = h.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
