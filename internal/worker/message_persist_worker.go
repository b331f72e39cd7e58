package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"chatmypdf/internal/model"
)

type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
}

// HistoryInvalidator drops a session's cached history once its messages
// have landed in the database.
type HistoryInvalidator interface {
	DeleteHistory(ctx context.Context, sessionID string) error
}

// MessagePersistWorker drains the persistence queue into MySQL. Inserts are
// idempotent on message id so redelivery is safe.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	repo      MessageStore
	history   HistoryInvalidator
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(
	conn *amqp.Connection,
	repo MessageStore,
	history HistoryInvalidator,
	queueName string,
	logger *zap.Logger,
) *MessagePersistWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagePersistWorker{
		conn:      conn,
		repo:      repo,
		history:   history,
		queueName: queueName,
		logger:    logger.With(zap.String("queue", queueName)),
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(32, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				w.ack(d, w.handle(workerCtx, d.Body), d.Redelivered)
			}
		}
	}()

	w.logger.Info("message persist worker started")
	return nil
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeDrop
	outcomeRetry
)

func (w *MessagePersistWorker) handle(ctx context.Context, body []byte) outcome {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		w.logger.Error("decode message failed", zap.Error(err))
		return outcomeDrop
	}
	if msg.ID == "" || msg.SessionID == "" {
		w.logger.Error("message missing identifiers", zap.String("message_id", msg.ID))
		return outcomeDrop
	}

	if err := w.repo.Create(ctx, &msg); err != nil {
		w.logger.Error("persist message failed",
			zap.String("message_id", msg.ID),
			zap.String("session_id", msg.SessionID),
			zap.Error(err),
		)
		return outcomeRetry
	}

	if w.history != nil {
		if err := w.history.DeleteHistory(ctx, msg.SessionID); err != nil {
			w.logger.Warn("drop cached history failed", zap.String("session_id", msg.SessionID), zap.Error(err))
		}
	}
	return outcomeAck
}

// ack retries a failed insert once, then drops it.
func (w *MessagePersistWorker) ack(d amqp.Delivery, result outcome, redelivered bool) {
	switch {
	case result == outcomeAck:
		_ = d.Ack(false)
	case result == outcomeRetry && !redelivered:
		_ = d.Nack(false, true)
	default:
		_ = d.Nack(false, false)
	}
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
