package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chatmypdf/internal/model"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type IDGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }

// IdentityBackend signs users in and owns their authoritative credit balance.
type IdentityBackend interface {
	SignIn(ctx context.Context, email, secret string) (*model.User, error)
	SignUp(ctx context.Context, email, secret string) (*model.User, error)
	// Lookup returns nil, nil for an unknown user.
	Lookup(ctx context.Context, userID string) (*model.User, error)
	SaveCredits(ctx context.Context, userID string, credits int) error
	// AddCredits grants delta credits; negative deltas are rejected.
	AddCredits(ctx context.Context, userID string, delta int) error
	// SpendCredit takes one credit if the stored balance is positive and
	// returns the balance left. When there is nothing to take it returns the
	// stored balance and ErrInsufficientCredits.
	SpendCredit(ctx context.Context, userID string) (int, error)
}

// UserRecordStore keeps the flat current-user record between requests,
// keyed by workspace key.
type UserRecordStore interface {
	Save(ctx context.Context, key string, record model.UserRecord) error
	Load(ctx context.Context, key string) (*model.UserRecord, error)
	Delete(ctx context.Context, key string) error
}

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	ListByUserID(ctx context.Context, userID string) ([]model.Document, error)
	DeleteByIDAndUserID(ctx context.Context, id, userID string) error
}

type SessionStore interface {
	Create(ctx context.Context, session *model.ChatSession) error
	ListByUserID(ctx context.Context, userID string) ([]model.ChatSession, error)
}

// MessageRecorder hands a chat message to the persistence pipeline.
type MessageRecorder interface {
	Record(ctx context.Context, msg model.Message) error
}

// HistoryLoader reads a session's persisted messages in insertion order.
type HistoryLoader interface {
	Load(ctx context.Context, sessionID string) ([]model.Message, error)
}
