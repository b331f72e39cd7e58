package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatmypdf/internal/cache"
	"chatmypdf/internal/model"
)

// IdentityStore holds the current user of one workspace and its credit
// balance. Credits held by in-flight replies are tracked as reservations so
// the spendable balance never goes below zero.
type IdentityStore struct {
	mu       sync.Mutex
	key      string
	backend  IdentityBackend
	records  UserRecordStore
	logger   *zap.Logger
	user     *model.UserRecord
	reserved int
}

func NewIdentityStore(key string, backend IdentityBackend, records UserRecordStore, logger *zap.Logger) *IdentityStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityStore{
		key:     key,
		backend: backend,
		records: records,
		logger:  logger.With(zap.String("workspace", key)),
	}
}

func (s *IdentityStore) Authenticate(ctx context.Context, email, secret string) (*model.UserRecord, error) {
	return s.signIn(ctx, email, secret, s.backend.SignIn)
}

func (s *IdentityStore) Register(ctx context.Context, email, secret string) (*model.UserRecord, error) {
	return s.signIn(ctx, email, secret, s.backend.SignUp)
}

func (s *IdentityStore) signIn(
	ctx context.Context,
	email, secret string,
	call func(ctx context.Context, email, secret string) (*model.User, error),
) (*model.UserRecord, error) {
	email = strings.TrimSpace(email)
	secret = strings.TrimSpace(secret)
	if email == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := call(ctx, email, secret)
	if err != nil {
		return nil, err
	}

	record := user.Record()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &record
	s.reserved = 0
	s.persistLocked(ctx)
	return s.currentLocked(), nil
}

// Deauthenticate clears the current user. Record store failures are logged.
func (s *IdentityStore) Deauthenticate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.reserved = 0
	if s.records == nil {
		return
	}
	if err := s.records.Delete(ctx, s.key); err != nil {
		s.logger.Warn("delete user record failed", zap.Error(err))
	}
}

// SetCredits overwrites the balance. Negative values are stored as zero.
// Without a current user it does nothing.
func (s *IdentityStore) SetCredits(ctx context.Context, credits int) error {
	if credits < 0 {
		credits = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	if err := s.backend.SaveCredits(ctx, s.user.ID, credits); err != nil {
		return fmt.Errorf("%w: save credits: %v", ErrBackendFailure, err)
	}
	s.user.Credits = credits
	s.persistLocked(ctx)
	return nil
}

// Grant adds credits the backend has already recorded, e.g. a settled purchase.
func (s *IdentityStore) Grant(ctx context.Context, credits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || credits <= 0 {
		return
	}
	s.user.Credits += credits
	s.persistLocked(ctx)
}

// Current returns a copy of the current user, or nil.
func (s *IdentityStore) Current() *model.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

// Available is the balance minus credits held by pending replies.
func (s *IdentityStore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0
	}
	return max(s.user.Credits-s.reserved, 0)
}

// Restore rehydrates the current user from the record store. A record that
// cannot be decoded is deleted and treated as absent.
func (s *IdentityStore) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil || s.records == nil {
		return nil
	}

	record, err := s.records.Load(ctx, s.key)
	if err != nil {
		if errors.Is(err, cache.ErrCorruptRecord) {
			s.logger.Warn("discarding unreadable user record", zap.Error(err))
			if delErr := s.records.Delete(ctx, s.key); delErr != nil {
				s.logger.Warn("delete user record failed", zap.Error(delErr))
			}
			return nil
		}
		return fmt.Errorf("%w: load user record: %v", ErrBackendFailure, err)
	}
	if record == nil {
		return nil
	}

	// The backend may have seen purchases or spends while this workspace
	// was not live. A user it no longer knows is not restored.
	fresh, err := s.backend.Lookup(ctx, record.ID)
	switch {
	case err != nil:
		s.logger.Warn("refresh user from backend failed", zap.Error(err))
	case fresh == nil:
		s.logger.Warn("discarding record of unknown user", zap.String("user_id", record.ID))
		if delErr := s.records.Delete(ctx, s.key); delErr != nil {
			s.logger.Warn("delete user record failed", zap.Error(delErr))
		}
		return nil
	default:
		record.Credits = fresh.Credits
	}

	s.user = record
	s.persistLocked(ctx)
	return nil
}

func (s *IdentityStore) reserve() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return "", errSendUnauthenticated
	}
	if s.user.Credits-s.reserved <= 0 {
		return "", ErrInsufficientCredits
	}
	s.reserved++
	return s.user.ID, nil
}

// commit settles one reservation held by userID by spending a credit in the
// backend. The balance the backend reports replaces the local one, also when
// nothing was left to spend.
func (s *IdentityStore) commit(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != userID {
		return errSendUnauthenticated
	}
	if s.reserved > 0 {
		s.reserved--
	}

	balance, err := s.backend.SpendCredit(ctx, userID)
	if err != nil && !errors.Is(err, ErrInsufficientCredits) {
		return err
	}
	s.user.Credits = balance
	s.persistLocked(ctx)
	return err
}

func (s *IdentityStore) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != userID {
		return
	}
	if s.reserved > 0 {
		s.reserved--
	}
}

func (s *IdentityStore) currentLocked() *model.UserRecord {
	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

func (s *IdentityStore) persistLocked(ctx context.Context) {
	if s.records == nil || s.user == nil {
		return
	}
	if err := s.records.Save(ctx, s.key, *s.user); err != nil {
		s.logger.Warn("save user record failed", zap.Error(err))
	}
}
