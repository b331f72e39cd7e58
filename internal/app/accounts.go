package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"chatmypdf/internal/model"
	"chatmypdf/internal/repository"
)

// MockAccounts accepts any non-empty email and secret and hands out a fresh
// identity with the starting grant on every sign in. Issued identities are
// kept in memory so later credit changes can be looked up.
type MockAccounts struct {
	mu              sync.Mutex
	ids             IDGenerator
	clock           Clock
	startingCredits int
	users           map[string]*model.User
}

func NewMockAccounts(ids IDGenerator, clock Clock, startingCredits int) *MockAccounts {
	return &MockAccounts{
		ids:             ids,
		clock:           clock,
		startingCredits: startingCredits,
		users:           make(map[string]*model.User),
	}
}

func (m *MockAccounts) SignIn(_ context.Context, email, _ string) (*model.User, error) {
	now := m.clock.Now()
	user := &model.User{
		ID:        "user-" + m.ids.New(),
		Email:     email,
		Credits:   m.startingCredits,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	cp := *user
	return &cp, nil
}

func (m *MockAccounts) SignUp(ctx context.Context, email, secret string) (*model.User, error) {
	return m.SignIn(ctx, email, secret)
}

func (m *MockAccounts) Lookup(_ context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (m *MockAccounts) SaveCredits(_ context.Context, userID string, credits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.Credits = credits
	}
	return nil
}

func (m *MockAccounts) AddCredits(_ context.Context, userID string, delta int) error {
	if delta < 0 {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.Credits += delta
	}
	return nil
}

func (m *MockAccounts) SpendCredit(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return 0, ErrUnauthenticated
	}
	if user.Credits <= 0 {
		return user.Credits, ErrInsufficientCredits
	}
	user.Credits--
	return user.Credits, nil
}

const minSecretLength = 8

// AccountBackend keeps users in MySQL with bcrypt hashed secrets.
type AccountBackend struct {
	userRepo        *repository.UserRepository
	ids             IDGenerator
	startingCredits int
	hash            func(secret []byte, cost int) ([]byte, error)
}

func NewAccountBackend(userRepo *repository.UserRepository, ids IDGenerator, startingCredits int) *AccountBackend {
	return &AccountBackend{
		userRepo:        userRepo,
		ids:             ids,
		startingCredits: startingCredits,
		hash:            bcrypt.GenerateFromPassword,
	}
}

func (b *AccountBackend) SignUp(ctx context.Context, email, secret string) (*model.User, error) {
	email = strings.ToLower(email)
	if len(secret) < minSecretLength {
		return nil, ErrInvalidInput
	}

	existing, err := b.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, backendFailure(err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := b.hash([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrInvalidInput
		}
		return nil, backendFailure(fmt.Errorf("hash password: %w", err))
	}

	user := &model.User{
		ID:           "user-" + b.ids.New(),
		Email:        email,
		PasswordHash: string(hash),
		Credits:      b.startingCredits,
	}
	if err := b.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, backendFailure(err)
	}
	return user, nil
}

func (b *AccountBackend) SignIn(ctx context.Context, email, secret string) (*model.User, error) {
	user, err := b.userRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, backendFailure(err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (b *AccountBackend) Lookup(ctx context.Context, userID string) (*model.User, error) {
	user, err := b.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, backendFailure(err)
	}
	return user, nil
}

func (b *AccountBackend) SaveCredits(ctx context.Context, userID string, credits int) error {
	if err := b.userRepo.UpdateCredits(ctx, userID, credits); err != nil {
		return backendFailure(err)
	}
	return nil
}

func (b *AccountBackend) AddCredits(ctx context.Context, userID string, delta int) error {
	if delta < 0 {
		return ErrInvalidInput
	}
	if err := b.userRepo.AddCredits(ctx, userID, delta); err != nil {
		return backendFailure(err)
	}
	return nil
}

func (b *AccountBackend) SpendCredit(ctx context.Context, userID string) (int, error) {
	spent, err := b.userRepo.SpendCredit(ctx, userID)
	if err != nil {
		return 0, backendFailure(err)
	}
	user, err := b.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, backendFailure(err)
	}
	if user == nil {
		return 0, ErrUnauthenticated
	}
	if !spent {
		return user.Credits, ErrInsufficientCredits
	}
	return user.Credits, nil
}

func backendFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendFailure, err)
}

var (
	_ IdentityBackend = (*MockAccounts)(nil)
	_ IdentityBackend = (*AccountBackend)(nil)
)
