package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatmypdf/internal/model"
	"chatmypdf/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.CreditOrder{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestAccountBackendRegisterAndSignIn(t *testing.T) {
	ctx := context.Background()
	backend := NewAccountBackend(repository.NewUserRepository(newTestDB(t)), &seqIDs{}, 10)

	_, err := backend.SignUp(ctx, "a@x.com", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)

	user, err := backend.SignUp(ctx, "A@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, 10, user.Credits)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = backend.SignUp(ctx, "a@x.com", "password456")
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := backend.SignIn(ctx, "a@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = backend.SignIn(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = backend.SignIn(ctx, "nobody@x.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccountBackendCredits(t *testing.T) {
	ctx := context.Background()
	backend := NewAccountBackend(repository.NewUserRepository(newTestDB(t)), &seqIDs{}, 10)
	user, err := backend.SignUp(ctx, "a@x.com", "password123")
	require.NoError(t, err)

	require.NoError(t, backend.SaveCredits(ctx, user.ID, 4))
	require.NoError(t, backend.AddCredits(ctx, user.ID, 100))
	assert.ErrorIs(t, backend.AddCredits(ctx, user.ID, -1), ErrInvalidInput)

	left, err := backend.SpendCredit(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 103, left)

	got, err := backend.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 103, got.Credits)

	missing, err := backend.Lookup(ctx, "user-missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
	_, err = backend.SpendCredit(ctx, "user-missing")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSpendCreditStopsAtZero(t *testing.T) {
	ctx := context.Background()
	backend := NewAccountBackend(repository.NewUserRepository(newTestDB(t)), &seqIDs{}, 1)
	user, err := backend.SignUp(ctx, "a@x.com", "password123")
	require.NoError(t, err)

	left, err := backend.SpendCredit(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	left, err = backend.SpendCredit(ctx, user.ID)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 0, left)

	got, err := backend.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Credits)

	accounts := NewMockAccounts(&seqIDs{}, newFakeClock(), 1)
	mock, err := accounts.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	_, err = accounts.SpendCredit(ctx, mock.ID)
	require.NoError(t, err)
	left, err = accounts.SpendCredit(ctx, mock.ID)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 0, left)
}

func TestAccountBackendFailuresAreBackendFailures(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	backend := NewAccountBackend(repository.NewUserRepository(db), &seqIDs{}, 10)
	require.NoError(t, db.Migrator().DropTable(&model.User{}))

	_, err := backend.SignIn(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, ErrBackendFailure)
	_, err = backend.SignUp(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, ErrBackendFailure)
}

func TestSignUpHashFailures(t *testing.T) {
	ctx := context.Background()
	backend := NewAccountBackend(repository.NewUserRepository(newTestDB(t)), &seqIDs{}, 10)

	_, err := backend.SignUp(ctx, "a@x.com", strings.Repeat("p", 80))
	assert.ErrorIs(t, err, ErrInvalidInput)

	backend.hash = func([]byte, int) ([]byte, error) { return nil, errBoom }
	_, err = backend.SignUp(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.ErrorContains(t, err, "boom")

	missing, err := backend.userRepo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIdentityStoreWithAccountBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewAccountBackend(repository.NewUserRepository(newTestDB(t)), &seqIDs{}, 10)
	identity := NewIdentityStore("ws-db", backend, nil, nil)

	_, err := identity.Authenticate(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := identity.Register(ctx, " a@x.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, 10, user.Credits)

	identity.Deauthenticate(ctx)
	again, err := identity.Authenticate(ctx, "a@x.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestMockAccountsIssueFreshIdentities(t *testing.T) {
	ctx := context.Background()
	accounts := NewMockAccounts(&seqIDs{}, newFakeClock(), 10)

	a, err := accounts.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	b, err := accounts.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 10, b.Credits)

	require.NoError(t, accounts.AddCredits(ctx, a.ID, 5))
	assert.ErrorIs(t, accounts.AddCredits(ctx, a.ID, -20), ErrInvalidInput)
	got, err := accounts.Lookup(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Credits)
}
