package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmypdf/internal/pkg/jwtutil"
)

func TestWorkspaceManagerGetUnknownKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	assert.Equal(t, 1, f.manager.Len())
}

func TestWorkspaceManagerRestoresSignedInUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.login(t)

	f.manager.Remove("ws-1")
	assert.Equal(t, 0, f.manager.Len())

	ws, err := f.manager.Get(ctx, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, ws.Identity.Current())
	assert.Equal(t, user.ID, ws.Identity.Current().ID)
	assert.Equal(t, 1, f.manager.Len())
}

func TestWorkspaceManagerForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.login(t)

	other := f.manager.Open("ws-2")
	_, err := other.Identity.Authenticate(ctx, "b@x.com", "pw")
	require.NoError(t, err)
	f.manager.Open("ws-3")

	found := f.manager.ForUser(user.ID)
	require.Len(t, found, 1)
	assert.Equal(t, "ws-1", found[0].Key)
}

func TestWorkspaceExpiryClosesIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	manager := NewWorkspaceManager(WorkspaceDeps{
		Backend:    f.accounts,
		Records:    f.records,
		Clock:      f.clock,
		IDs:        f.ids,
		ReplyDelay: time.Hour,
	}, 20*time.Millisecond)
	ws := manager.Open("short")
	_, err := ws.Identity.Authenticate(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	doc := f.upload(t, "a.pdf")
	_, err = ws.Ledger.StartSession(ctx, doc.ID)
	require.NoError(t, err)
	pending, err := ws.Ledger.SendMessage(ctx, "hi")
	require.NoError(t, err)

	// expired items are gone from Get even before the janitor runs
	require.Eventually(t, func() bool {
		_, ok := manager.items.Get("short")
		return !ok
	}, time.Second, 5*time.Millisecond)
	manager.items.DeleteExpired()

	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, ErrReplyCanceled)
}

func TestAuthServiceLoginIssuesWorkspaceToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	auth := NewAuthService(f.manager, f.ids, "secret", "chatmypdf", time.Hour)

	result, err := auth.Login(ctx, LoginInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 10, result.User.Credits)

	claims, err := jwtutil.ParseToken("secret", "chatmypdf", result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)

	ws, err := f.manager.Get(ctx, claims.WorkspaceKey)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, ws.Identity.Current().ID)

	auth.Logout(ctx, ws)
	_, err = f.manager.Get(ctx, claims.WorkspaceKey)
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestAuthServiceRejectsEmptyCredentials(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthService(f.manager, f.ids, "secret", "chatmypdf", time.Hour)

	_, err := auth.Register(context.Background(), RegisterInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, f.manager.Len())
}
