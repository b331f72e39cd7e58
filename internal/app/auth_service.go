package app

import (
	"context"
	"time"

	"chatmypdf/internal/model"
	"chatmypdf/internal/pkg/jwtutil"
)

// AuthService opens a workspace per sign in and issues the token that
// carries its key.
type AuthService struct {
	workspaces    *WorkspaceManager
	ids           IDGenerator
	jwtSecret     string
	jwtIssuer     string
	jwtExpiration time.Duration
}

type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.UserRecord
}

func NewAuthService(workspaces *WorkspaceManager, ids IDGenerator, jwtSecret, jwtIssuer string, jwtExpiration time.Duration) *AuthService {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &AuthService{
		workspaces:    workspaces,
		ids:           ids,
		jwtSecret:     jwtSecret,
		jwtIssuer:     jwtIssuer,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	return s.open(ctx, func(ws *Workspace) (*model.UserRecord, error) {
		return ws.Identity.Register(ctx, input.Email, input.Password)
	})
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	return s.open(ctx, func(ws *Workspace) (*model.UserRecord, error) {
		return ws.Identity.Authenticate(ctx, input.Email, input.Password)
	})
}

func (s *AuthService) open(ctx context.Context, signIn func(*Workspace) (*model.UserRecord, error)) (*AuthResult, error) {
	key := s.ids.New()
	ws := s.workspaces.Open(key)

	user, err := signIn(ws)
	if err != nil {
		s.workspaces.Remove(key)
		return nil, err
	}

	// Restoring is a no-op for a brand new account but picks up the
	// documents and chats of a returning database user.
	if err := ws.Documents.Restore(ctx); err != nil {
		s.workspaces.Remove(key)
		return nil, err
	}
	if err := ws.Ledger.Restore(ctx); err != nil {
		s.workspaces.Remove(key)
		return nil, err
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtIssuer, s.jwtExpiration, user.ID, key)
	if err != nil {
		ws.Identity.Deauthenticate(ctx)
		s.workspaces.Remove(key)
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Logout signs the workspace out and tears it down.
func (s *AuthService) Logout(ctx context.Context, ws *Workspace) {
	ws.Identity.Deauthenticate(ctx)
	s.workspaces.Remove(ws.Key)
}
