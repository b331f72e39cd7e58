package app

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"chatmypdf/internal/ai"
	"chatmypdf/internal/blob"
)

// Workspace is the state of one signed-in browser session: who is signed
// in, which documents they uploaded and their chats.
type Workspace struct {
	Key       string
	Identity  *IdentityStore
	Documents *DocumentRegistry
	Ledger    *SessionLedger

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Close aborts pending replies, releasing their credits, and waits for them.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		w.Ledger.Wait()
	})
}

type WorkspaceDeps struct {
	Backend    IdentityBackend
	Records    UserRecordStore
	Documents  DocumentStore
	Blobs      blob.Store
	Sessions   SessionStore
	Recorder   MessageRecorder
	History    HistoryLoader
	Responder  ai.Responder
	Clock      Clock
	IDs        IDGenerator
	ReplyDelay time.Duration
	Logger     *zap.Logger
}

// WorkspaceManager keeps live workspaces keyed by workspace key. Idle
// workspaces expire after ttl and are closed on eviction.
type WorkspaceManager struct {
	deps  WorkspaceDeps
	mu    sync.Mutex
	items *gocache.Cache
}

func NewWorkspaceManager(deps WorkspaceDeps, ttl time.Duration) *WorkspaceManager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.IDs == nil {
		deps.IDs = UUIDGenerator{}
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	items := gocache.New(ttl, time.Minute)
	items.OnEvicted(func(key string, v interface{}) {
		if ws, ok := v.(*Workspace); ok {
			ws.Close()
			deps.Logger.Debug("workspace closed", zap.String("workspace", key))
		}
	})
	return &WorkspaceManager{deps: deps, items: items}
}

// Open creates an empty workspace under key, closing any previous one.
func (m *WorkspaceManager) Open(key string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Delete(key)
	ws := m.build(key)
	m.items.SetDefault(key, ws)
	return ws
}

// Get returns the live workspace for key, rebuilding it from the persisted
// user record when this process no longer holds it.
func (m *WorkspaceManager) Get(ctx context.Context, key string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.items.Get(key); ok {
		ws := v.(*Workspace)
		m.items.SetDefault(key, ws)
		return ws, nil
	}

	ws := m.build(key)
	if err := ws.Identity.Restore(ctx); err != nil {
		ws.Close()
		return nil, err
	}
	if ws.Identity.Current() == nil {
		ws.Close()
		return nil, ErrWorkspaceNotFound
	}
	if err := ws.Documents.Restore(ctx); err != nil {
		ws.Close()
		return nil, err
	}
	if err := ws.Ledger.Restore(ctx); err != nil {
		ws.Close()
		return nil, err
	}
	m.items.SetDefault(key, ws)
	return ws, nil
}

// Remove closes and forgets the workspace under key.
func (m *WorkspaceManager) Remove(key string) {
	m.items.Delete(key)
}

// ForUser returns every live workspace signed in as userID.
func (m *WorkspaceManager) ForUser(userID string) []*Workspace {
	var out []*Workspace
	for _, item := range m.items.Items() {
		ws, ok := item.Object.(*Workspace)
		if !ok {
			continue
		}
		if user := ws.Identity.Current(); user != nil && user.ID == userID {
			out = append(out, ws)
		}
	}
	return out
}

func (m *WorkspaceManager) Len() int {
	return m.items.ItemCount()
}

// Close tears down every live workspace.
func (m *WorkspaceManager) Close() {
	for key := range m.items.Items() {
		m.items.Delete(key)
	}
}

func (m *WorkspaceManager) build(key string) *Workspace {
	logger := m.deps.Logger.With(zap.String("workspace", key))
	ctx, cancel := context.WithCancel(context.Background())

	identity := NewIdentityStore(key, m.deps.Backend, m.deps.Records, logger)
	registry := NewDocumentRegistry(identity, m.deps.Documents, m.deps.Blobs, m.deps.IDs, m.deps.Clock, logger)
	ledger := NewSessionLedger(ctx, identity, registry, LedgerOptions{
		Sessions:   m.deps.Sessions,
		Recorder:   m.deps.Recorder,
		History:    m.deps.History,
		Responder:  m.deps.Responder,
		Clock:      m.deps.Clock,
		IDs:        m.deps.IDs,
		ReplyDelay: m.deps.ReplyDelay,
		Logger:     logger,
	})
	return &Workspace{
		Key:       key,
		Identity:  identity,
		Documents: registry,
		Ledger:    ledger,
		cancel:    cancel,
	}
}
