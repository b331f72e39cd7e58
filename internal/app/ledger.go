package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatmypdf/internal/ai"
	"chatmypdf/internal/model"
)

const DefaultReplyDelay = 1500 * time.Millisecond

// PendingReply is handed out by SendMessage. The user message is already in
// the session; the assistant reply follows once Done is closed.
type PendingReply struct {
	UserMessage model.Message

	done  chan struct{}
	reply *model.Message
	err   error
}

func newPendingReply(msg model.Message) *PendingReply {
	return &PendingReply{UserMessage: msg, done: make(chan struct{})}
}

func (p *PendingReply) Done() <-chan struct{} { return p.done }

// Wait blocks until the reply is appended or ctx ends. A ctx error does not
// cancel the reply itself.
func (p *PendingReply) Wait(ctx context.Context) (*model.Message, error) {
	select {
	case <-p.done:
		if p.err != nil {
			return nil, p.err
		}
		reply := *p.reply
		return &reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *PendingReply) finish(reply *model.Message, err error) {
	p.reply = reply
	p.err = err
	close(p.done)
}

type LedgerOptions struct {
	Sessions   SessionStore
	Recorder   MessageRecorder
	History    HistoryLoader
	Responder  ai.Responder
	Clock      Clock
	IDs        IDGenerator
	ReplyDelay time.Duration
	Logger     *zap.Logger
}

// SessionLedger owns the chat sessions of one workspace, at most one per
// document, and the message flow inside them. Lock order is ledger, then
// registry or identity; neither calls back into the ledger.
type SessionLedger struct {
	mu       sync.Mutex
	identity *IdentityStore
	registry *DocumentRegistry
	opts     LedgerOptions
	logger   *zap.Logger

	ctx context.Context
	wg  sync.WaitGroup

	sessions map[string]*model.ChatSession // by document id
	order    []string
	current  string
	pending  map[string]*PendingReply // by session id
}

// NewSessionLedger ties reply delivery to ctx; cancelling it aborts pending
// replies without charging for them.
func NewSessionLedger(ctx context.Context, identity *IdentityStore, registry *DocumentRegistry, opts LedgerOptions) *SessionLedger {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if opts.Responder == nil {
		opts.Responder = ai.NewCannedResponder(nil)
	}
	if opts.ReplyDelay < 0 {
		opts.ReplyDelay = 0
	}
	return &SessionLedger{
		identity: identity,
		registry: registry,
		opts:     opts,
		logger:   opts.Logger,
		ctx:      ctx,
		sessions: make(map[string]*model.ChatSession),
		pending:  make(map[string]*PendingReply),
	}
}

// StartSession makes the session for documentID current, creating an empty
// one the first time.
func (l *SessionLedger) StartSession(ctx context.Context, documentID string) (*model.ChatSession, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, ErrNoDocumentSelected
	}
	user := l.identity.Current()
	if user == nil {
		return nil, ErrUnauthenticated
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if session, ok := l.sessions[documentID]; ok {
		l.current = documentID
		return snapshot(session), nil
	}

	session := &model.ChatSession{
		ID:         l.opts.IDs.New(),
		UserID:     user.ID,
		DocumentID: documentID,
		Messages:   []model.Message{},
		CreatedAt:  l.opts.Clock.Now(),
	}
	if l.opts.Sessions != nil {
		if err := l.opts.Sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("%w: save session: %v", ErrBackendFailure, err)
		}
	}
	l.sessions[documentID] = session
	l.order = append(l.order, documentID)
	l.current = documentID
	return snapshot(session), nil
}

// StartSelected starts the session for the registry's selected document.
func (l *SessionLedger) StartSelected(ctx context.Context) (*model.ChatSession, error) {
	selected := l.registry.Selected()
	if selected == "" {
		return nil, ErrNoDocumentSelected
	}
	return l.StartSession(ctx, selected)
}

// SendMessage appends the user message to the current session and schedules
// the assistant reply. Only one reply per session may be pending.
func (l *SessionLedger) SendMessage(ctx context.Context, text string) (*PendingReply, error) {
	l.mu.Lock()
	if l.identity.Current() == nil {
		l.mu.Unlock()
		return nil, errSendUnauthenticated
	}
	session, ok := l.sessions[l.current]
	if !ok {
		l.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		l.mu.Unlock()
		return nil, ErrMessageEmpty
	}
	if _, busy := l.pending[session.ID]; busy {
		l.mu.Unlock()
		return nil, ErrReplyPending
	}
	if err := l.ctx.Err(); err != nil {
		l.mu.Unlock()
		return nil, ErrReplyCanceled
	}
	userID, err := l.identity.reserve()
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}

	history := make([]model.Message, len(session.Messages))
	copy(history, session.Messages)

	msg := model.Message{
		ID:        l.opts.IDs.New(),
		SessionID: session.ID,
		UserID:    userID,
		Sender:    model.SenderUser,
		Content:   text,
		CreatedAt: l.opts.Clock.Now(),
	}
	session.Messages = append(session.Messages, msg)

	req := ai.ReplyRequest{History: history, Prompt: text}
	if doc, ok := l.registry.Get(session.DocumentID); ok {
		req.DocumentName = doc.Name
	}

	pending := newPendingReply(msg)
	l.pending[session.ID] = pending
	l.wg.Add(1)
	l.mu.Unlock()

	// The pending entry keeps a second send out while the recorder runs.
	l.record(ctx, msg)
	go l.deliver(session, userID, req, pending)
	return pending, nil
}

func (l *SessionLedger) deliver(session *model.ChatSession, userID string, req ai.ReplyRequest, pending *PendingReply) {
	defer l.wg.Done()

	abort := func(err error) {
		l.mu.Lock()
		delete(l.pending, session.ID)
		l.mu.Unlock()
		pending.finish(nil, err)
	}
	fail := func(err error) {
		l.identity.release(userID)
		abort(err)
	}

	select {
	case <-l.opts.Clock.After(l.opts.ReplyDelay):
	case <-l.ctx.Done():
		fail(ErrReplyCanceled)
		return
	}

	content, err := l.opts.Responder.Reply(l.ctx, req)
	if err != nil {
		l.logger.Error("generate reply failed", zap.String("session_id", session.ID), zap.Error(err))
		if l.ctx.Err() != nil {
			fail(ErrReplyCanceled)
			return
		}
		fail(fmt.Errorf("%w: generate reply: %v", ErrBackendFailure, err))
		return
	}

	// commit settles the reservation whatever it returns.
	if err := l.identity.commit(context.WithoutCancel(l.ctx), userID); err != nil {
		l.logger.Warn("charge credit failed", zap.String("session_id", session.ID), zap.Error(err))
		abort(err)
		return
	}

	reply := model.Message{
		ID:        l.opts.IDs.New(),
		SessionID: session.ID,
		UserID:    userID,
		Sender:    model.SenderAssistant,
		Content:   content,
		CreatedAt: l.opts.Clock.Now(),
	}
	l.mu.Lock()
	session.Messages = append(session.Messages, reply)
	delete(l.pending, session.ID)
	l.mu.Unlock()

	l.record(l.ctx, reply)
	pending.finish(&reply, nil)
}

// record failures are logged and not reconciled; the in-memory session
// stays authoritative for this workspace.
func (l *SessionLedger) record(ctx context.Context, msg model.Message) {
	if l.opts.Recorder == nil {
		return
	}
	if err := l.opts.Recorder.Record(context.WithoutCancel(ctx), msg); err != nil {
		l.logger.Warn("record chat message failed",
			zap.String("session_id", msg.SessionID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// Current returns a copy of the active session, or nil.
func (l *SessionLedger) Current() *model.ChatSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	session, ok := l.sessions[l.current]
	if !ok {
		return nil
	}
	return snapshot(session)
}

// Sessions returns copies of every session in creation order.
func (l *SessionLedger) Sessions() []model.ChatSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ChatSession, 0, len(l.order))
	for _, docID := range l.order {
		out = append(out, *snapshot(l.sessions[docID]))
	}
	return out
}

func (l *SessionLedger) Session(id string) (*model.ChatSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, session := range l.sessions {
		if session.ID == id {
			return snapshot(session), nil
		}
	}
	return nil, ErrSessionNotFound
}

// Restore reloads the user's sessions and their messages when the ledger is
// empty. No session is made current.
func (l *SessionLedger) Restore(ctx context.Context) error {
	user := l.identity.Current()
	if user == nil || l.opts.Sessions == nil {
		return nil
	}
	stored, err := l.opts.Sessions.ListByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%w: list sessions: %v", ErrBackendFailure, err)
	}

	restored := make([]*model.ChatSession, 0, len(stored))
	for i := range stored {
		session := stored[i]
		session.Messages = []model.Message{}
		if l.opts.History != nil {
			messages, err := l.opts.History.Load(ctx, session.ID)
			if err != nil {
				return fmt.Errorf("%w: load history: %v", ErrBackendFailure, err)
			}
			session.Messages = append(session.Messages, messages...)
		}
		restored = append(restored, &session)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sessions) > 0 {
		return nil
	}
	for _, session := range restored {
		if _, dup := l.sessions[session.DocumentID]; dup {
			continue
		}
		l.sessions[session.DocumentID] = session
		l.order = append(l.order, session.DocumentID)
	}
	return nil
}

// Wait blocks until every pending reply has been delivered or aborted.
func (l *SessionLedger) Wait() {
	l.wg.Wait()
}

func snapshot(session *model.ChatSession) *model.ChatSession {
	cp := *session
	cp.Messages = make([]model.Message, len(session.Messages))
	copy(cp.Messages, session.Messages)
	return &cp
}
