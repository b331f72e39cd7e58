package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatmypdf/internal/ai"
	"chatmypdf/internal/blob"
	"chatmypdf/internal/cache"
	"chatmypdf/internal/model"
)

type fakeTimer struct {
	at time.Time
	ch chan time.Time
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.timers = append(c.timers, fakeTimer{at: c.now.Add(d), ch: ch})
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.at.After(c.now) {
			t.ch <- c.now
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
}

func (c *fakeClock) waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// awaitTimers blocks until n reply goroutines are parked on the clock.
func (c *fakeClock) awaitTimers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.waiters() == n }, 2*time.Second, time.Millisecond)
}

type seqIDs struct {
	n atomic.Int64
}

func (s *seqIDs) New() string {
	return fmt.Sprintf("id-%d", s.n.Add(1))
}

type stubResponder struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (r *stubResponder) Reply(_ context.Context, _ ai.ReplyRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.reply, r.err
}

type recordingRecorder struct {
	mu       sync.Mutex
	messages []model.Message
	err      error
}

func (r *recordingRecorder) Record(_ context.Context, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingRecorder) recorded() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

var errBoom = errors.New("boom")

type fixture struct {
	clock     *fakeClock
	ids       *seqIDs
	accounts  *MockAccounts
	records   *cache.MemoryUserRecords
	blobs     *blob.MemoryStore
	recorder  *recordingRecorder
	responder ai.Responder
	manager   *WorkspaceManager
	ws        *Workspace
}

func newFixture(t *testing.T, mutate ...func(*WorkspaceDeps)) *fixture {
	t.Helper()
	f := &fixture{
		clock:     newFakeClock(),
		ids:       &seqIDs{},
		records:   cache.NewMemoryUserRecords(0),
		blobs:     blob.NewMemoryStore(),
		recorder:  &recordingRecorder{},
		responder: ai.NewCannedResponder(rand.New(rand.NewPCG(1, 1))),
	}
	f.accounts = NewMockAccounts(f.ids, f.clock, 10)

	deps := WorkspaceDeps{
		Backend:    f.accounts,
		Records:    f.records,
		Blobs:      f.blobs,
		Recorder:   f.recorder,
		Responder:  f.responder,
		Clock:      f.clock,
		IDs:        f.ids,
		ReplyDelay: DefaultReplyDelay,
	}
	for _, m := range mutate {
		m(&deps)
	}
	f.manager = NewWorkspaceManager(deps, time.Hour)
	f.ws = f.manager.Open("ws-1")
	t.Cleanup(f.manager.Close)
	return f
}

func (f *fixture) login(t *testing.T) *model.UserRecord {
	t.Helper()
	user, err := f.ws.Identity.Authenticate(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	return user
}

func (f *fixture) upload(t *testing.T, name string) *model.Document {
	t.Helper()
	return uploadTo(t, f.ws, name)
}

func uploadTo(t *testing.T, ws *Workspace, name string) *model.Document {
	t.Helper()
	content := "%PDF-1.4 fake"
	doc, err := ws.Documents.Upload(context.Background(), FileUpload{
		Name:        name,
		ContentType: model.ContentTypePDF,
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	})
	require.NoError(t, err)
	return doc
}
