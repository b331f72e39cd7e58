package ai

import (
	"context"
	"math/rand/v2"
	"sync"

	"chatmypdf/internal/model"
)

// ReplyRequest carries what a responder may look at when answering. The
// document is referenced by name only; its content is never read.
type ReplyRequest struct {
	DocumentName string
	History      []model.Message
	Prompt       string
}

type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// CannedReplies are the fixed assistant answers.
var CannedReplies = []string{
	"Based on the PDF content, I can provide the following information...",
	"The document suggests that the main findings are related to...",
	"According to the data in the PDF, the analysis shows...",
	"The methodology described in the document indicates...",
	"This PDF contains several key points worth noting...",
}

// CannedResponder picks one of CannedReplies uniformly at random and
// ignores the request.
type CannedResponder struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCannedResponder uses rnd when given so tests can fix the sequence.
func NewCannedResponder(rnd *rand.Rand) *CannedResponder {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &CannedResponder{rnd: rnd}
}

func (r *CannedResponder) Reply(_ context.Context, _ ReplyRequest) (string, error) {
	r.mu.Lock()
	i := r.rnd.IntN(len(CannedReplies))
	r.mu.Unlock()
	return CannedReplies[i], nil
}
