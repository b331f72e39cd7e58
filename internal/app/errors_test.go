package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotice(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errSendUnauthenticated, "You must be logged in to send messages"},
		{errUploadUnauthenticated, "You must be logged in to upload PDFs"},
		{ErrUnauthenticated, "You must be logged in"},
		{ErrNoActiveSession, "No active chat session"},
		{ErrInsufficientCredits, "You have run out of credits"},
		{ErrUnsupportedType, "Only PDF files are accepted"},
		{ErrInvalidCredentials, "Invalid email or password"},
		{fmt.Errorf("%w: disk full", ErrBackendFailure), "Something went wrong. Please try again."},
		{fmt.Errorf("wrapped: %w", ErrReplyPending), "Please wait for the current reply"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Notice(tt.err))
	}
}
