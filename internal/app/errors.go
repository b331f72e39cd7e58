package app

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailExists         = errors.New("email already exists")
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrUnsupportedType     = errors.New("unsupported file type")
	ErrNoActiveSession     = errors.New("no active chat session")
	ErrNoDocumentSelected  = errors.New("no document selected")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrMessageEmpty        = errors.New("message content is empty")
	ErrReplyPending        = errors.New("a reply is still pending for this session")
	ErrReplyCanceled       = errors.New("reply canceled")
	ErrBackendFailure      = errors.New("backend failure")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrUnknownTier         = errors.New("unknown credit pack")
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrOrderNotFound       = errors.New("order not found")
)

// noticeError attaches an operation specific notice to a sentinel.
type noticeError struct {
	err    error
	notice string
}

func (e *noticeError) Error() string { return e.err.Error() }
func (e *noticeError) Unwrap() error { return e.err }

func withNotice(err error, notice string) error {
	return &noticeError{err: err, notice: notice}
}

var (
	errSendUnauthenticated   = withNotice(ErrUnauthenticated, "You must be logged in to send messages")
	errUploadUnauthenticated = withNotice(ErrUnauthenticated, "You must be logged in to upload PDFs")
)

// Notice converts an error from this package into the short text shown to
// the user.
func Notice(err error) string {
	if err == nil {
		return ""
	}
	var ne *noticeError
	if errors.As(err, &ne) {
		return ne.notice
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "You must be logged in"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrEmailExists):
		return "An account with this email already exists"
	case errors.Is(err, ErrUnsupportedType):
		return "Only PDF files are accepted"
	case errors.Is(err, ErrNoActiveSession):
		return "No active chat session"
	case errors.Is(err, ErrNoDocumentSelected):
		return "Select a PDF to start chatting"
	case errors.Is(err, ErrInsufficientCredits):
		return "You have run out of credits"
	case errors.Is(err, ErrMessageEmpty):
		return "Message cannot be empty"
	case errors.Is(err, ErrReplyPending):
		return "Please wait for the current reply"
	case errors.Is(err, ErrReplyCanceled):
		return "The reply was canceled"
	case errors.Is(err, ErrDocumentNotFound):
		return "Document not found"
	case errors.Is(err, ErrSessionNotFound):
		return "Chat session not found"
	case errors.Is(err, ErrUnknownTier):
		return "Unknown credit pack"
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrOrderNotFound):
		return "Invalid payment notification"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input"
	default:
		return "Something went wrong. Please try again."
	}
}
