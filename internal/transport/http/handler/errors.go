package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/app"
	"chatmypdf/internal/transport/http/middleware"
	"chatmypdf/internal/transport/http/response"
)

var (
	errNotConnected     = errors.New("not connected")
	errConnectionClosed = errors.New("connection closed")
)

// respondError turns an app error into the envelope. The message is always
// the user-facing notice, never the wrapped cause.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Error(c, status, code, app.Notice(err))
}

func classify(err error) (int, int) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.CodeInvalidCredentials
	case errors.Is(err, app.ErrUnauthenticated):
		return http.StatusUnauthorized, response.CodeUnauthorized
	case errors.Is(err, app.ErrEmailExists):
		return http.StatusConflict, response.CodeEmailExists
	case errors.Is(err, app.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, response.CodeUnsupportedType
	case errors.Is(err, app.ErrMessageEmpty):
		return http.StatusBadRequest, response.CodeMessageEmpty
	case errors.Is(err, app.ErrNoDocumentSelected):
		return http.StatusBadRequest, response.CodeNoDocumentSelected
	case errors.Is(err, app.ErrNoActiveSession):
		return http.StatusConflict, response.CodeNoActiveSession
	case errors.Is(err, app.ErrUnknownTier):
		return http.StatusBadRequest, response.CodeUnknownTier
	case errors.Is(err, app.ErrInsufficientCredits):
		return http.StatusPaymentRequired, response.CodeInsufficientCredits
	case errors.Is(err, app.ErrInvalidSignature):
		return http.StatusForbidden, response.CodeInvalidSignature
	case errors.Is(err, app.ErrSessionNotFound):
		return http.StatusNotFound, response.CodeSessionNotFound
	case errors.Is(err, app.ErrDocumentNotFound):
		return http.StatusNotFound, response.CodeDocumentNotFound
	case errors.Is(err, app.ErrOrderNotFound):
		return http.StatusNotFound, response.CodeOrderNotFound
	case errors.Is(err, app.ErrReplyPending):
		return http.StatusConflict, response.CodeReplyPending
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest, response.CodeBadRequest
	case errors.Is(err, app.ErrBackendFailure), errors.Is(err, app.ErrReplyCanceled):
		return http.StatusServiceUnavailable, response.CodeBackendFailure
	default:
		return http.StatusInternalServerError, response.CodeInternalServer
	}
}

func getWorkspaceFromContext(c *gin.Context) (*app.Workspace, bool) {
	ws, ok := middleware.WorkspaceFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
	}
	return ws, ok
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
