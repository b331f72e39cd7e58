package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatmypdf/internal/app"
	"chatmypdf/internal/transport/http/response"
)

const ContextWorkspaceKey = "workspace"

// Workspace loads the caller's workspace named by the token. It must run
// after AuthJWT.
func Workspace(workspaces *app.WorkspaceManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ContextWorkspaceKeyKey)
		userID := c.GetString(ContextUserIDKey)
		if key == "" || userID == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
			c.Abort()
			return
		}

		ws, err := workspaces.Get(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, app.ErrWorkspaceNotFound) {
				response.Error(c, http.StatusUnauthorized, response.CodeSessionExpired, "session expired, please log in again")
			} else {
				logger.Error("load workspace failed", zap.String("workspace", key), zap.Error(err))
				response.Error(c, http.StatusServiceUnavailable, response.CodeBackendFailure, app.Notice(err))
			}
			c.Abort()
			return
		}
		if user := ws.Identity.Current(); user == nil || user.ID != userID {
			response.Error(c, http.StatusUnauthorized, response.CodeSessionExpired, "session expired, please log in again")
			c.Abort()
			return
		}

		c.Set(ContextWorkspaceKey, ws)
		c.Next()
	}
}

func WorkspaceFrom(c *gin.Context) (*app.Workspace, bool) {
	v, exists := c.Get(ContextWorkspaceKey)
	if !exists {
		return nil, false
	}
	ws, ok := v.(*app.Workspace)
	return ws, ok
}
