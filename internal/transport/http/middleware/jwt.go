package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/pkg/jwtutil"
	"chatmypdf/internal/transport/http/response"
)

const (
	ContextUserIDKey       = "user_id"
	ContextWorkspaceKeyKey = "workspace_key"
)

// AuthJWT accepts "Authorization: Bearer <token>" and exposes the user id
// and workspace key to later handlers.
func AuthJWT(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reason := bearerToken(c.GetHeader("Authorization"))
		if reason != "" {
			unauthorized(c, reason)
			return
		}

		claims, err := jwtutil.ParseToken(secret, issuer, token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextWorkspaceKeyKey, claims.WorkspaceKey)
		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization scheme"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func unauthorized(c *gin.Context, message string) {
	response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, message)
	c.Abort()
}
