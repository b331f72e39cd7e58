package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/app"
	"chatmypdf/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

// Empty fields are rejected by the identity store, not by binding, so the
// caller sees the invalid credentials notice.
type RegisterRequest struct {
	Email    string `json:"email" binding:"max=128"`
	Password string `json:"password" binding:"max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"max=128"`
	Password string `json:"password" binding:"max=128"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	h.authService.Logout(c.Request.Context(), ws)
	response.OK(c, gin.H{"logged_out": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	user := ws.Identity.Current()
	if user == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}
	response.OK(c, user)
}
