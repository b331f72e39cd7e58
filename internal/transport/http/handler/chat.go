package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/app"
	"chatmypdf/internal/model"
	"chatmypdf/internal/transport/http/response"
)

type ChatHandler struct{}

type StartSessionRequest struct {
	DocumentID string `json:"document_id"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func NewChatHandler() *ChatHandler {
	return &ChatHandler{}
}

// StartSession starts the session for document_id, or for the selected
// document when the body names none.
func (h *ChatHandler) StartSession(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}

	var (
		session *model.ChatSession
		err     error
	)
	if docID := strings.TrimSpace(req.DocumentID); docID != "" {
		session, err = ws.Ledger.StartSession(c.Request.Context(), docID)
	} else {
		session, err = ws.Ledger.StartSelected(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	response.OK(c, ws.Ledger.Sessions())
}

func (h *ChatHandler) CurrentSession(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	session := ws.Ledger.Current()
	if session == nil {
		respondError(c, app.ErrNoActiveSession)
		return
	}
	response.OK(c, session)
}

// SendMessage answers as soon as the user message is stored; the reply
// shows up in the current session after the reply delay.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	pending, err := ws.Ledger.SendMessage(c.Request.Context(), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Accepted(c, gin.H{
		"message":       pending.UserMessage,
		"reply_pending": true,
	})
}

// StreamMessage sends the user message as a "message" event and holds the
// connection until a "reply" or "error" event.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	pending, err := ws.Ledger.SendMessage(c.Request.Context(), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeEvent := func(event string, data string) {
		if _, writeErr := c.Writer.Write([]byte("event: " + event + "\ndata: " + data + "\n\n")); writeErr == nil {
			flusher.Flush()
		}
	}

	userJSON, _ := json.Marshal(pending.UserMessage)
	writeEvent("message", string(userJSON))

	reply, err := pending.Wait(c.Request.Context())
	if err != nil {
		// A client that went away still gets its reply in the session.
		if c.Request.Context().Err() != nil {
			return
		}
		writeEvent("error", sanitizeSSE(app.Notice(err)))
		return
	}
	replyJSON, _ := json.Marshal(reply)
	writeEvent("reply", string(replyJSON))
}
