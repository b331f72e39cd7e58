package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatmypdf/internal/app"
	"chatmypdf/internal/transport/http/response"
)

const maxPDFSize = 10 << 20

type DocumentHandler struct {
	maxSize int64
}

type SelectDocumentRequest struct {
	DocumentID string `json:"document_id"`
}

func NewDocumentHandler() *DocumentHandler {
	return &DocumentHandler{maxSize: maxPDFSize}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file too large (max 10MB)")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxSize {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file too large (max 10MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	doc, err := ws.Documents.Upload(c.Request.Context(), app.FileUpload{
		Name:        file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Content:     f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{
		"documents": ws.Documents.List(),
		"selected":  ws.Documents.Selected(),
	})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if err := ws.Documents.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, gin.H{
		"deleted_document_id": id,
		"selected":            ws.Documents.Selected(),
	})
}

func (h *DocumentHandler) Content(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	doc, err := ws.Documents.OpenContent(c.Request.Context(), c.Param("id"), &buf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Name))
	c.Data(http.StatusOK, doc.ContentType, buf.Bytes())
}

func (h *DocumentHandler) Text(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	preview, err := ws.Documents.ExtractText(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, preview)
}

func (h *DocumentHandler) Select(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	var req SelectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	ws.Documents.Select(strings.TrimSpace(req.DocumentID))
	response.OK(c, gin.H{"selected": ws.Documents.Selected()})
}

func (h *DocumentHandler) ClearSelection(c *gin.Context) {
	ws, ok := getWorkspaceFromContext(c)
	if !ok {
		return
	}
	ws.Documents.Select("")
	response.OK(c, gin.H{"selected": ""})
}
