package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatmypdf/internal/blob"
	"chatmypdf/internal/model"
	"chatmypdf/internal/pkg/pdfextract"
)

const previewMaxRunes = 20000

type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type TextPreview struct {
	DocumentID string `json:"document_id"`
	Pages      int    `json:"pages"`
	Text       string `json:"text"`
}

// DocumentRegistry holds the uploaded documents of one workspace and which
// of them is selected.
type DocumentRegistry struct {
	mu       sync.RWMutex
	identity *IdentityStore
	store    DocumentStore
	blobs    blob.Store
	ids      IDGenerator
	clock    Clock
	logger   *zap.Logger
	docs     []model.Document
	selected string
}

func NewDocumentRegistry(
	identity *IdentityStore,
	store DocumentStore,
	blobs blob.Store,
	ids IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *DocumentRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentRegistry{
		identity: identity,
		store:    store,
		blobs:    blobs,
		ids:      ids,
		clock:    clock,
		logger:   logger,
	}
}

// Upload registers a PDF. Only the declared content type is checked; the
// bytes are stored as they are.
func (r *DocumentRegistry) Upload(ctx context.Context, file FileUpload) (*model.Document, error) {
	user := r.identity.Current()
	if user == nil {
		return nil, errUploadUnauthenticated
	}
	if !strings.EqualFold(strings.TrimSpace(file.ContentType), model.ContentTypePDF) {
		return nil, ErrUnsupportedType
	}
	if file.Content == nil || strings.TrimSpace(file.Name) == "" {
		return nil, ErrInvalidInput
	}

	id := r.ids.New()
	doc := model.Document{
		ID:          id,
		UserID:      user.ID,
		Name:        strings.TrimSpace(file.Name),
		Size:        file.Size,
		ContentType: model.ContentTypePDF,
		ContentKey:  user.ID + "/" + id,
		UploadedAt:  r.clock.Now(),
	}

	if r.blobs != nil {
		if err := r.blobs.Put(ctx, doc.ContentKey, file.Content, file.Size); err != nil {
			return nil, fmt.Errorf("%w: store document content: %v", ErrBackendFailure, err)
		}
	}
	if r.store != nil {
		if err := r.store.Create(ctx, &doc); err != nil {
			r.discardBlob(ctx, doc.ContentKey)
			return nil, fmt.Errorf("%w: save document: %v", ErrBackendFailure, err)
		}
	}

	r.mu.Lock()
	r.docs = append(r.docs, doc)
	r.mu.Unlock()

	r.logger.Info("document uploaded",
		zap.String("user_id", user.ID),
		zap.String("document_id", doc.ID),
		zap.Int64("size", doc.Size),
	)
	return &doc, nil
}

// Delete removes the document and its content. An unknown id is a no-op.
// When the backend refuses, the entry is kept.
func (r *DocumentRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return nil
	}
	doc := r.docs[idx]

	if r.store != nil {
		if err := r.store.DeleteByIDAndUserID(ctx, doc.ID, doc.UserID); err != nil {
			return fmt.Errorf("%w: delete document: %v", ErrBackendFailure, err)
		}
	}
	r.discardBlob(ctx, doc.ContentKey)

	r.docs = append(r.docs[:idx], r.docs[idx+1:]...)
	if r.selected == id {
		r.selected = ""
	}
	return nil
}

// Select marks id as the active document. The empty string clears the
// selection. The id is not validated.
func (r *DocumentRegistry) Select(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = id
}

func (r *DocumentRegistry) Selected() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// List returns the documents in upload order.
func (r *DocumentRegistry) List() []model.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

func (r *DocumentRegistry) Get(id string) (*model.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	doc := r.docs[idx]
	return &doc, true
}

// OpenContent streams the stored bytes of a document to w.
func (r *DocumentRegistry) OpenContent(ctx context.Context, id string, w io.Writer) (*model.Document, error) {
	doc, ok := r.Get(id)
	if !ok {
		return nil, ErrDocumentNotFound
	}
	if r.blobs == nil {
		return nil, fmt.Errorf("%w: no content store configured", ErrBackendFailure)
	}
	if err := r.blobs.Get(ctx, doc.ContentKey, w); err != nil {
		return nil, fmt.Errorf("%w: read document content: %v", ErrBackendFailure, err)
	}
	return doc, nil
}

// ExtractText returns a plain text preview of a document. Chat replies never
// use it.
func (r *DocumentRegistry) ExtractText(ctx context.Context, id string) (*TextPreview, error) {
	var buf bytes.Buffer
	doc, err := r.OpenContent(ctx, id, &buf)
	if err != nil {
		return nil, err
	}

	pages, err := pdfextract.PageCount(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	text, err := pdfextract.ExtractText(buf.Bytes(), previewMaxRunes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	return &TextPreview{DocumentID: doc.ID, Pages: pages, Text: text}, nil
}

// Restore loads the current user's documents when the registry is empty.
func (r *DocumentRegistry) Restore(ctx context.Context) error {
	user := r.identity.Current()
	if user == nil || r.store == nil {
		return nil
	}
	docs, err := r.store.ListByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%w: list documents: %v", ErrBackendFailure, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.docs) == 0 {
		r.docs = docs
	}
	return nil
}

func (r *DocumentRegistry) indexLocked(id string) int {
	for i := range r.docs {
		if r.docs[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *DocumentRegistry) discardBlob(ctx context.Context, key string) {
	if r.blobs == nil {
		return
	}
	if err := r.blobs.Delete(ctx, key); err != nil {
		r.logger.Warn("delete document content failed", zap.String("key", key), zap.Error(err))
	}
}
