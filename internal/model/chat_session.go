package model

import "time"

// ChatSession is the conversation tied to one uploaded document.
type ChatSession struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_chat_sessions_user_document" json:"user_id"`
	DocumentID string    `gorm:"size:64;not null;uniqueIndex:idx_chat_sessions_user_document" json:"document_id"`
	Messages   []Message `gorm:"-" json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
}
