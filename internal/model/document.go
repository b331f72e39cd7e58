package model

import "time"

const ContentTypePDF = "application/pdf"

type Document struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	UserID      string    `gorm:"size:64;not null;index" json:"user_id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Size        int64     `gorm:"not null" json:"size"`
	ContentType string    `gorm:"size:128;not null" json:"content_type"`
	ContentKey  string    `gorm:"size:256;not null" json:"-"`
	UploadedAt  time.Time `gorm:"not null;index" json:"uploaded_at"`
}
