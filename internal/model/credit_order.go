package model

import "time"

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// CreditOrder tracks one credit pack purchase from checkout to the
// payment provider's notification.
type CreditOrder struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	UserID      string    `gorm:"size:64;not null;index" json:"user_id"`
	Tier        string    `gorm:"size:32;not null" json:"tier"`
	Credits     int       `gorm:"not null" json:"credits"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Status      string    `gorm:"size:16;not null;index" json:"status"`
	RedirectURL string    `gorm:"size:512" json:"redirect_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
