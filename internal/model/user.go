package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Credits      int       `gorm:"not null;default:0" json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRecord is the flat current-user record kept between requests.
type UserRecord struct {
	ID      string `json:"id" redis:"id"`
	Email   string `json:"email" redis:"email"`
	Credits int    `json:"credits" redis:"credits"`
}

func (u *User) Record() UserRecord {
	return UserRecord{ID: u.ID, Email: u.Email, Credits: u.Credits}
}

func (r UserRecord) User() *User {
	return &User{ID: r.ID, Email: r.Email, Credits: r.Credits}
}
