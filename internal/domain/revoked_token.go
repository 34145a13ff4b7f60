package domain

import "time"

// RevokedToken marks a signed-out access token by its jti.
// Rows past ExpiresAt are dead weight: the token would fail validation anyway.
type RevokedToken struct {
	JTI       string    `json:"jti" gorm:"primaryKey;size:64"`
	UserID    int64     `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *RevokedToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
