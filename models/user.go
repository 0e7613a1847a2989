package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRecord tracks per-user bot state: the issued access token and the
// timestamp of the last admitted download request. Records are created on
// first interaction and never deleted.
type UserRecord struct {
	UserID        int64      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Token         string     `gorm:"size:512" json:"token,omitempty"`
	TokenExpiry   *time.Time `json:"token_expiry,omitempty"`
	LastRequestAt *time.Time `json:"last_request_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasValidToken reports whether the stored token is present and unexpired
// at the given instant. An expired token is equivalent to no token.
func (u *UserRecord) HasValidToken(now time.Time) bool {
	return u.Token != "" && u.TokenExpiry != nil && now.Before(*u.TokenExpiry)
}

// BeforeCreate ensures timestamps are set even when not provided.
func (u *UserRecord) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes the UpdatedAt timestamp.
func (u *UserRecord) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
