package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	DisplayName    string    `gorm:"not null"`
	AvatarURL      *string
	IsActive       bool `gorm:"not null;default:true"`
	IsVerified     bool `gorm:"not null;default:false"`

	LastLoginAt         *time.Time
	FailedLoginAttempts int `gorm:"not null;default:0"`
	LockedUntil         *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// IsLocked reports whether the account is currently locked out after
// repeated failed logins.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
