package entities

import "time"

type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Username       string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email          string `gorm:"index;size:254" json:"email"`
	PasswordHash   string `gorm:"size:255" json:"-"` // bcrypt hash, never serialized
	FirstName      string `gorm:"size:150" json:"first_name"`
	LastName       string `gorm:"size:150" json:"last_name"`
	Bio            string `gorm:"type:text" json:"bio"`
	ProfilePicture string `gorm:"size:255" json:"profile_picture"` // path relative to the uploads dir

	// Login tracking
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`

	CreatedAt time.Time `json:"date_joined"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Follow records that FollowerID follows UserID. The relation is not symmetrical.
type Follow struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false"`
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time
}

func (Follow) TableName() string {
	return "user_follows"
}

// AuthToken is the single API token a user holds. Only the SHA-256 hash is
// used for lookup; the sealed copy lets login hand the same key back.
type AuthToken struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"uniqueIndex;not null"`
	KeyHash       string    `gorm:"uniqueIndex;size:64;not null"`
	KeyCiphertext string    `gorm:"type:text;not null"`
	CreatedAt     time.Time
}

func (AuthToken) TableName() string {
	return "auth_tokens"
}
