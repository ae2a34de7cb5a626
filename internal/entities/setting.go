package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Generated on first start when not provided through the environment
	SettingKeyTokenEncryptionKey = "auth_token_encryption_key"
	SettingKeySessionSecret      = "auth_session_secret"

	// Maintenance run bookkeeping
	SettingKeyMaintenanceLastAt      = "maintenance_last_at"
	SettingKeyMaintenanceLastStatus  = "maintenance_last_status"
	SettingKeyMaintenanceLastMessage = "maintenance_last_message"
)
