// Package settings provides database operations for application settings.
//
// Settings hold values the service generates once and must keep across
// restarts, such as the key that seals stored API tokens.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	key, err := repo.GetOrInit(entities.SettingKeyTokenEncryptionKey, crypto.GenerateKey)
package settings

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelf/internal/entities"
)

var ErrSettingNotFound = errors.New("setting not found")

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetValue retrieves the value stored under key.
func (r *Repository) GetValue(key string) (string, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// SetValue creates or updates a setting.
func (r *Repository) SetValue(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// GetOrInit returns the value under key, storing the result of init first
// when the key is absent. Concurrent callers all observe the first stored value.
func (r *Repository) GetOrInit(key string, init func() (string, error)) (string, error) {
	value, err := r.GetValue(key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return "", err
	}

	generated, err := init()
	if err != nil {
		return "", err
	}
	setting := entities.Setting{Key: key, Value: generated}
	err = r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&setting).Error
	if err != nil {
		return "", err
	}
	return r.GetValue(key)
}

// DeleteValue removes a setting by key.
func (r *Repository) DeleteValue(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
