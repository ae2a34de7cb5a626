package settingsstore

import (
	"fmt"

	"github.com/mrlokans/shelf/internal/crypto"
	"github.com/mrlokans/shelf/internal/database/settings"
	"github.com/mrlokans/shelf/internal/entities"
)

// Priority: environment > database > generated
type SettingsStore struct {
	repo *settings.Repository
}

func New(repo *settings.Repository) *SettingsStore {
	return &SettingsStore{repo: repo}
}

// SecretInfo is a resolved secret and where it came from.
type SecretInfo struct {
	Value  string
	Source string // "environment", "database", or "generated"
}

// TokenEncryptionKey returns the base64 AES key sealing stored API tokens.
// A key generated on first start is persisted so tokens survive restarts.
func (s *SettingsStore) TokenEncryptionKey(fromEnv string) (SecretInfo, error) {
	return s.resolveSecret(entities.SettingKeyTokenEncryptionKey, fromEnv, crypto.GenerateKey)
}

// SessionSecret returns the secret signing session and CSRF cookies.
func (s *SettingsStore) SessionSecret(fromEnv string) (SecretInfo, error) {
	return s.resolveSecret(entities.SettingKeySessionSecret, fromEnv, func() (string, error) {
		return crypto.RandomHex(32)
	})
}

func (s *SettingsStore) resolveSecret(key, fromEnv string, generate func() (string, error)) (SecretInfo, error) {
	if fromEnv != "" {
		return SecretInfo{Value: fromEnv, Source: "environment"}, nil
	}

	generated := false
	value, err := s.repo.GetOrInit(key, func() (string, error) {
		generated = true
		return generate()
	})
	if err != nil {
		return SecretInfo{}, fmt.Errorf("failed to resolve %s: %w", key, err)
	}

	if generated {
		return SecretInfo{Value: value, Source: "generated"}, nil
	}
	return SecretInfo{Value: value, Source: "database"}, nil
}
