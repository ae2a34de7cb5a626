package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mrlokans/shelf/internal/crypto"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/entities"
)

// tokenBytes yields 40 hex characters per key.
const tokenBytes = 20

// TokenRepository is the persistence needed by Tokens.
type TokenRepository interface {
	GetToken(userID uint) (*entities.AuthToken, error)
	CreateToken(token *entities.AuthToken) (bool, error)
	GetUserByTokenHash(hash string) (*entities.User, error)
	DeleteToken(userID uint) error
}

// Tokens issues and resolves API tokens, one per user.
type Tokens struct {
	repo   TokenRepository
	sealer *crypto.Sealer
}

func NewTokens(repo TokenRepository, sealer *crypto.Sealer) *Tokens {
	return &Tokens{repo: repo, sealer: sealer}
}

func sealContext(userID uint) []byte {
	return []byte("auth-token:" + strconv.FormatUint(uint64(userID), 10))
}

// GetOrCreate returns the user's token key, issuing one on first use.
func (t *Tokens) GetOrCreate(userID uint) (string, error) {
	existing, err := t.repo.GetToken(userID)
	if err == nil {
		return t.open(existing)
	}
	if !errors.Is(err, users.ErrTokenNotFound) {
		return "", fmt.Errorf("failed to load token: %w", err)
	}

	key, err := crypto.RandomHex(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	sealed, err := t.sealer.Seal(key, sealContext(userID))
	if err != nil {
		return "", fmt.Errorf("failed to seal token: %w", err)
	}

	token := &entities.AuthToken{UserID: userID, KeyHash: HashToken(key), KeyCiphertext: sealed}
	created, err := t.repo.CreateToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}
	if !created {
		// A concurrent request issued the token first.
		return t.open(token)
	}
	return key, nil
}

func (t *Tokens) open(token *entities.AuthToken) (string, error) {
	key, err := t.sealer.Open(token.KeyCiphertext, sealContext(token.UserID))
	if err != nil {
		return "", fmt.Errorf("failed to open token for user %d: %w", token.UserID, err)
	}
	return key, nil
}

// Resolve returns the owner of key.
func (t *Tokens) Resolve(key string) (*entities.User, error) {
	if key == "" {
		return nil, ErrInvalidToken
	}
	user, err := t.repo.GetUserByTokenHash(HashToken(key))
	if err != nil {
		if errors.Is(err, users.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// Revoke deletes the user's token. The next GetOrCreate issues a new key.
func (t *Tokens) Revoke(userID uint) error {
	return t.repo.DeleteToken(userID)
}
