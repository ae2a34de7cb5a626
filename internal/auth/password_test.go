package auth

import (
	"errors"
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid password", password: "password12345"},
		{name: "minimum length", password: "12345678"},
		{name: "too short", password: "short", wantErr: ErrPasswordTooShort},
		{name: "too long", password: string(make([]byte, 73)), wantErr: ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, 4)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && hash == tt.password {
				t.Error("Hash should not equal the password")
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse", 4)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := CheckPassword("correct-horse", hash); err != nil {
		t.Errorf("Expected password to match, got %v", err)
	}
	if err := CheckPassword("wrong-horse", hash); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Expected ErrInvalidPassword, got %v", err)
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if a != HashToken("token-a") {
		t.Error("HashToken should be deterministic")
	}
	if a == HashToken("token-b") {
		t.Error("Different tokens should hash differently")
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret failed: %v", err)
	}
	b, _ := GenerateSessionSecret()
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("Secrets should be unique")
	}
}
