package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/validation"
)

const msgUsernameTaken = "A user with that username already exists."

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidToken  = errors.New("invalid token")
	ErrAuthRequired  = errors.New("authentication required")
	ErrAccountLocked = errors.New("account is locked due to too many failed login attempts")
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	TokenRepository
	CreateUser(user *entities.User) error
	GetUserByID(id uint) (*entities.User, error)
	GetUserByUsername(username string) (*entities.User, error)
	UsernameTaken(username string, exceptID uint) (bool, error)
	UpdateProfile(user *entities.User) error
	RecordLogin(userID uint, at time.Time) error
	RecordFailedLogin(user *entities.User, lockedUntil *time.Time) error
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Username  string `json:"username" form:"username" validate:"required,notblank,max=150,username"`
	Email     string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Password  string `json:"password" form:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=150"`
	Bio       string `json:"bio" form:"bio" validate:"max=2000"`
}

// LoginInput is the payload accepted by Login.
type LoginInput struct {
	Username string `json:"username" form:"username" validate:"required,notblank"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ProfileInput carries profile changes. Nil fields are left as they are.
type ProfileInput struct {
	Username       *string `json:"username" form:"username"`
	Email          *string `json:"email" form:"email"`
	FirstName      *string `json:"first_name" form:"first_name"`
	LastName       *string `json:"last_name" form:"last_name"`
	Bio            *string `json:"bio" form:"bio"`
	ProfilePicture *string `json:"-" form:"-"`
}

// profileFields is the complete profile after merging, validated as a whole.
type profileFields struct {
	Username  string `json:"username" validate:"required,notblank,max=150,username"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Bio       string `json:"bio" validate:"max=2000"`
}

// Service handles registration, credential checks and profile updates.
type Service struct {
	users     UserRepository
	tokens    *Tokens
	config    config.Auth
	dummyHash []byte
}

// NewService creates a new authentication service.
func NewService(repo UserRepository, tokens *Tokens, cfg config.Auth) *Service {
	return &Service{
		users:     repo,
		tokens:    tokens,
		config:    cfg,
		dummyHash: newDummyHash(cfg.BcryptCost),
	}
}

// Register creates a user and issues their token. Invalid input is reported
// as validation.Errors.
func (s *Service) Register(in RegisterInput) (*entities.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	errs := validation.Struct(in)
	if _, ok := errs["username"]; !ok && in.Username != "" {
		taken, err := s.users.UsernameTaken(in.Username, 0)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check existing user: %w", err)
		}
		errs.Check(!taken, "username", msgUsernameTaken)
	}
	if !errs.Valid() {
		return nil, "", errs
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bio:          in.Bio,
	}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			return nil, "", validation.Errors{"username": {msgUsernameTaken}}
		}
		return nil, "", err
	}

	token, err := s.tokens.GetOrCreate(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and returns the user's token.
func (s *Service) Login(in LoginInput) (*entities.User, string, error) {
	user, err := s.CheckCredentials(in)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GetOrCreate(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// CheckCredentials validates in and authenticates the user without issuing a
// token. Any credential failure is reported as the same non-field error.
func (s *Service) CheckCredentials(in LoginInput) (*entities.User, error) {
	if errs := validation.Struct(in); !errs.Valid() {
		return nil, errs
	}

	user, err := s.Authenticate(strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidPassword) || errors.Is(err, ErrAccountLocked) {
			return nil, validation.Errors{validation.NonFieldErrors: {validation.MsgInvalidCreds}}
		}
		return nil, err
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user)
		return nil, err
	}

	if err := s.users.RecordLogin(user.ID, time.Now()); err != nil {
		log.Printf("Failed to record login for user %d: %v", user.ID, err)
	}
	return user, nil
}

// recordFailedLogin bumps the failure counter and locks the account once the
// configured threshold is reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	var lockedUntil *time.Time
	if user.FailedLoginCount+1 >= maxAttempts {
		lockout := s.config.LockoutDuration
		if lockout <= 0 {
			lockout = 30 * time.Minute
		}
		until := time.Now().Add(lockout)
		lockedUntil = &until
	}

	if err := s.users.RecordFailedLogin(user, lockedUntil); err != nil {
		log.Printf("Failed to record failed login for user %d: %v", user.ID, err)
	}
}

// Logout revokes the user's API token.
func (s *Service) Logout(userID uint) error {
	return s.tokens.Revoke(userID)
}

// ValidateToken returns the user owning token.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	return s.tokens.Resolve(token)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies in to the user's profile. A full update (partial ==
// false) requires username; a partial one merges whatever is given. Either
// way the resulting profile is validated as a whole before saving.
func (s *Service) UpdateProfile(userID uint, in ProfileInput, partial bool) (*entities.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	errs := validation.New()
	if !partial && in.Username == nil {
		errs.Add("username", validation.MsgRequired)
	}

	merged := profileFields{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio,
	}
	assign(&merged.Username, in.Username)
	assign(&merged.Email, in.Email)
	assign(&merged.FirstName, in.FirstName)
	assign(&merged.LastName, in.LastName)
	assign(&merged.Bio, in.Bio)
	merged.Username = strings.TrimSpace(merged.Username)
	merged.Email = strings.TrimSpace(merged.Email)

	fieldErrs := validation.Struct(merged)
	if _, missing := errs["username"]; missing {
		delete(fieldErrs, "username")
	}
	errs.Merge(fieldErrs)
	if _, bad := errs["username"]; !bad && merged.Username != user.Username {
		taken, err := s.users.UsernameTaken(merged.Username, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		errs.Check(!taken, "username", msgUsernameTaken)
	}
	if !errs.Valid() {
		return nil, errs
	}

	user.Username = merged.Username
	user.Email = merged.Email
	user.FirstName = merged.FirstName
	user.LastName = merged.LastName
	user.Bio = merged.Bio
	assign(&user.ProfilePicture, in.ProfilePicture)

	if err := s.users.UpdateProfile(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
