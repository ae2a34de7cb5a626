// Package users provides database operations for accounts, follow relations
// and API tokens.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("jane")
//	followers, following, err := repo.FollowCounts(user.ID)
package users

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelf/internal/entities"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrTokenNotFound = errors.New("token not found")
	ErrSelfFollow    = errors.New("users cannot follow themselves")
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts user. Usernames are unique.
func (r *Repository) CreateUser(user *entities.User) error {
	var count int64
	if err := r.db.Model(&entities.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return ErrUserExists
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UsernameTaken reports whether another user already holds username.
func (r *Repository) UsernameTaken(username string, exceptID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("username = ? AND id <> ?", username, exceptID).Count(&count).Error
	return count > 0, err
}

// UpdateProfile saves the editable profile columns of user.
func (r *Repository) UpdateProfile(user *entities.User) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"username":        user.Username,
		"email":           user.Email,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"bio":             user.Bio,
		"profile_picture": user.ProfilePicture,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordLogin stores the login time and clears failed attempts.
func (r *Repository) RecordLogin(userID uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordFailedLogin increments the failed attempt counter and sets lockedUntil
// when it is non-nil.
func (r *Repository) RecordFailedLogin(user *entities.User, lockedUntil *time.Time) error {
	updates := map[string]any{
		"failed_login_count": gorm.Expr("failed_login_count + 1"),
	}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.Model(&entities.User{}).Where("id = ?", user.ID).Updates(updates).Error
}

// Follow makes followerID a follower of userID. Following twice is a no-op.
func (r *Repository) Follow(userID, followerID uint) error {
	if userID == followerID {
		return ErrSelfFollow
	}
	if _, err := r.GetUserByID(userID); err != nil {
		return err
	}
	follow := entities.Follow{UserID: userID, FollowerID: followerID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error
}

// Unfollow removes the relation. Unfollowing someone not followed is a no-op.
func (r *Repository) Unfollow(userID, followerID uint) error {
	if _, err := r.GetUserByID(userID); err != nil {
		return err
	}
	return r.db.Where("user_id = ? AND follower_id = ?", userID, followerID).Delete(&entities.Follow{}).Error
}

// IsFollowing reports whether followerID follows userID.
func (r *Repository) IsFollowing(userID, followerID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Follow{}).Where("user_id = ? AND follower_id = ?", userID, followerID).Count(&count).Error
	return count > 0, err
}

// FollowCounts returns how many users follow userID and how many it follows.
func (r *Repository) FollowCounts(userID uint) (followers, following int64, err error) {
	if err = r.db.Model(&entities.Follow{}).Where("user_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.Model(&entities.Follow{}).Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}

// Followers lists the users following userID, ordered by username.
func (r *Repository) Followers(userID uint) ([]entities.User, error) {
	var users []entities.User
	err := r.db.Select("users.*").Joins("JOIN user_follows ON user_follows.follower_id = users.id").
		Where("user_follows.user_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error
	return users, err
}

// Following lists the users followed by userID, ordered by username.
func (r *Repository) Following(userID uint) ([]entities.User, error) {
	var users []entities.User
	err := r.db.Select("users.*").Joins("JOIN user_follows ON user_follows.user_id = users.id").
		Where("user_follows.follower_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error
	return users, err
}

// GetToken returns the API token of a user.
func (r *Repository) GetToken(userID uint) (*entities.AuthToken, error) {
	var token entities.AuthToken
	err := r.db.Where("user_id = ?", userID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// CreateToken stores token unless the user already has one, in which case
// the existing token is loaded into token and created is false.
func (r *Repository) CreateToken(token *entities.AuthToken) (created bool, err error) {
	err = r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(token)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected == 1
		if created {
			return nil
		}
		userID := token.UserID
		*token = entities.AuthToken{}
		return tx.Where("user_id = ?", userID).First(token).Error
	})
	return created, err
}

// GetUserByTokenHash resolves the owner of a hashed API token.
func (r *Repository) GetUserByTokenHash(hash string) (*entities.User, error) {
	var user entities.User
	err := r.db.Select("users.*").Joins("JOIN auth_tokens ON auth_tokens.user_id = users.id").
		Where("auth_tokens.key_hash = ?", hash).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &user, nil
}

// DeleteToken removes the API token of a user.
func (r *Repository) DeleteToken(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&entities.AuthToken{}).Error
}
