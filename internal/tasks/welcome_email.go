package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelf/internal/entities"
)

// UserLookup loads the recipient of an account email.
type UserLookup interface {
	GetUserByID(id uint) (*entities.User, error)
}

// WelcomeSender delivers the welcome message.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, to, username string) error
}

// SendWelcomeEmailTask mails a greeting to a newly registered user.
type SendWelcomeEmailTask struct {
	UserID uint `json:"user_id"`
}

// Config returns the queue configuration for welcome emails.
func (t SendWelcomeEmailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_welcome_email",
		MaxAttempts: 5,
		Backoff:     2 * time.Minute,
		Timeout:     30 * time.Second,
		Retention:   dayRetention(),
	}
}

// SendWelcomeEmailProcessor creates a processor function for SendWelcomeEmailTask.
// Users without an email address are skipped.
func SendWelcomeEmailProcessor(users UserLookup, sender WelcomeSender) backlite.QueueProcessor[SendWelcomeEmailTask] {
	return func(ctx context.Context, task SendWelcomeEmailTask) error {
		if users == nil || sender == nil {
			return fmt.Errorf("welcome email not configured")
		}

		user, err := users.GetUserByID(task.UserID)
		if err != nil {
			return fmt.Errorf("load user %d: %w", task.UserID, err)
		}
		if user.Email == "" {
			log.Printf("[TASK] User %d has no email, skipping welcome message", user.ID)
			return nil
		}

		if err := sender.SendWelcome(ctx, user.Email, user.Username); err != nil {
			return fmt.Errorf("send welcome email to user %d: %w", user.ID, err)
		}

		log.Printf("[TASK] Sent welcome email to user %d", user.ID)
		return nil
	}
}

// NewSendWelcomeEmailQueue creates a backlite queue for welcome emails.
func NewSendWelcomeEmailQueue(users UserLookup, sender WelcomeSender) backlite.Queue {
	return backlite.NewQueue(SendWelcomeEmailProcessor(users, sender))
}
