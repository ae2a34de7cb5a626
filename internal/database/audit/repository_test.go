package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "audit.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB)
}

func uintPtr(v uint) *uint { return &v }

func TestRepository_LogEvent(t *testing.T) {
	repo := setupTestDB(t)

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventCatalog,
		Action:      "book_create",
		Description: "Created book \"Carrie\"",
		EntityType:  "book",
		EntityID:    uintPtr(3),
		Status:      entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.LogEvent(event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	got, err := repo.GetEventByID(event.ID)
	require.NoError(t, err)
	assert.Equal(t, "book_create", got.Action)

	_, err = repo.GetEventByID(999)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepository_ListEvents(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 15; i++ {
		eventType := entities.AuditEventCatalog
		if i%3 == 0 {
			eventType = entities.AuditEventAuth
		}
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			UserID:     uint(1 + i%2),
			EventType:  eventType,
			Action:     "test",
			EntityType: "book",
			EntityID:   uintPtr(uint(i % 5)),
			Status:     entities.AuditStatusSuccess,
			CreatedAt:  time.Now().Add(time.Duration(-i) * time.Hour),
		}))
	}

	t.Run("paginates most recent first", func(t *testing.T) {
		events, total, err := repo.ListEvents(EventFilter{}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		require.Len(t, events, 10)
		assert.True(t, events[0].CreatedAt.After(events[9].CreatedAt))

		events, _, err = repo.ListEvents(EventFilter{}, 10, 10)
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("filters combine", func(t *testing.T) {
		_, total, err := repo.ListEvents(EventFilter{EventType: entities.AuditEventAuth}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		_, total, err = repo.ListEvents(EventFilter{UserID: 1, EventType: entities.AuditEventAuth}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total) // i = 0, 6, 12

		_, total, err = repo.ListEvents(EventFilter{EntityType: "book", EntityID: 2}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total) // i = 2, 7, 12
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{Action: "old", CreatedAt: time.Now().AddDate(0, 0, -40)}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{Action: "recent", CreatedAt: time.Now().AddDate(0, 0, -1)}))

	deleted, err := repo.DeleteOldEvents(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.ListEvents(EventFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "recent", events[0].Action)
}
