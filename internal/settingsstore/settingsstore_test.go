package settingsstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelf/internal/crypto"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/settings"
)

func setupStore(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "settings.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(settings.NewRepository(db.DB))
}

func TestTokenEncryptionKey(t *testing.T) {
	t.Run("environment wins", func(t *testing.T) {
		store := setupStore(t)

		info, err := store.TokenEncryptionKey("from-env")
		require.NoError(t, err)
		assert.Equal(t, "from-env", info.Value)
		assert.Equal(t, "environment", info.Source)
	})

	t.Run("generated once then persisted", func(t *testing.T) {
		store := setupStore(t)

		first, err := store.TokenEncryptionKey("")
		require.NoError(t, err)
		assert.Equal(t, "generated", first.Source)

		_, err = crypto.NewSealerFromBase64(first.Value)
		assert.NoError(t, err, "generated key must be a valid AES-256 key")

		second, err := store.TokenEncryptionKey("")
		require.NoError(t, err)
		assert.Equal(t, "database", second.Source)
		assert.Equal(t, first.Value, second.Value)
	})
}

func TestSessionSecret(t *testing.T) {
	store := setupStore(t)

	first, err := store.SessionSecret("")
	require.NoError(t, err)
	assert.Len(t, first.Value, 64)

	second, err := store.SessionSecret("")
	require.NoError(t, err)
	assert.Equal(t, first.Value, second.Value)
}

func TestMaintenanceStatus(t *testing.T) {
	store := setupStore(t)

	assert.Equal(t, MaintenanceStatus{}, store.GetMaintenanceStatus())

	require.NoError(t, store.SetMaintenanceStatus("success", "Enqueued 2 tasks"))
	status := store.GetMaintenanceStatus()
	require.NotNil(t, status.LastRunAt)
	assert.WithinDuration(t, time.Now(), *status.LastRunAt, time.Minute)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, "Enqueued 2 tasks", status.Message)

	require.NoError(t, store.ClearMaintenanceStatus())
	assert.Equal(t, MaintenanceStatus{}, store.GetMaintenanceStatus())
}

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{"0 3 * * *", "*/15 * * * *", "0 0 * * 0"}
	for _, schedule := range valid {
		assert.NoError(t, ValidateCronSchedule(schedule), schedule)
	}

	invalid := []string{"", "not a schedule", "0 3 * *", "61 * * * *"}
	for _, schedule := range invalid {
		assert.Error(t, ValidateCronSchedule(schedule), schedule)
	}
}

func TestGetCronDescription(t *testing.T) {
	assert.Equal(t, "Daily at 03:00", GetCronDescription("0 3 * * *"))
	assert.Equal(t, "Custom schedule: 5 4 * * *", GetCronDescription("5 4 * * *"))
}

func TestGetNextRunTime(t *testing.T) {
	from := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

	next, err := GetNextRunTime("0 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.Local), *next)

	_, err = GetNextRunTime("bogus", from)
	assert.Error(t, err)
}
