package settingsstore

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/shelf/internal/entities"
)

// MaintenanceStatus describes the last maintenance run.
type MaintenanceStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"` // "success", "failed", or empty if never run
	Message   string     `json:"message,omitempty"`
}

// GetMaintenanceStatus returns the last maintenance status
func (s *SettingsStore) GetMaintenanceStatus() MaintenanceStatus {
	status := MaintenanceStatus{}

	if value, err := s.repo.GetValue(entities.SettingKeyMaintenanceLastAt); err == nil && value != "" {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			status.LastRunAt = &ts
		}
	}
	if value, err := s.repo.GetValue(entities.SettingKeyMaintenanceLastStatus); err == nil {
		status.Status = value
	}
	if value, err := s.repo.GetValue(entities.SettingKeyMaintenanceLastMessage); err == nil {
		status.Message = value
	}

	return status
}

// SetMaintenanceStatus records the outcome of a maintenance run
func (s *SettingsStore) SetMaintenanceStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.repo.SetValue(entities.SettingKeyMaintenanceLastAt, now); err != nil {
		return err
	}
	if err := s.repo.SetValue(entities.SettingKeyMaintenanceLastStatus, status); err != nil {
		return err
	}
	return s.repo.SetValue(entities.SettingKeyMaintenanceLastMessage, message)
}

// ClearMaintenanceStatus forgets the last run.
func (s *SettingsStore) ClearMaintenanceStatus() error {
	keys := []string{
		entities.SettingKeyMaintenanceLastAt,
		entities.SettingKeyMaintenanceLastStatus,
		entities.SettingKeyMaintenanceLastMessage,
	}
	for _, key := range keys {
		if err := s.repo.DeleteValue(key); err != nil {
			return err
		}
	}
	return nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a five-field cron schedule string
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 3 * * *":
		return "Daily at 03:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when the schedule fires next after from.
func GetNextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}
