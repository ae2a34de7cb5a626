package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/shelf/internal/settingsstore"
	"github.com/mrlokans/shelf/internal/tasks"
)

// StatusStore persists the outcome of each maintenance run.
type StatusStore interface {
	SetMaintenanceStatus(status, message string) error
	GetMaintenanceStatus() settingsstore.MaintenanceStatus
}

// MaintenanceScheduler periodically enqueues the cleanup tasks: old audit
// events and blog tags no post uses anymore.
type MaintenanceScheduler struct {
	enqueuer      tasks.Enqueuer
	status        StatusStore
	schedule      string
	retentionDays int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a new scheduler instance
func NewMaintenanceScheduler(enqueuer tasks.Enqueuer, status StatusStore, schedule string, retentionDays int) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		enqueuer:      enqueuer,
		status:        status,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler. An empty schedule disables it.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		log.Printf("Maintenance scheduler: disabled")
		return nil
	}

	if err := settingsstore.ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(s.schedule, time.Now())
	log.Printf("Maintenance scheduler: started with schedule '%s' (%s). Next run: %v",
		s.schedule,
		settingsstore.GetCronDescription(s.schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Maintenance scheduler: stopped")
}

// RunNow enqueues the maintenance tasks immediately.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	return s.run(ctx)
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Schedule returns the configured cron schedule.
func (s *MaintenanceScheduler) Schedule() string {
	return s.schedule
}

// LastStatus returns the outcome of the most recent run.
func (s *MaintenanceScheduler) LastStatus() settingsstore.MaintenanceStatus {
	return s.status.GetMaintenanceStatus()
}

// GetNextRunTime returns when the next maintenance run will occur
func (s *MaintenanceScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *MaintenanceScheduler) run(ctx context.Context) error {
	ids, err := s.enqueuer.Enqueue(ctx,
		tasks.CleanupAuditEventsTask{RetentionDays: s.retentionDays},
		tasks.CleanupOrphanTagsTask{},
	)
	if err != nil {
		log.Printf("Maintenance: failed to enqueue tasks: %v", err)
		s.recordStatus("failed", err.Error())
		return err
	}

	msg := fmt.Sprintf("Enqueued %d maintenance tasks", len(ids))
	log.Printf("Maintenance: %s", msg)
	s.recordStatus("success", msg)
	return nil
}

func (s *MaintenanceScheduler) recordStatus(status, message string) {
	if err := s.status.SetMaintenanceStatus(status, message); err != nil {
		log.Printf("Failed to record maintenance status: %v", err)
	}
}
