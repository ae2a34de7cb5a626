package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelf/internal/settingsstore"
)

// MaintenanceRunner is the scheduler driving periodic cleanup.
type MaintenanceRunner interface {
	RunNow(ctx context.Context) error
	IsRunning() bool
	Schedule() string
	LastStatus() settingsstore.MaintenanceStatus
	GetNextRunTime() *time.Time
}

// MaintenanceStatusResponse describes the cleanup schedule and its last run.
type MaintenanceStatusResponse struct {
	Running     bool       `json:"running"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastStatus  string     `json:"last_status,omitempty"`
	LastMessage string     `json:"last_message,omitempty"`
}

// MaintenanceController exposes the cleanup scheduler and task queue state.
type MaintenanceController struct {
	runner MaintenanceRunner
	tasks  TaskStatusReader
}

func NewMaintenanceController(runner MaintenanceRunner, tasks TaskStatusReader) *MaintenanceController {
	return &MaintenanceController{runner: runner, tasks: tasks}
}

// Status reports the schedule and outcome of the last run.
// GET /api/maintenance/
func (mc *MaintenanceController) Status(c *gin.Context) {
	last := mc.runner.LastStatus()
	resp := MaintenanceStatusResponse{
		Running:     mc.runner.IsRunning(),
		Schedule:    mc.runner.Schedule(),
		Description: settingsstore.GetCronDescription(mc.runner.Schedule()),
		NextRunAt:   mc.runner.GetNextRunTime(),
		LastRunAt:   last.LastRunAt,
		LastStatus:  last.Status,
		LastMessage: last.Message,
	}
	c.JSON(http.StatusOK, resp)
}

// Run enqueues the cleanup tasks immediately.
// POST /api/maintenance/run/
func (mc *MaintenanceController) Run(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := mc.runner.RunNow(ctx); err != nil {
		respondInternalError(c, err, "run maintenance")
		return
	}
	respondAccepted(c, "maintenance tasks enqueued", nil)
}

// TaskStatus reports the state of an enqueued background task.
// GET /api/tasks/:id/
func (mc *MaintenanceController) TaskStatus(c *gin.Context) {
	if mc.tasks == nil {
		respondNotFound(c, "task queue")
		return
	}

	taskID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := mc.tasks.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
