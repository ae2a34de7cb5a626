package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	auditsvc "github.com/mrlokans/shelf/internal/audit"
	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/database/blog"
	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/database/library"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/http"
	"github.com/mrlokans/shelf/internal/mailer"
	"github.com/mrlokans/shelf/internal/scheduler"
	"github.com/mrlokans/shelf/internal/settingsstore"
	"github.com/mrlokans/shelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Catalog
var _ http.BookStore = (*catalog.Repository)(nil)
var _ http.AuthorStore = (*catalog.Repository)(nil)

// Relationships
var _ http.LibraryStore = (*library.Repository)(nil)
var _ http.LibrarianStore = (*library.Repository)(nil)

// Blog
var _ http.PostStore = (*blog.Repository)(nil)
var _ tasks.OrphanTagsCleaner = (*blog.Repository)(nil)

// Accounts
var _ auth.UserRepository = (*users.Repository)(nil)
var _ http.FollowStore = (*users.Repository)(nil)
var _ tasks.UserLookup = (*users.Repository)(nil)

// =============================================================================
// Auditing
// =============================================================================

var _ http.AuditLogger = (*auditsvc.Service)(nil)
var _ http.AuditReader = (*auditsvc.Service)(nil)
var _ tasks.AuditEventCleaner = (*auditsvc.Service)(nil)
var _ tasks.MaintenanceRecorder = (*auditsvc.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.Enqueuer = (*tasks.Client)(nil)
var _ http.TaskEnqueuer = (*tasks.Client)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)

var _ tasks.WelcomeSender = (*mailer.Mailer)(nil)

var _ http.MaintenanceRunner = (*scheduler.MaintenanceScheduler)(nil)
var _ scheduler.StatusStore = (*settingsstore.SettingsStore)(nil)
