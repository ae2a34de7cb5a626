package http

import (
	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/tasks"
	"github.com/mrlokans/shelf/internal/uploads"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	// Catalog and library
	BookStore      BookStore
	AuthorStore    AuthorStore
	LibraryStore   LibraryStore
	LibrarianStore LibrarianStore

	// Blog
	PostStore PostStore

	// Accounts and authentication
	AuthService    *auth.Service
	FollowStore    FollowStore
	SessionManager *auth.SessionManager // optional, enables cookie login
	CSRFSecret     []byte               // optional, enables CSRF checks for sessions
	SecureCookies  bool
	LoginLimiter   *auth.LoginLimiter // optional
	RateLimiter    *RateLimiter       // optional, applies to /api

	// Auditing
	Audit       AuditLogger
	AuditEvents AuditReader

	// Profile picture storage (optional)
	Uploads *uploads.Store

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Maintenance scheduler (optional)
	Maintenance MaintenanceRunner

	// Application info
	Version string
}
