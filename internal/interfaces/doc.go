// Package interfaces documents the core abstractions used throughout the application.
//
// It holds no runtime code. checks.go pins every concrete type to the
// interfaces it is wired through, so a missing method fails the build.
//
// # Interface Categories
//
// ## Data Access Interfaces (internal/http/stores.go)
//
//   - BookStore, AuthorStore: catalog CRUD with filtering (database/catalog)
//   - RelationshipStore: books by author, books in a library, librarian of a library
//   - LibraryStore, LibrarianStore: library and librarian maintenance (database/library)
//   - PostStore: posts, tags and search (database/blog)
//   - FollowStore: the follower graph (database/users)
//
// ## Authentication (internal/auth)
//
//   - UserRepository: users and their login state
//   - TokenRepository: one sealed API token per user
//
// ## Auditing (internal/http/stores.go)
//
//   - AuditLogger: records mutations, logins and account changes
//   - AuditReader: pages through recorded events
//
// ## Background Work (internal/tasks, internal/scheduler)
//
//   - Enqueuer, TaskEnqueuer, TaskStatusReader: the backlite queue client
//   - AuditEventCleaner, OrphanTagsCleaner, MaintenanceRecorder: cleanup task dependencies
//   - UserLookup, WelcomeSender: welcome email task dependencies
//   - StatusStore: where the scheduler records its last run
//   - MaintenanceRunner: what the HTTP layer needs from the scheduler
//
// # Adding a New Background Task
//
//  1. Define the task payload and its queue config in internal/tasks/
//
//     type ReindexTask struct{}
//
//     func (t ReindexTask) Config() backlite.QueueConfig
//
//  2. Write a processor depending on a small interface, not a repository:
//
//     type Reindexer interface { Reindex() (int64, error) }
//
//     func NewReindexQueue(r Reindexer) backlite.Queue
//
//  3. Register the queue in entrypoint.go and add a check here:
//
//     var _ tasks.Reindexer = (*catalog.Repository)(nil)
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/reviews/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Add its models to database.Models so they are migrated
//
//  4. Declare the store interface next to the controller using it and add a
//     compile-time check:
//
//     var _ http.ReviewStore = (*reviews.Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
