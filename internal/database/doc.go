// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, reset
//	├── catalog/         # Authors and books: filtering, search, ordering
//	├── library/         # Libraries, librarians and relationship queries
//	├── blog/            # Posts, tags and search
//	├── users/           # Accounts, follow relations, API tokens
//	├── audit/           # Audit trail
//	└── settings/        # Persisted application settings
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./shelf.db")
//
//	// Create domain-specific repositories
//	catalogRepo := catalog.NewRepository(db.DB)
//	libraryRepo := library.NewRepository(db.DB)
//
//	// Use repositories
//	books, err := catalogRepo.ListBooks(catalog.BookFilter{Search: "king"})
//	librarian, found, err := libraryRepo.LibrarianForLibrary(libraryID)
//
// # Interface Implementations
//
// Repositories satisfy the store interfaces declared by their consumers:
//
//   - catalog.Repository: implements http.BookStore and http.AuthorStore
//   - library.Repository: implements http.LibraryStore
//   - blog.Repository: implements http.PostStore and tasks.TagCleaner
//   - users.Repository: implements auth.UserStore and http.FollowStore
//   - audit.Repository: implements audit.Store and tasks.AuditCleaner
//
// See internal/interfaces for the compile-time checks.
//
// # Cascades
//
// SQLite foreign keys are not enforced on the connection, so repositories
// delete dependent rows explicitly inside a transaction: removing an author
// removes its books and their library memberships, removing a library removes
// its librarian but keeps its books.
package database
