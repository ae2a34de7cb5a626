package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelf/internal/database/audit"
	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/entities"
)

// This file consolidates the store interfaces used by HTTP controllers.
// Each controller depends only on the operations it calls.

// BookStore is the catalog's book storage.
type BookStore interface {
	ListBooks(filter catalog.BookFilter) ([]entities.Book, error)
	GetBook(id uint) (*entities.Book, error)
	CreateBook(book *entities.Book) error
	UpdateBook(book *entities.Book) error
	DeleteBook(id uint) error
}

// AuthorStore is the catalog's author storage.
type AuthorStore interface {
	ListAuthors() ([]entities.Author, error)
	GetAuthor(id uint) (*entities.Author, error)
	CreateAuthor(author *entities.Author) error
	UpdateAuthor(author *entities.Author) error
	DeleteAuthor(id uint) (int64, error)
}

// RelationshipStore answers the book/library/librarian relationship queries.
type RelationshipStore interface {
	BooksInLibrary(libraryID uint) ([]entities.Book, error)
	BooksByAuthor(authorID uint) ([]entities.Book, error)
	BooksByAuthorName(name string) ([]entities.Book, error)
	LibrarianForLibrary(libraryID uint) (*entities.Librarian, bool, error)
}

// LibraryStore manages libraries and their book collections.
type LibraryStore interface {
	RelationshipStore
	ListLibraries() ([]entities.Library, error)
	GetLibrary(id uint) (*entities.Library, error)
	CreateLibrary(lib *entities.Library) error
	RenameLibrary(id uint, name string) error
	DeleteLibrary(id uint) error
	AddBooks(libraryID uint, bookIDs ...uint) error
	RemoveBook(libraryID, bookID uint) error
}

// LibrarianStore manages librarians.
type LibrarianStore interface {
	ListLibrarians() ([]entities.Librarian, error)
	GetLibrarian(id uint) (*entities.Librarian, error)
	AssignLibrarian(librarian *entities.Librarian) error
	UpdateLibrarian(librarian *entities.Librarian) error
	DeleteLibrarian(id uint) error
}

// PostStore is the blog storage.
type PostStore interface {
	ListPosts() ([]entities.Post, error)
	GetPost(id uint) (*entities.Post, error)
	CreatePost(post *entities.Post, tagNames []string) error
	UpdatePost(post *entities.Post, tagNames []string) error
	DeletePost(id uint) error
	Search(q string) ([]entities.Post, error)
	ListTags() ([]entities.Tag, error)
	PostsByTag(tagSlug string) (*entities.Tag, []entities.Post, error)
}

// FollowStore manages the follower graph.
type FollowStore interface {
	GetUserByID(id uint) (*entities.User, error)
	Follow(userID, followerID uint) error
	Unfollow(userID, followerID uint) error
	IsFollowing(userID, followerID uint) (bool, error)
	FollowCounts(userID uint) (followers, following int64, err error)
	Followers(userID uint) ([]entities.User, error)
	Following(userID uint) ([]entities.User, error)
}

// AuditLogger records who changed what. Controllers accept a nil logger.
type AuditLogger interface {
	LogMutation(userID uint, eventType entities.AuditEventType, entityType, action string, entityID uint, description string)
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
	LogAccount(userID uint, action, description string)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	ListEvents(filter audit.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// TaskEnqueuer schedules background tasks.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// TaskStatusReader reports the state of an enqueued task.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// discardAudit is used when no audit logger is configured.
type discardAudit struct{}

func (discardAudit) LogMutation(uint, entities.AuditEventType, string, string, uint, string) {}
func (discardAudit) LogAuth(uint, string, string, string, bool)                            {}
func (discardAudit) LogAccount(uint, string, string)                                       {}

func auditOrDiscard(a AuditLogger) AuditLogger {
	if a == nil {
		return discardAudit{}
	}
	return a
}
