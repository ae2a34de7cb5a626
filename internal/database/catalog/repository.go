// Package catalog provides database operations for authors and books.
//
// This package implements the BookStore and AuthorStore interfaces defined in
// internal/http.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	books, err := repo.ListBooks(catalog.BookFilter{Search: "king", Ordering: []string{"-publication_year"}})
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entities"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrAuthorNotFound = errors.New("author not found")
)

// orderableFields maps an ordering parameter to its column.
var orderableFields = map[string]string{
	"title":            "books.title",
	"publication_year": "books.publication_year",
}

const defaultBookOrder = "books.title ASC, books.id ASC"

// BookFilter narrows a book listing. Zero values mean "no filter".
type BookFilter struct {
	Title           string
	AuthorName      string
	PublicationYear *int
	Search          string   // case-insensitive substring of title or author name
	Ordering        []string // "title", "-publication_year", ...
}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ParseOrdering splits a comma separated ordering parameter and drops unknown fields.
func ParseOrdering(raw string) []string {
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if _, ok := orderableFields[strings.TrimPrefix(part, "-")]; ok {
			fields = append(fields, part)
		}
	}
	return fields
}

func orderClause(ordering []string) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, field := range ordering {
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		column, ok := orderableFields[field]
		if !ok {
			continue
		}
		clauses = append(clauses, column+" "+dir)
	}
	if len(clauses) == 0 {
		return defaultBookOrder
	}
	return strings.Join(append(clauses, "books.id ASC"), ", ")
}

// ListBooks returns books matching filter.
func (r *Repository) ListBooks(filter BookFilter) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{}).
		Select("books.*").
		Joins("JOIN authors ON authors.id = books.author_id")

	if filter.Title != "" {
		query = query.Where("books.title = ?", filter.Title)
	}
	if filter.AuthorName != "" {
		query = query.Where("authors.name = ?", filter.AuthorName)
	}
	if filter.PublicationYear != nil {
		query = query.Where("books.publication_year = ?", *filter.PublicationYear)
	}
	if filter.Search != "" {
		pattern := database.ContainsPattern(filter.Search)
		query = query.Where(`books.title LIKE ? ESCAPE '\' OR authors.name LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	var books []entities.Book
	err := query.Order(orderClause(filter.Ordering)).Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// GetBook retrieves a book by ID.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// AuthorExists reports whether an author with id exists.
func (r *Repository) AuthorExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Author{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// CreateBook inserts book. The referenced author must exist.
func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := requireAuthor(tx, book.AuthorID); err != nil {
			return err
		}
		return tx.Omit("Author", "Libraries").Create(book).Error
	})
}

// UpdateBook saves every column of book.
func (r *Repository) UpdateBook(book *entities.Book) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := requireAuthor(tx, book.AuthorID); err != nil {
			return err
		}
		result := tx.Model(&entities.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
			"title":            book.Title,
			"publication_year": book.PublicationYear,
			"author_id":        book.AuthorID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBookNotFound
		}
		return tx.First(book, book.ID).Error
	})
}

// DeleteBook removes a book and its library memberships.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM library_books WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBookNotFound
		}
		return nil
	})
}

func requireAuthor(tx *gorm.DB, authorID uint) error {
	var count int64
	if err := tx.Model(&entities.Author{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAuthorNotFound
	}
	return nil
}

func preloadBooks(db *gorm.DB) *gorm.DB {
	return db.Order("books.title ASC, books.id ASC")
}

// ListAuthors returns all authors ordered by name, each with their books.
func (r *Repository) ListAuthors() ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.Preload("Books", preloadBooks).Order("name ASC, id ASC").Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	for i := range authors {
		if authors[i].Books == nil {
			authors[i].Books = []entities.Book{}
		}
	}
	return authors, nil
}

// GetAuthor retrieves an author by ID with their books.
func (r *Repository) GetAuthor(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Preload("Books", preloadBooks).First(&author, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, err
	}
	if author.Books == nil {
		author.Books = []entities.Book{}
	}
	return &author, nil
}

func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit("Books").Create(author).Error
}

// UpdateAuthor renames an author.
func (r *Repository) UpdateAuthor(author *entities.Author) error {
	result := r.db.Model(&entities.Author{}).Where("id = ?", author.ID).Update("name", author.Name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAuthorNotFound
	}
	return nil
}

// DeleteAuthor removes an author together with their books.
// Returns the number of books removed.
func (r *Repository) DeleteAuthor(id uint) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := requireAuthor(tx, id); err != nil {
			return err
		}
		bookIDs := tx.Model(&entities.Book{}).Select("id").Where("author_id = ?", id)
		if err := tx.Exec("DELETE FROM library_books WHERE book_id IN (?)", bookIDs).Error; err != nil {
			return err
		}
		result := tx.Where("author_id = ?", id).Delete(&entities.Book{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return tx.Delete(&entities.Author{}, id).Error
	})
	return removed, err
}
