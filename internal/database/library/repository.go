// Package library provides the relationship queries between authors, books,
// libraries and librarians, plus library and librarian maintenance.
//
// # Usage
//
//	repo := library.NewRepository(db)
//	books, err := repo.BooksInLibrary(libraryID)
//	librarian, found, err := repo.LibrarianForLibrary(libraryID)
package library

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/entities"
)

var (
	ErrLibraryNotFound   = errors.New("library not found")
	ErrLibrarianNotFound = errors.New("librarian not found")
	ErrLibraryStaffed    = errors.New("library already has a librarian")
	ErrBookNotFound      = errors.New("book not found")
)

// Repository handles all library database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new library repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// BooksInLibrary returns the books held by a library, ordered by title.
func (r *Repository) BooksInLibrary(libraryID uint) ([]entities.Book, error) {
	if err := r.requireLibrary(r.db, libraryID); err != nil {
		return nil, err
	}
	var books []entities.Book
	err := r.db.
		Select("books.*").
		Joins("JOIN library_books ON library_books.book_id = books.id").
		Where("library_books.library_id = ?", libraryID).
		Order("books.title ASC, books.id ASC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load library books: %w", err)
	}
	return books, nil
}

// BooksByAuthor returns the books written by an author, ordered by title.
func (r *Repository) BooksByAuthor(authorID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("author_id = ?", authorID).Order("title ASC, id ASC").Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load author books: %w", err)
	}
	return books, nil
}

// BooksByAuthorName returns the books of every author with exactly this name.
func (r *Repository) BooksByAuthorName(name string) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.
		Select("books.*").
		Joins("JOIN authors ON authors.id = books.author_id").
		Where("authors.name = ?", name).
		Order("books.title ASC, books.id ASC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load author books: %w", err)
	}
	return books, nil
}

// LibrarianForLibrary looks up the librarian of a library.
// A library without a librarian yields found == false and no error.
func (r *Repository) LibrarianForLibrary(libraryID uint) (*entities.Librarian, bool, error) {
	var librarian entities.Librarian
	err := r.db.Where("library_id = ?", libraryID).First(&librarian).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &librarian, true, nil
}

// ListLibraries returns all libraries ordered by name.
func (r *Repository) ListLibraries() ([]entities.Library, error) {
	var libraries []entities.Library
	err := r.db.Order("name ASC, id ASC").Find(&libraries).Error
	return libraries, err
}

func (r *Repository) GetLibrary(id uint) (*entities.Library, error) {
	var lib entities.Library
	err := r.db.Preload("Librarian").First(&lib, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLibraryNotFound
		}
		return nil, err
	}
	return &lib, nil
}

func (r *Repository) CreateLibrary(lib *entities.Library) error {
	return r.db.Omit("Books", "Librarian").Create(lib).Error
}

func (r *Repository) RenameLibrary(id uint, name string) error {
	result := r.db.Model(&entities.Library{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLibraryNotFound
	}
	return nil
}

// DeleteLibrary removes a library and its librarian. Books are kept.
func (r *Repository) DeleteLibrary(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.requireLibrary(tx, id); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM library_books WHERE library_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("library_id = ?", id).Delete(&entities.Librarian{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Library{}, id).Error
	})
}

// AddBooks attaches books to a library. Books already present are ignored.
func (r *Repository) AddBooks(libraryID uint, bookIDs ...uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.requireLibrary(tx, libraryID); err != nil {
			return err
		}
		var books []entities.Book
		if err := tx.Where("id IN ?", bookIDs).Find(&books).Error; err != nil {
			return err
		}
		if len(books) != len(uniq(bookIDs)) {
			return ErrBookNotFound
		}
		return tx.Model(&entities.Library{ID: libraryID}).Omit("Books.*").Association("Books").Append(books)
	})
}

// RemoveBook detaches a book from a library.
func (r *Repository) RemoveBook(libraryID, bookID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.requireLibrary(tx, libraryID); err != nil {
			return err
		}
		result := tx.Exec("DELETE FROM library_books WHERE library_id = ? AND book_id = ?", libraryID, bookID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBookNotFound
		}
		return nil
	})
}

// AssignLibrarian creates the librarian of a library.
func (r *Repository) AssignLibrarian(librarian *entities.Librarian) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.requireLibrary(tx, librarian.LibraryID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&entities.Librarian{}).Where("library_id = ?", librarian.LibraryID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrLibraryStaffed
		}
		return tx.Omit("Library").Create(librarian).Error
	})
}

func (r *Repository) ListLibrarians() ([]entities.Librarian, error) {
	var librarians []entities.Librarian
	err := r.db.Order("name ASC, id ASC").Find(&librarians).Error
	return librarians, err
}

func (r *Repository) GetLibrarian(id uint) (*entities.Librarian, error) {
	var librarian entities.Librarian
	err := r.db.First(&librarian, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLibrarianNotFound
		}
		return nil, err
	}
	return &librarian, nil
}

// UpdateLibrarian saves the name and library of a librarian. Moving to a
// library that already has another librarian fails with ErrLibraryStaffed.
func (r *Repository) UpdateLibrarian(librarian *entities.Librarian) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.requireLibrary(tx, librarian.LibraryID); err != nil {
			return err
		}
		var count int64
		err := tx.Model(&entities.Librarian{}).
			Where("library_id = ? AND id <> ?", librarian.LibraryID, librarian.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrLibraryStaffed
		}
		result := tx.Model(&entities.Librarian{}).Where("id = ?", librarian.ID).Updates(map[string]any{
			"name":       librarian.Name,
			"library_id": librarian.LibraryID,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLibrarianNotFound
		}
		return nil
	})
}

func (r *Repository) DeleteLibrarian(id uint) error {
	result := r.db.Delete(&entities.Librarian{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLibrarianNotFound
	}
	return nil
}

func (r *Repository) requireLibrary(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&entities.Library{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrLibraryNotFound
	}
	return nil
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// LibraryByName returns the first library with exactly this name.
func (r *Repository) LibraryByName(name string) (*entities.Library, error) {
	var lib entities.Library
	err := r.db.Where("name = ?", name).Order("id ASC").First(&lib).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLibraryNotFound
		}
		return nil, err
	}
	return &lib, nil
}

// Clear removes every author, book, library and librarian.
func (r *Repository) Clear() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM library_books",
			"DELETE FROM librarians",
			"DELETE FROM libraries",
			"DELETE FROM books",
			"DELETE FROM authors",
		} {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to clear library data: %w", err)
			}
		}
		return nil
	})
}
