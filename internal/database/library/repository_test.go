package library

import (
	"path/filepath"
	"testing"

	"github.com/qawatake/fixify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "library.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func newAuthor(name string) *fixify.Model[entities.Author] {
	return fixify.NewModel(&entities.Author{Name: name})
}

func newBook(title string) *fixify.Model[entities.Book] {
	return fixify.NewModel(&entities.Book{Title: title, PublicationYear: 1990},
		fixify.ConnectorFunc(func(_ testing.TB, b *entities.Book, a *entities.Author) {
			b.AuthorID = a.ID
		}),
	)
}

func newLibrary(name string) *fixify.Model[entities.Library] {
	return fixify.NewModel(&entities.Library{Name: name})
}

func newLibrarian(name string) *fixify.Model[entities.Librarian] {
	return fixify.NewModel(&entities.Librarian{Name: name},
		fixify.ConnectorFunc(func(_ testing.TB, l *entities.Librarian, lib *entities.Library) {
			l.LibraryID = lib.ID
		}),
	)
}

type fixture struct {
	king, rowling   *fixify.Model[entities.Author]
	central, commun *fixify.Model[entities.Library]
	books           map[string]*entities.Book
}

func seed(t *testing.T, repo *Repository, db *gorm.DB) fixture {
	t.Helper()
	var f fixture
	var it, shining, stone, chamber *fixify.Model[entities.Book]
	fixify.New(t,
		newAuthor("Stephen King").Bind(&f.king).With(
			newBook("The Shining").Bind(&shining),
			newBook("It").Bind(&it),
		),
		newAuthor("J.K. Rowling").Bind(&f.rowling).With(
			newBook("Harry Potter and the Philosopher's Stone").Bind(&stone),
			newBook("Harry Potter and the Chamber of Secrets").Bind(&chamber),
		),
		newLibrary("Central Library").Bind(&f.central).With(newLibrarian("Alice Smith")),
		newLibrary("Community Library").Bind(&f.commun),
	).Iterate(func(v any) error {
		return db.Create(v).Error
	})

	f.books = map[string]*entities.Book{
		"it": it.Value(), "shining": shining.Value(), "stone": stone.Value(), "chamber": chamber.Value(),
	}
	require.NoError(t, repo.AddBooks(f.central.Value().ID, it.Value().ID, stone.Value().ID, shining.Value().ID))
	require.NoError(t, repo.AddBooks(f.commun.Value().ID, chamber.Value().ID))
	return f
}

func titles(books []entities.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestRepository_BooksInLibrary(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)

	books, err := repo.BooksInLibrary(f.central.Value().ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"Harry Potter and the Philosopher's Stone", "It", "The Shining"}, titles(books))

	_, err = repo.BooksInLibrary(999)
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestRepository_BooksByAuthor(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)

	books, err := repo.BooksByAuthor(f.king.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"It", "The Shining"}, titles(books))

	books, err = repo.BooksByAuthorName("J.K. Rowling")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	books, err = repo.BooksByAuthorName("Nobody")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestRepository_LibrarianForLibrary(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)

	librarian, found, err := repo.LibrarianForLibrary(f.central.Value().ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Alice Smith", librarian.Name)

	librarian, found, err = repo.LibrarianForLibrary(f.commun.Value().ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, librarian)
}

func TestRepository_AddAndRemoveBooks(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)
	communID := f.commun.Value().ID

	// Adding a book twice keeps a single membership.
	require.NoError(t, repo.AddBooks(communID, f.books["it"].ID, f.books["it"].ID))
	require.NoError(t, repo.AddBooks(communID, f.books["it"].ID))
	books, err := repo.BooksInLibrary(communID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harry Potter and the Chamber of Secrets", "It"}, titles(books))

	assert.ErrorIs(t, repo.AddBooks(communID, 12345), ErrBookNotFound)

	require.NoError(t, repo.RemoveBook(communID, f.books["it"].ID))
	assert.ErrorIs(t, repo.RemoveBook(communID, f.books["it"].ID), ErrBookNotFound)

	// The book itself survives.
	var count int64
	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", f.books["it"].ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepository_DeleteLibrary_KeepsBooks(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)

	require.NoError(t, repo.DeleteLibrary(f.central.Value().ID))

	_, err := repo.GetLibrary(f.central.Value().ID)
	assert.ErrorIs(t, err, ErrLibraryNotFound)

	var books, librarians int64
	require.NoError(t, db.Model(&entities.Book{}).Count(&books).Error)
	require.NoError(t, db.Model(&entities.Librarian{}).Count(&librarians).Error)
	assert.Equal(t, int64(4), books)
	assert.Zero(t, librarians)

	assert.ErrorIs(t, repo.DeleteLibrary(f.central.Value().ID), ErrLibraryNotFound)
}

func TestRepository_Librarians(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)

	err := repo.AssignLibrarian(&entities.Librarian{Name: "Carol", LibraryID: f.central.Value().ID})
	assert.ErrorIs(t, err, ErrLibraryStaffed)

	bob := &entities.Librarian{Name: "Bob Johnson", LibraryID: f.commun.Value().ID}
	require.NoError(t, repo.AssignLibrarian(bob))

	bob.Name = "Robert Johnson"
	require.NoError(t, repo.UpdateLibrarian(bob))
	got, err := repo.GetLibrarian(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robert Johnson", got.Name)

	bob.LibraryID = f.central.Value().ID
	assert.ErrorIs(t, repo.UpdateLibrarian(bob), ErrLibraryStaffed)

	all, err := repo.ListLibrarians()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteLibrarian(bob.ID))
	assert.ErrorIs(t, repo.DeleteLibrarian(bob.ID), ErrLibrarianNotFound)
}

func TestRepository_LibraryCRUD(t *testing.T) {
	repo, _ := setupTestDB(t)

	lib := &entities.Library{Name: "Branch"}
	require.NoError(t, repo.CreateLibrary(lib))
	require.NoError(t, repo.RenameLibrary(lib.ID, "Branch Library"))

	got, err := repo.GetLibrary(lib.ID)
	require.NoError(t, err)
	assert.Equal(t, "Branch Library", got.Name)
	assert.Nil(t, got.Librarian)

	libs, err := repo.ListLibraries()
	require.NoError(t, err)
	assert.Len(t, libs, 1)

	assert.ErrorIs(t, repo.RenameLibrary(999, "x"), ErrLibraryNotFound)
}

func TestRepository_LibraryByName(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo, db)

	lib, err := repo.LibraryByName("Community Library")
	require.NoError(t, err)
	assert.Equal(t, f.commun.Value().ID, lib.ID)

	_, err = repo.LibraryByName("Missing Library")
	assert.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestRepository_Clear(t *testing.T) {
	repo, db := setupTestDB(t)
	seed(t, repo, db)

	require.NoError(t, repo.Clear())

	for _, model := range []any{&entities.Author{}, &entities.Book{}, &entities.Library{}, &entities.Librarian{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
	var links int64
	require.NoError(t, db.Table("library_books").Count(&links).Error)
	assert.Zero(t, links)
}
