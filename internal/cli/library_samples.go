package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/database/library"
	"github.com/mrlokans/shelf/internal/entities"
)

type sampleBook struct {
	title string
	year  int
}

var sampleAuthors = []struct {
	name  string
	books []sampleBook
}{
	{"Stephen King", []sampleBook{{"It", 1986}, {"The Shining", 1977}}},
	{"J.K. Rowling", []sampleBook{{"Harry Potter and the Sorcerer's Stone", 1997}, {"Fantastic Beasts", 2001}}},
}

var sampleLibraries = []struct {
	name      string
	books     []string
	librarian string
}{
	{"Central Library", []string{"It", "Harry Potter and the Sorcerer's Stone", "The Shining"}, "Alice Smith"},
	{"Community Library", []string{"Harry Potter and the Sorcerer's Stone", "Fantastic Beasts"}, "Bob Johnson"},
}

// LibrarySamplesCommand seeds a small catalog and prints the relationship
// queries against it.
type LibrarySamplesCommand struct {
	DatabasePath string
	Reset        bool

	out io.Writer
}

func NewLibrarySamplesCommand() *LibrarySamplesCommand {
	return &LibrarySamplesCommand{out: os.Stdout}
}

func (cmd *LibrarySamplesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("library-samples", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.Reset, "reset", false, "Delete all authors, books, libraries and librarians before seeding")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s library-samples [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Seed sample authors, books, libraries and librarians, then run the relationship queries.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s library-samples\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s library-samples -db ./shelf.db -reset\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *LibrarySamplesCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	books := catalog.NewRepository(db.DB)
	libraries := library.NewRepository(db.DB)

	if cmd.Reset {
		if err := libraries.Clear(); err != nil {
			return err
		}
	}

	seeded, err := seedLibrarySamples(books, libraries)
	if err != nil {
		return fmt.Errorf("failed to seed sample data: %w", err)
	}
	if !seeded {
		fmt.Fprintln(cmd.out, "Sample data already present, use -reset to recreate it")
	}

	return printLibrarySamples(cmd.out, libraries)
}

// seedLibrarySamples creates the sample data set unless Central Library
// already exists. It reports whether anything was created.
func seedLibrarySamples(books *catalog.Repository, libraries *library.Repository) (bool, error) {
	_, err := libraries.LibraryByName(sampleLibraries[0].name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, library.ErrLibraryNotFound) {
		return false, err
	}

	bookIDs := make(map[string]uint)
	for _, a := range sampleAuthors {
		author := &entities.Author{Name: a.name}
		if err := books.CreateAuthor(author); err != nil {
			return false, err
		}
		for _, b := range a.books {
			book := &entities.Book{Title: b.title, PublicationYear: b.year, AuthorID: author.ID}
			if err := books.CreateBook(book); err != nil {
				return false, err
			}
			bookIDs[b.title] = book.ID
		}
	}

	for _, l := range sampleLibraries {
		lib := &entities.Library{Name: l.name}
		if err := libraries.CreateLibrary(lib); err != nil {
			return false, err
		}
		ids := make([]uint, 0, len(l.books))
		for _, title := range l.books {
			ids = append(ids, bookIDs[title])
		}
		if err := libraries.AddBooks(lib.ID, ids...); err != nil {
			return false, err
		}
		if err := libraries.AssignLibrarian(&entities.Librarian{Name: l.librarian, LibraryID: lib.ID}); err != nil {
			return false, err
		}
	}
	return true, nil
}

func printLibrarySamples(w io.Writer, libraries *library.Repository) error {
	fmt.Fprintln(w, "=== Books by author ===")
	for _, a := range sampleAuthors {
		books, err := libraries.BooksByAuthorName(a.name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s:\n", a.name)
		printBooks(w, books)
	}

	fmt.Fprintln(w, "\n=== Books in library ===")
	for _, l := range sampleLibraries {
		lib, err := libraries.LibraryByName(l.name)
		if err != nil {
			return err
		}
		books, err := libraries.BooksInLibrary(lib.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s:\n", lib.Name)
		printBooks(w, books)
	}

	fmt.Fprintln(w, "\n=== Librarian for library ===")
	for _, l := range sampleLibraries {
		lib, err := libraries.LibraryByName(l.name)
		if err != nil {
			return err
		}
		librarian, found, err := libraries.LibrarianForLibrary(lib.ID)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(w, "%s: no librarian\n", lib.Name)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", lib.Name, librarian.Name)
	}
	return nil
}

func printBooks(w io.Writer, books []entities.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, b := range books {
		fmt.Fprintf(w, "  - %s (%d)\n", b.Title, b.PublicationYear)
	}
}
