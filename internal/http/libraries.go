package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/library"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/validation"
)

const msgLibraryStaffed = "librarian with this library already exists."

type libraryFields struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

type librarianFields struct {
	Name    string `json:"name" validate:"notblank,max=255"`
	Library uint   `json:"library"`
}

type LibrariesController struct {
	store LibraryStore
	audit AuditLogger
}

func NewLibrariesController(store LibraryStore, auditLogger AuditLogger) *LibrariesController {
	return &LibrariesController{store: store, audit: auditOrDiscard(auditLogger)}
}

// GET /api/libraries/
func (lc *LibrariesController) List(c *gin.Context) {
	libraries, err := lc.store.ListLibraries()
	if err != nil {
		respondInternalError(c, err, "list libraries")
		return
	}
	c.JSON(http.StatusOK, libraries)
}

// GET /api/libraries/:id/
func (lc *LibrariesController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lib, err := lc.store.GetLibrary(id)
	if err != nil {
		respondLibraryError(c, err, "get library")
		return
	}
	c.JSON(http.StatusOK, lib)
}

// POST /api/libraries/
func (lc *LibrariesController) Create(c *gin.Context) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	errs := validation.New()
	p.requireFields(errs, "name")
	fields := libraryFields{}
	if v := p.str("name", errs); v != nil {
		fields.Name = strings.TrimSpace(*v)
	}
	mergeFieldErrors(errs, validation.Struct(fields))
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	lib := &entities.Library{Name: fields.Name}
	if err := lc.store.CreateLibrary(lib); err != nil {
		respondInternalError(c, err, "create library")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "library", "create", lib.ID,
		fmt.Sprintf("Created library %q", lib.Name))
	respondCreated(c, lib)
}

// Update renames a library. PUT and PATCH behave the same since name is the
// only writable field, except that PUT requires it.
// PUT|PATCH /api/libraries/:id/
func (lc *LibrariesController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lib, err := lc.store.GetLibrary(id)
	if err != nil {
		respondLibraryError(c, err, "get library")
		return
	}

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	errs := validation.New()
	if c.Request.Method != http.MethodPatch {
		p.requireFields(errs, "name")
	}
	fields := libraryFields{Name: lib.Name}
	if v := p.str("name", errs); v != nil {
		fields.Name = strings.TrimSpace(*v)
	}
	mergeFieldErrors(errs, validation.Struct(fields))
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	if err := lc.store.RenameLibrary(id, fields.Name); err != nil {
		respondLibraryError(c, err, "rename library")
		return
	}
	lib.Name = fields.Name

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "library", "update", id,
		fmt.Sprintf("Renamed library to %q", lib.Name))
	c.JSON(http.StatusOK, lib)
}

// Delete removes a library and its librarian. Its books are kept.
// DELETE /api/libraries/:id/
func (lc *LibrariesController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.store.DeleteLibrary(id); err != nil {
		respondLibraryError(c, err, "delete library")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "library", "delete", id,
		fmt.Sprintf("Deleted library %d", id))
	respondNoContent(c)
}

// Books lists the books a library holds, ordered by title.
// GET /api/libraries/:id/books/
func (lc *LibrariesController) Books(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	books, err := lc.store.BooksInLibrary(id)
	if err != nil {
		respondLibraryError(c, err, "books in library")
		return
	}
	c.JSON(http.StatusOK, books)
}

// AddBooks attaches books given as {"books": [ids]} or {"book_id": id}.
// POST /api/libraries/:id/books/
func (lc *LibrariesController) AddBooks(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	errs := validation.New()
	ids := p.integers("books", errs)
	if v := p.integer("book_id", errs); v != nil {
		ids = append(ids, *v)
	}
	if errs.Valid() && len(ids) == 0 {
		errs.Add("books", validation.MsgRequired)
	}
	bookIDs := make([]uint, 0, len(ids))
	for _, n := range ids {
		if n <= 0 {
			errs.Add("books", validation.DoesNotExist(n))
			continue
		}
		bookIDs = append(bookIDs, uint(n))
	}
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	if err := lc.store.AddBooks(id, bookIDs...); err != nil {
		if errors.Is(err, library.ErrBookNotFound) {
			respondValidationError(c, validation.Errors{"books": {"One or more books do not exist."}})
			return
		}
		respondLibraryError(c, err, "add library books")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "library", "add_books", id,
		fmt.Sprintf("Added %d books to library %d", len(bookIDs), id))

	books, err := lc.store.BooksInLibrary(id)
	if err != nil {
		respondInternalError(c, err, "books in library")
		return
	}
	c.JSON(http.StatusOK, books)
}

// RemoveBook detaches one book from a library. The book itself is kept.
// DELETE /api/libraries/:id/books/:bookId/
func (lc *LibrariesController) RemoveBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	if err := lc.store.RemoveBook(id, bookID); err != nil {
		respondLibraryError(c, err, "remove library book")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "library", "remove_book", id,
		fmt.Sprintf("Removed book %d from library %d", bookID, id))
	respondNoContent(c)
}

// Librarian returns the librarian of a library, 404 when it has none.
// GET /api/libraries/:id/librarian/
func (lc *LibrariesController) Librarian(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := lc.store.GetLibrary(id); err != nil {
		respondLibraryError(c, err, "get library")
		return
	}

	librarian, found, err := lc.store.LibrarianForLibrary(id)
	if err != nil {
		respondInternalError(c, err, "librarian for library")
		return
	}
	if !found {
		respondNotFound(c, "librarian")
		return
	}
	c.JSON(http.StatusOK, librarian)
}

type LibrariansController struct {
	store LibrarianStore
	audit AuditLogger
}

func NewLibrariansController(store LibrarianStore, auditLogger AuditLogger) *LibrariansController {
	return &LibrariansController{store: store, audit: auditOrDiscard(auditLogger)}
}

// GET /api/librarians/
func (lc *LibrariansController) List(c *gin.Context) {
	librarians, err := lc.store.ListLibrarians()
	if err != nil {
		respondInternalError(c, err, "list librarians")
		return
	}
	c.JSON(http.StatusOK, librarians)
}

// GET /api/librarians/:id/
func (lc *LibrariansController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	librarian, err := lc.store.GetLibrarian(id)
	if err != nil {
		respondLibraryError(c, err, "get librarian")
		return
	}
	c.JSON(http.StatusOK, librarian)
}

// Create assigns a librarian to a library that has none yet.
// POST /api/librarians/
func (lc *LibrariansController) Create(c *gin.Context) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	fields, errs := librarianFromPayload(p, librarianFields{}, false)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	librarian := &entities.Librarian{Name: fields.Name, LibraryID: fields.Library}
	if err := lc.store.AssignLibrarian(librarian); err != nil {
		respondLibrarianWriteError(c, err, fields.Library, "assign librarian")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "librarian", "create", librarian.ID,
		fmt.Sprintf("Assigned librarian %q to library %d", librarian.Name, librarian.LibraryID))
	respondCreated(c, librarian)
}

// PUT|PATCH /api/librarians/:id/
func (lc *LibrariansController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	librarian, err := lc.store.GetLibrarian(id)
	if err != nil {
		respondLibraryError(c, err, "get librarian")
		return
	}

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	current := librarianFields{Name: librarian.Name, Library: librarian.LibraryID}
	fields, errs := librarianFromPayload(p, current, c.Request.Method == http.MethodPatch)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	librarian.Name = fields.Name
	librarian.LibraryID = fields.Library
	if err := lc.store.UpdateLibrarian(librarian); err != nil {
		respondLibrarianWriteError(c, err, fields.Library, "update librarian")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "librarian", "update", librarian.ID,
		fmt.Sprintf("Updated librarian %q", librarian.Name))
	c.JSON(http.StatusOK, librarian)
}

// DELETE /api/librarians/:id/
func (lc *LibrariansController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.store.DeleteLibrarian(id); err != nil {
		respondLibraryError(c, err, "delete librarian")
		return
	}

	lc.audit.LogMutation(GetUserID(c), entities.AuditEventLibrary, "librarian", "delete", id,
		fmt.Sprintf("Deleted librarian %d", id))
	respondNoContent(c)
}

func librarianFromPayload(p *payload, current librarianFields, partial bool) (librarianFields, validation.Errors) {
	errs := validation.New()
	if !partial {
		p.requireFields(errs, "name", "library")
	}
	if v := p.str("name", errs); v != nil {
		current.Name = strings.TrimSpace(*v)
	}
	if v := p.integer("library", errs); v != nil {
		if *v <= 0 {
			errs.Add("library", validation.DoesNotExist(*v))
		} else {
			current.Library = uint(*v)
		}
	}
	mergeFieldErrors(errs, validation.Struct(current))
	return current, errs
}

func respondLibraryError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, library.ErrLibraryNotFound):
		respondNotFound(c, "library")
	case errors.Is(err, library.ErrLibrarianNotFound):
		respondNotFound(c, "librarian")
	case errors.Is(err, library.ErrBookNotFound):
		respondNotFound(c, "book")
	default:
		respondInternalError(c, err, context)
	}
}

// respondLibrarianWriteError reports problems with the submitted library as
// field errors.
func respondLibrarianWriteError(c *gin.Context, err error, libraryID uint, context string) {
	switch {
	case errors.Is(err, library.ErrLibraryNotFound):
		respondValidationError(c, validation.Errors{"library": {validation.DoesNotExist(int(libraryID))}})
	case errors.Is(err, library.ErrLibraryStaffed):
		respondValidationError(c, validation.Errors{"library": {msgLibraryStaffed}})
	default:
		respondLibraryError(c, err, context)
	}
}
