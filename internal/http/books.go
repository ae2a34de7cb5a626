package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/validation"
)

// bookFields is a book after applying a request, validated as a whole.
type bookFields struct {
	Title           string `json:"title" validate:"notblank,max=255"`
	PublicationYear int    `json:"publication_year" validate:"year"`
	Author          uint   `json:"author"`
}

type BooksController struct {
	store BookStore
	audit AuditLogger
}

func NewBooksController(store BookStore, auditLogger AuditLogger) *BooksController {
	return &BooksController{store: store, audit: auditOrDiscard(auditLogger)}
}

// List returns books, filtered and ordered by query parameters.
// GET /api/books/?title=&author__name=&publication_year=&search=&ordering=
func (bc *BooksController) List(c *gin.Context) {
	filter := catalog.BookFilter{
		Title:      c.Query("title"),
		AuthorName: c.Query("author__name"),
		Search:     strings.TrimSpace(c.Query("search")),
		Ordering:   catalog.ParseOrdering(c.Query("ordering")),
	}
	if raw := c.Query("publication_year"); raw != "" {
		year, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			respondValidationError(c, validation.Errors{"publication_year": {validation.MsgNotANumber}})
			return
		}
		filter.PublicationYear = &year
	}

	books, err := bc.store.ListBooks(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// Get returns a single book.
// GET /api/books/:id/
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBook(id)
	if err != nil {
		bc.respondStoreError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Create adds a book. Every field is required.
// POST /api/books/
func (bc *BooksController) Create(c *gin.Context) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	fields, errs := bookFromPayload(p, bookFields{}, false)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	book := &entities.Book{
		Title:           fields.Title,
		PublicationYear: fields.PublicationYear,
		AuthorID:        fields.Author,
	}
	if err := bc.store.CreateBook(book); err != nil {
		bc.respondWriteError(c, err, book.AuthorID, "create book")
		return
	}

	bc.audit.LogMutation(GetUserID(c), entities.AuditEventCatalog, "book", "create", book.ID,
		fmt.Sprintf("Created book %q", book.Title))
	respondCreated(c, book)
}

// Update replaces a book (PUT) or changes the given fields (PATCH).
// PUT|PATCH /api/books/:id/
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBook(id)
	if err != nil {
		bc.respondStoreError(c, err, "get book")
		return
	}

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	current := bookFields{Title: book.Title, PublicationYear: book.PublicationYear, Author: book.AuthorID}
	fields, errs := bookFromPayload(p, current, c.Request.Method == http.MethodPatch)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	book.Title = fields.Title
	book.PublicationYear = fields.PublicationYear
	book.AuthorID = fields.Author
	if err := bc.store.UpdateBook(book); err != nil {
		bc.respondWriteError(c, err, book.AuthorID, "update book")
		return
	}

	bc.audit.LogMutation(GetUserID(c), entities.AuditEventCatalog, "book", "update", book.ID,
		fmt.Sprintf("Updated book %q", book.Title))
	c.JSON(http.StatusOK, book)
}

// Delete removes a book.
// DELETE /api/books/:id/
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		bc.respondStoreError(c, err, "delete book")
		return
	}

	bc.audit.LogMutation(GetUserID(c), entities.AuditEventCatalog, "book", "delete", id,
		fmt.Sprintf("Deleted book %d", id))
	respondNoContent(c)
}

func (bc *BooksController) respondStoreError(c *gin.Context, err error, context string) {
	if errors.Is(err, catalog.ErrBookNotFound) {
		respondNotFound(c, "book")
		return
	}
	respondInternalError(c, err, context)
}

// respondWriteError maps a failed create or update. A missing author is a
// field error on the submitted author id.
func (bc *BooksController) respondWriteError(c *gin.Context, err error, authorID uint, context string) {
	if errors.Is(err, catalog.ErrAuthorNotFound) {
		respondValidationError(c, validation.Errors{"author": {validation.DoesNotExist(int(authorID))}})
		return
	}
	bc.respondStoreError(c, err, context)
}

// bookFromPayload applies p on top of current. Unless partial, every field
// must be present.
func bookFromPayload(p *payload, current bookFields, partial bool) (bookFields, validation.Errors) {
	errs := validation.New()
	if !partial {
		p.requireFields(errs, "title", "publication_year", "author")
	}

	if v := p.str("title", errs); v != nil {
		current.Title = strings.TrimSpace(*v)
	}
	if v := p.integer("publication_year", errs); v != nil {
		current.PublicationYear = *v
	}
	if v := p.integer("author", errs); v != nil {
		if *v <= 0 {
			errs.Add("author", validation.DoesNotExist(*v))
		} else {
			current.Author = uint(*v)
		}
	}

	mergeFieldErrors(errs, validation.Struct(current))
	return current, errs
}
