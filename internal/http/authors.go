package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/validation"
)

type authorFields struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

type AuthorsController struct {
	store     AuthorStore
	relations RelationshipStore
	audit     AuditLogger
}

func NewAuthorsController(store AuthorStore, relations RelationshipStore, auditLogger AuditLogger) *AuthorsController {
	return &AuthorsController{store: store, relations: relations, audit: auditOrDiscard(auditLogger)}
}

// List returns every author with their books nested.
// GET /api/authors/
func (ac *AuthorsController) List(c *gin.Context) {
	authors, err := ac.store.ListAuthors()
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}
	c.JSON(http.StatusOK, authors)
}

// GET /api/authors/:id/
func (ac *AuthorsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.GetAuthor(id)
	if err != nil {
		ac.respondStoreError(c, err, "get author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// Create adds an author. Nested books are read-only and ignored on input.
// POST /api/authors/
func (ac *AuthorsController) Create(c *gin.Context) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	fields, errs := authorFromPayload(p, authorFields{}, false)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	author := &entities.Author{Name: fields.Name}
	if err := ac.store.CreateAuthor(author); err != nil {
		respondInternalError(c, err, "create author")
		return
	}
	author.Books = []entities.Book{}

	ac.audit.LogMutation(GetUserID(c), entities.AuditEventCatalog, "author", "create", author.ID,
		fmt.Sprintf("Created author %q", author.Name))
	respondCreated(c, author)
}

// PUT|PATCH /api/authors/:id/
func (ac *AuthorsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.GetAuthor(id)
	if err != nil {
		ac.respondStoreError(c, err, "get author")
		return
	}

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	fields, errs := authorFromPayload(p, authorFields{Name: author.Name}, c.Request.Method == http.MethodPatch)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	author.Name = fields.Name
	if err := ac.store.UpdateAuthor(author); err != nil {
		ac.respondStoreError(c, err, "update author")
		return
	}

	ac.audit.LogMutation(GetUserID(c), entities.AuditEventCatalog, "author", "update", author.ID,
		fmt.Sprintf("Renamed author to %q", author.Name))
	c.JSON(http.StatusOK, author)
}

// Delete removes an author and every book they wrote.
// DELETE /api/authors/:id/
func (ac *AuthorsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	removed, err := ac.store.DeleteAuthor(id)
	if err != nil {
		ac.respondStoreError(c, err, "delete author")
		return
	}

	ac.audit.LogMutation(GetUserID(c), entities.AuditEventCatalog, "author", "delete", id,
		fmt.Sprintf("Deleted author %d with %d books", id, removed))
	respondNoContent(c)
}

// Books lists the books of one author, ordered by title.
// GET /api/authors/:id/books/
func (ac *AuthorsController) Books(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := ac.store.GetAuthor(id); err != nil {
		ac.respondStoreError(c, err, "get author")
		return
	}

	books, err := ac.relations.BooksByAuthor(id)
	if err != nil {
		respondInternalError(c, err, "books by author")
		return
	}
	c.JSON(http.StatusOK, books)
}

// BooksByName lists the books of every author with the exact given name.
// GET /api/authors/books/?name=
func (ac *AuthorsController) BooksByName(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		respondValidationError(c, validation.Errors{"name": {validation.MsgRequired}})
		return
	}

	books, err := ac.relations.BooksByAuthorName(name)
	if err != nil {
		respondInternalError(c, err, "books by author name")
		return
	}
	c.JSON(http.StatusOK, books)
}

func (ac *AuthorsController) respondStoreError(c *gin.Context, err error, context string) {
	if errors.Is(err, catalog.ErrAuthorNotFound) {
		respondNotFound(c, "author")
		return
	}
	respondInternalError(c, err, context)
}

func authorFromPayload(p *payload, current authorFields, partial bool) (authorFields, validation.Errors) {
	errs := validation.New()
	if !partial {
		p.requireFields(errs, "name")
	}
	if v := p.str("name", errs); v != nil {
		current.Name = strings.TrimSpace(*v)
	}
	mergeFieldErrors(errs, validation.Struct(current))
	return current, errs
}
