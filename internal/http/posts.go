package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/blog"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/validation"
)

const msgNotPostAuthor = "You do not have permission to perform this action."

type postFields struct {
	Title   string `json:"title" validate:"notblank,max=200"`
	Content string `json:"content" validate:"notblank"`
}

// TaggedPostsResponse is the body of the posts-by-tag listing.
type TaggedPostsResponse struct {
	Tag   *entities.Tag   `json:"tag"`
	Posts []entities.Post `json:"posts"`
}

type PostsController struct {
	store PostStore
	audit AuditLogger
}

func NewPostsController(store PostStore, auditLogger AuditLogger) *PostsController {
	return &PostsController{store: store, audit: auditOrDiscard(auditLogger)}
}

// List returns every post, newest first.
// GET /api/posts/
func (pc *PostsController) List(c *gin.Context) {
	posts, err := pc.store.ListPosts()
	if err != nil {
		respondInternalError(c, err, "list posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GET /api/posts/:id/
func (pc *PostsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	post, err := pc.store.GetPost(id)
	if err != nil {
		respondBlogError(c, err, "get post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// Create publishes a post authored by the caller. Tags are given as a comma
// separated string or a list and created on first use.
// POST /api/posts/
func (pc *PostsController) Create(c *gin.Context) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	fields, tags, errs := postFromPayload(p, postFields{}, false)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	userID := GetUserID(c)
	post := &entities.Post{Title: fields.Title, Content: fields.Content}
	if userID != 0 {
		post.AuthorID = &userID
	}
	if err := pc.store.CreatePost(post, tags); err != nil {
		respondInternalError(c, err, "create post")
		return
	}

	pc.audit.LogMutation(userID, entities.AuditEventBlog, "post", "create", post.ID,
		fmt.Sprintf("Published post %q", post.Title))
	respondCreated(c, post)
}

// Update edits a post. Only its author may change it. Tags are replaced when
// given and kept otherwise.
// PUT|PATCH /api/posts/:id/
func (pc *PostsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	post, err := pc.store.GetPost(id)
	if err != nil {
		respondBlogError(c, err, "get post")
		return
	}
	if !canEditPost(c, post) {
		respondError(c, http.StatusForbidden, msgNotPostAuthor)
		return
	}

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	current := postFields{Title: post.Title, Content: post.Content}
	fields, tags, errs := postFromPayload(p, current, c.Request.Method == http.MethodPatch)
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	post.Title = fields.Title
	post.Content = fields.Content
	if err := pc.store.UpdatePost(post, tags); err != nil {
		respondBlogError(c, err, "update post")
		return
	}

	pc.audit.LogMutation(GetUserID(c), entities.AuditEventBlog, "post", "update", post.ID,
		fmt.Sprintf("Updated post %q", post.Title))
	c.JSON(http.StatusOK, post)
}

// DELETE /api/posts/:id/
func (pc *PostsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	post, err := pc.store.GetPost(id)
	if err != nil {
		respondBlogError(c, err, "get post")
		return
	}
	if !canEditPost(c, post) {
		respondError(c, http.StatusForbidden, msgNotPostAuthor)
		return
	}

	if err := pc.store.DeletePost(id); err != nil {
		respondBlogError(c, err, "delete post")
		return
	}

	pc.audit.LogMutation(GetUserID(c), entities.AuditEventBlog, "post", "delete", id,
		fmt.Sprintf("Deleted post %q", post.Title))
	respondNoContent(c)
}

// Search matches q against title, content and tag names, ignoring case.
// An empty query returns every post.
// GET /api/posts/search/?q=
func (pc *PostsController) Search(c *gin.Context) {
	posts, err := pc.store.Search(c.Query("q"))
	if err != nil {
		respondInternalError(c, err, "search posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Tags lists every tag.
// GET /api/tags/
func (pc *PostsController) Tags(c *gin.Context) {
	tags, err := pc.store.ListTags()
	if err != nil {
		respondInternalError(c, err, "list tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// ByTag lists the posts carrying the tag with the given slug.
// GET /api/tags/:slug/posts/
func (pc *PostsController) ByTag(c *gin.Context) {
	tag, posts, err := pc.store.PostsByTag(c.Param("slug"))
	if err != nil {
		respondBlogError(c, err, "posts by tag")
		return
	}
	c.JSON(http.StatusOK, TaggedPostsResponse{Tag: tag, Posts: posts})
}

// canEditPost allows the author of a post. Posts without a recorded author
// may be edited by any authenticated user.
func canEditPost(c *gin.Context, post *entities.Post) bool {
	return post.AuthorID == nil || *post.AuthorID == GetUserID(c)
}

func postFromPayload(p *payload, current postFields, partial bool) (postFields, []string, validation.Errors) {
	errs := validation.New()
	if !partial {
		p.requireFields(errs, "title", "content")
	}
	if v := p.str("title", errs); v != nil {
		current.Title = strings.TrimSpace(*v)
	}
	if v := p.str("content", errs); v != nil {
		current.Content = *v
	}
	tags, _ := p.tagNames("tags", errs)
	for _, name := range tags {
		if len(name) > 50 {
			errs.Add("tags", "Ensure each tag has no more than 50 characters.")
			break
		}
	}
	mergeFieldErrors(errs, validation.Struct(current))
	return current, tags, errs
}

func respondBlogError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, blog.ErrPostNotFound):
		respondNotFound(c, "post")
	case errors.Is(err, blog.ErrTagNotFound):
		respondNotFound(c, "tag")
	default:
		respondInternalError(c, err, context)
	}
}
