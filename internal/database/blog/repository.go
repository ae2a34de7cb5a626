// Package blog provides database operations for posts and tags.
//
// Tags are shared between posts and deduplicated by name: attaching "Go" to a
// post reuses an existing "go" tag instead of creating a second one.
//
// # Usage
//
//	repo := blog.NewRepository(db)
//	post := &entities.Post{Title: "Hello", Content: "..."}
//	err := repo.CreatePost(post, blog.ParseTagNames("go, web"))
//	posts, err := repo.Search("go")
package blog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entities"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrTagNotFound  = errors.New("tag not found")
)

const postOrder = "posts.created_at DESC, posts.id DESC"

// Repository handles all blog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new blog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ParseTagNames splits a comma separated tag list. Names are trimmed, blanks
// dropped and case-insensitive duplicates collapsed to their first spelling.
func ParseTagNames(raw string) []string {
	return NormalizeTagNames(strings.Split(raw, ","))
}

// NormalizeTagNames applies the ParseTagNames rules to an already split list.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

func preloadTags(db *gorm.DB) *gorm.DB {
	return db.Order("tags.name ASC")
}

// ListPosts returns every post, newest first.
func (r *Repository) ListPosts() ([]entities.Post, error) {
	var posts []entities.Post
	err := r.db.Preload("Tags", preloadTags).Order(postOrder).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (r *Repository) GetPost(id uint) (*entities.Post, error) {
	var post entities.Post
	err := r.db.Preload("Tags", preloadTags).First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// CreatePost inserts post and attaches the named tags, creating missing ones.
func (r *Repository) CreatePost(post *entities.Post, tagNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Author").Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		return setTags(tx, post, tagNames)
	})
}

// UpdatePost saves title and content. When tagNames is non-nil the post's tag
// set is replaced by it; nil leaves the tags untouched.
func (r *Repository) UpdatePost(post *entities.Post, tagNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"title":   post.Title,
			"content": post.Content,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		if tagNames != nil {
			if err := setTags(tx, post, tagNames); err != nil {
				return err
			}
		}
		return tx.Preload("Tags", preloadTags).First(post, post.ID).Error
	})
}

func (r *Repository) DeletePost(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

// Search returns posts whose title, content or any tag name contains q,
// ignoring case. Each post appears once. An empty q returns every post.
func (r *Repository) Search(q string) ([]entities.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return r.ListPosts()
	}

	pattern := database.ContainsPattern(q)
	tagged := r.db.Table("post_tags").
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where(`tags.name LIKE ? ESCAPE '\'`, pattern)

	var posts []entities.Post
	err := r.db.Preload("Tags", preloadTags).
		Where(`posts.title LIKE ? ESCAPE '\' OR posts.content LIKE ? ESCAPE '\' OR posts.id IN (?)`, pattern, pattern, tagged).
		Order(postOrder).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	return posts, nil
}

// GetTagBySlug retrieves a tag by its slug.
func (r *Repository) GetTagBySlug(tagSlug string) (*entities.Tag, error) {
	var tag entities.Tag
	err := r.db.Where("slug = ?", tagSlug).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// PostsByTag returns the tag with the given slug and every post carrying it.
func (r *Repository) PostsByTag(tagSlug string) (*entities.Tag, []entities.Post, error) {
	tag, err := r.GetTagBySlug(tagSlug)
	if err != nil {
		return nil, nil, err
	}

	var posts []entities.Post
	err = r.db.Preload("Tags", preloadTags).
		Where("posts.id IN (?)", r.db.Table("post_tags").Select("post_id").Where("tag_id = ?", tag.ID)).
		Order(postOrder).
		Find(&posts).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tagged posts: %w", err)
	}
	return tag, posts, nil
}

// ListTags returns all tags ordered by name.
func (r *Repository) ListTags() ([]entities.Tag, error) {
	var tags []entities.Tag
	err := r.db.Order("name ASC").Find(&tags).Error
	return tags, err
}

// GetOrCreateTag retrieves a tag by name (case-insensitive) or creates it.
func (r *Repository) GetOrCreateTag(name string) (*entities.Tag, error) {
	return getOrCreateTag(r.db, name)
}

// DeleteOrphanTags removes tags that no post uses.
func (r *Repository) DeleteOrphanTags() (int64, error) {
	result := r.db.Exec(`DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM post_tags)`)
	return result.RowsAffected, result.Error
}

func setTags(tx *gorm.DB, post *entities.Post, names []string) error {
	tags := make([]entities.Tag, 0, len(names))
	for _, name := range NormalizeTagNames(names) {
		tag, err := getOrCreateTag(tx, name)
		if err != nil {
			return err
		}
		tags = append(tags, *tag)
	}
	if err := tx.Model(post).Omit("Tags.*").Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}
	post.Tags = tags
	return nil
}

func getOrCreateTag(tx *gorm.DB, name string) (*entities.Tag, error) {
	name = strings.TrimSpace(name)
	var tag entities.Tag
	err := tx.Where("LOWER(name) = LOWER(?)", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tagSlug, err := uniqueSlug(tx, name)
	if err != nil {
		return nil, err
	}
	tag = entities.Tag{Name: name, Slug: tagSlug}
	if err := tx.Omit("Posts").Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	return &tag, nil
}

// uniqueSlug derives a slug from name, suffixing -2, -3, ... on collision.
func uniqueSlug(tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "tag"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := tx.Model(&entities.Tag{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
