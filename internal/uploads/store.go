// Package uploads stores user-supplied files (profile pictures) on local disk.
package uploads

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/shelf/internal/config"
)

// URLPrefix is where stored files are served from.
const URLPrefix = "/media"

const profilePictureDir = "profile_pictures"

var (
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")
	ErrInvalidPath     = errors.New("invalid upload path")
)

// Allowed image types and the extension they are stored with.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store saves uploads under a root directory.
type Store struct {
	dir     string
	maxSize int64
}

// NewStore creates the upload directory if needed.
func NewStore(cfg config.Uploads) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Dir, profilePictureDir), 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return &Store{dir: cfg.Dir, maxSize: maxSize}, nil
}

// SaveProfilePicture stores an image for userID and returns its path
// relative to the upload root, e.g. "profile_pictures/7_<uuid>.png".
func (s *Store) SaveProfilePicture(userID uint, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ext, ok := imageTypes[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), ext)
	rel := path.Join(profilePictureDir, name)

	// Write to a temp file in the same directory so the rename is atomic.
	tmpFile, err := os.CreateTemp(filepath.Join(s.dir, profilePictureDir), "upload_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	written, err := io.Copy(tmpFile, io.LimitReader(br, s.maxSize+1))
	if err != nil {
		return "", err
	}
	if written > s.maxSize {
		return "", ErrTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, filepath.FromSlash(rel))); err != nil {
		return "", err
	}
	return rel, nil
}

// Remove deletes a previously stored file. Missing files are ignored.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL returns the public URL for a stored path, or "" for none.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + "/" + rel
}

// Dir returns the upload root directory.
func (s *Store) Dir() string {
	return s.dir
}

// MaxSize returns the largest accepted upload in bytes.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}
