// Package media is the on-disk resource store for note attachments:
// original images and their thumbnails, keyed by owner note so cleanup
// can remove everything a deleted note referenced.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrResourceMissing is returned when a referenced resource no longer
// exists on disk. Restore treats it as "already cleaned up" and drops
// the placeholder instead of surfacing an error.
var ErrResourceMissing = errors.New("media: resource missing")

const maxImageSize = 10 << 20 // 10 MB

var extByMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

var unsafeOwnerRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store is a filesystem resource store rooted at one directory. Each
// owner (note id) gets a subdirectory holding its originals and
// thumbnails, so DeleteAll is a single subtree removal.
type Store struct {
	root       string
	thumbWidth int
}

// NewStore creates a store rooted at dir, creating it if needed.
// thumbWidth is the deterministic downscale target for thumbnails.
func NewStore(dir string, thumbWidth int) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("media: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("media: mkdir root: %w", err)
	}
	if thumbWidth <= 0 {
		thumbWidth = 480
	}
	return &Store{root: abs, thumbWidth: thumbWidth}, nil
}

// Save validates and persists an encoded image plus its thumbnail for
// ownerID, writing both atomically and concurrently. The returned
// original name is the stable resource identifier used in media://
// links; the thumbnail name is derived from it.
func (s *Store) Save(ctx context.Context, data []byte, ownerID string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("media: empty image")
	}
	if len(data) > maxImageSize {
		return "", "", fmt.Errorf("media: image too large: %d bytes (max %d)", len(data), maxImageSize)
	}

	mime := strings.Split(http.DetectContentType(data), ";")[0]
	ext, ok := extByMIME[mime]
	if !ok {
		return "", "", fmt.Errorf("media: unsupported image type %s", mime)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("media: decode: %w", err)
	}

	thumb := img
	if img.Bounds().Dx() > s.thumbWidth {
		thumb = boxScale(img, s.thumbWidth)
	}
	var thumbBuf bytes.Buffer
	if err := png.Encode(&thumbBuf, thumb); err != nil {
		return "", "", fmt.Errorf("media: encode thumbnail: %w", err)
	}

	owner := sanitizeOwner(ownerID)
	id := uuid.New().String()
	origName := owner + "/" + id + ext
	thumbName := thumbNameFor(origName)

	origPath, err := s.safePath(origName)
	if err != nil {
		return "", "", err
	}
	thumbPath, err := s.safePath(thumbName)
	if err != nil {
		return "", "", err
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return writeAtomic(origPath, data) })
	g.Go(func() error { return writeAtomic(thumbPath, thumbBuf.Bytes()) })
	if err := g.Wait(); err != nil {
		_ = os.Remove(origPath)
		_ = os.Remove(thumbPath)
		return "", "", err
	}
	return origName, thumbName, nil
}

// LoadThumbnail resolves a stored original name to its decoded thumbnail.
func (s *Store) LoadThumbnail(originalName string) (image.Image, error) {
	return s.load(thumbNameFor(originalName))
}

// LoadOriginal decodes the stored original image.
func (s *Store) LoadOriginal(originalName string) (image.Image, error) {
	return s.load(originalName)
}

func (s *Store) load(name string) (image.Image, error) {
	path, err := s.safePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("media: %s: %w", name, ErrResourceMissing)
		}
		return nil, fmt.Errorf("media: open %s: %w", name, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("media: decode %s: %w", name, err)
	}
	return img, nil
}

// Delete removes one resource and its thumbnail.
func (s *Store) Delete(originalName string) error {
	for _, name := range []string{originalName, thumbNameFor(originalName)} {
		path, err := s.safePath(name)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("media: delete %s: %w", name, err)
		}
	}
	return nil
}

// DeleteAll removes every resource owned by a note, thumbnails included.
func (s *Store) DeleteAll(ownerID string) error {
	path, err := s.safePath(sanitizeOwner(ownerID))
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("media: delete all for %s: %w", ownerID, err)
	}
	return nil
}

// safePath resolves a resource name against the store root and rejects
// anything that escapes it.
func (s *Store) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("media: absolute names not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("media: resolve name: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("media: name escapes store root: %s", rel)
	}
	return abs, nil
}

func thumbNameFor(originalName string) string {
	ext := filepath.Ext(originalName)
	return strings.TrimSuffix(originalName, ext) + "-thumb.png"
}

func sanitizeOwner(ownerID string) string {
	out := unsafeOwnerRe.ReplaceAllString(ownerID, "_")
	if out == "" || out == "." {
		out = uuid.New().String()
	}
	return out
}

// writeAtomic writes content via tmp file, fsync and rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("media: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".qnote-tmp-*")
	if err != nil {
		return fmt.Errorf("media: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("media: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("media: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("media: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("media: rename: %w", err)
	}
	success = true
	return nil
}
