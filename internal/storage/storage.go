// Package storage keeps uploaded binaries outside the database.
// Metadata lives in gorm tables; the path returned by Store is what gets persisted.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotExist    = errors.New("stored file does not exist")
	ErrInvalidPath = errors.New("invalid storage path")
)

// Storage is the binary half of an image asset.
type Storage interface {
	// Store writes data under a generated, collision-resistant path and returns it.
	Store(ctx context.Context, data []byte, suggestedName, contentType string) (string, error)
	// Open returns ErrNotExist when nothing is stored at p.
	Open(ctx context.Context, p string) (io.ReadCloser, error)
	// Delete returns ErrNotExist when nothing is stored at p.
	Delete(ctx context.Context, p string) error
	// URL is the public address a browser can fetch p from.
	URL(p string) string
}

// GeneratePath builds images/YYYY/MM/DD/<uuid>_<name><ext>.
// ext is expected with its leading dot; an empty ext keeps the one from suggestedName.
func GeneratePath(now time.Time, suggestedName, ext string) string {
	base := path.Base(strings.ReplaceAll(suggestedName, "\\", "/"))
	if ext == "" {
		ext = strings.ToLower(path.Ext(base))
	}
	dir := fmt.Sprintf("images/%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	return path.Join(dir, fmt.Sprintf("%s_%s%s", uuid.New().String(), SanitizeName(base), ext))
}

// SanitizeName strips the extension and anything that isn't [A-Za-z0-9-].
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "." || strings.Trim(name, "_") == "" {
		return "file"
	}
	return name
}

// ReadAll is a small helper for callers that need the stored bytes back.
func ReadAll(ctx context.Context, s Storage, p string) ([]byte, error) {
	rc, err := s.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func joinURL(base, p string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}
