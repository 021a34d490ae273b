package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultLocalDir  = "./storage"
	DefaultPublicURL = "/storage"
)

// Local stores files on disk under a root directory.
type Local struct {
	root      string
	publicURL string
	now       func() time.Time
}

func NewLocal(root, publicURL string) (*Local, error) {
	if root == "" {
		root = DefaultLocalDir
	}
	if publicURL == "" {
		publicURL = DefaultPublicURL
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{root: abs, publicURL: publicURL, now: time.Now}, nil
}

// Root is the absolute directory served under PublicURL.
func (l *Local) Root() string { return l.root }

func (l *Local) PublicURL() string { return l.publicURL }

func (l *Local) Store(ctx context.Context, data []byte, suggestedName, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := GeneratePath(l.now(), suggestedName, extFromName(suggestedName))
	abs, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	// write next to the target and rename, so a half-written file never has the final name
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	// CreateTemp uses 0600; files are served by whatever reads Root
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("move file into place: %w", err)
	}
	return rel, nil
}

func (l *Local) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := l.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := l.resolve(p)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotExist
	}
	if err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (l *Local) URL(p string) string {
	return joinURL(l.publicURL, p)
}

// resolve maps a stored relative path onto the root, refusing anything that would escape it.
func (l *Local) resolve(p string) (string, error) {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if p == "" || !filepath.IsLocal(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Join(l.root, p), nil
}

func extFromName(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}
