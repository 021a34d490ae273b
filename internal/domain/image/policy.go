package image

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxSize = 2 * 1024 * 1024 // 2 MiB

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif"}

// UploadPolicy decides which files are accepted.
type UploadPolicy struct {
	AllowedTypes []string
	MaxSize      int64
	RequireImage bool // on create; updates never require a new file
}

func DefaultPolicy() UploadPolicy {
	return UploadPolicy{
		AllowedTypes: append([]string(nil), DefaultAllowedTypes...),
		MaxSize:      DefaultMaxSize,
		RequireImage: true,
	}
}

func (p UploadPolicy) withDefaults() UploadPolicy {
	if len(p.AllowedTypes) == 0 {
		p.AllowedTypes = append([]string(nil), DefaultAllowedTypes...)
	}
	if p.MaxSize <= 0 {
		p.MaxSize = DefaultMaxSize
	}
	return p
}

type checkedFile struct {
	mimeType string
	ext      string
}

// check sniffs the content (the client's name and Content-Type are not trusted).
// On rejection it returns a field message and whether the size was the cause.
func (p UploadPolicy) check(f *FileInput) (*checkedFile, string, bool) {
	if f.size() > p.MaxSize {
		return nil, fmt.Sprintf("must not be larger than %s", humanize.IBytes(uint64(p.MaxSize))), true
	}
	if len(f.Data) == 0 {
		return nil, "file is empty", false
	}

	detected := mimetype.Detect(f.Data)
	for _, allowed := range p.AllowedTypes {
		if detected.Is(allowed) {
			return &checkedFile{mimeType: allowed, ext: detected.Extension()}, "", false
		}
	}
	return nil, "must be a file of type: " + p.typeList(), false
}

func (p UploadPolicy) typeList() string {
	names := make([]string, 0, len(p.AllowedTypes))
	for _, t := range p.AllowedTypes {
		names = append(names, strings.TrimPrefix(t, "image/"))
	}
	return strings.Join(names, ", ")
}

func (p UploadPolicy) Describe() PolicyResponse {
	return PolicyResponse{
		AllowedTypes:   append([]string(nil), p.AllowedTypes...),
		MaxSize:        p.MaxSize,
		MaxSizeHuman:   humanize.IBytes(uint64(p.MaxSize)),
		TitleMaxLength: TitleMaxLength,
		ImageRequired:  p.RequireImage,
	}
}
