package image

import (
	"strings"
	"time"
)

const TitleMaxLength = 255

// CreateInput is the metadata submitted with an upload.
type CreateInput struct {
	Title       string `form:"title" json:"title" validate:"required,max=255"`
	Description string `form:"description" json:"description"`
}

// UpdateInput has the same rules as CreateInput; every edit resubmits both fields.
type UpdateInput = CreateInput

func (in CreateInput) normalized() CreateInput {
	return CreateInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
	}
}

// FileInput is an uploaded file read into memory.
// Size is the declared size when the body was too large to buffer; zero means len(Data).
type FileInput struct {
	Filename string
	Data     []byte
	Size     int64
}

func (f *FileInput) size() int64 {
	if f.Size > int64(len(f.Data)) {
		return f.Size
	}
	return int64(len(f.Data))
}

type OwnerResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ImageResponse struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	MimeType    string         `json:"mime_type"`
	Size        int64          `json:"size"`
	UserID      int64          `json:"user_id"`
	Owner       *OwnerResponse `json:"owner,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func ToResponse(img *Image) ImageResponse {
	resp := ImageResponse{
		ID:          img.ID,
		Title:       img.Title,
		Description: img.Description,
		URL:         img.URL,
		MimeType:    img.MimeType,
		Size:        img.Size,
		UserID:      img.UserID,
		CreatedAt:   img.CreatedAt,
		UpdatedAt:   img.UpdatedAt,
	}
	if img.Owner != nil {
		resp.Owner = &OwnerResponse{ID: img.Owner.ID, Name: img.Owner.Name}
	}
	return resp
}

func ToResponses(images []*Image) []ImageResponse {
	out := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, ToResponse(img))
	}
	return out
}

// PolicyResponse backs the create form: what the client may upload.
type PolicyResponse struct {
	AllowedTypes   []string `json:"allowed_types"`
	MaxSize        int64    `json:"max_size"`
	MaxSizeHuman   string   `json:"max_size_human"`
	TitleMaxLength int      `json:"title_max_length"`
	ImageRequired  bool     `json:"image_required"`
}
