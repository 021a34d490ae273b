package image

import (
	"time"

	"imagegallery/internal/domain/auth"
)

// Image is the metadata half of an uploaded image; the bytes live in storage.Storage at FilePath.
type Image struct {
	ID          int64      `gorm:"column:id;primaryKey" json:"id"`
	UserID      int64      `gorm:"column:user_id;not null;index" json:"user_id"`
	Title       string     `gorm:"column:title;size:255;not null" json:"title"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	FilePath    string     `gorm:"column:file_path;size:512" json:"-"` // relative storage path
	MimeType    string     `gorm:"column:mime_type;size:100" json:"mime_type"`
	Size        int64      `gorm:"column:size" json:"size"`
	CreatedAt   time.Time  `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
	Owner       *auth.User `gorm:"foreignKey:UserID" json:"-"`

	URL string `gorm:"-" json:"url"` // public URL, filled by the service
}

func (Image) TableName() string { return "images" }

// ListFilter narrows List; a nil OwnerID lists everyone's images.
type ListFilter struct {
	OwnerID *int64
}
