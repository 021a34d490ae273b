package image

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, img *Image) error
	GetByID(ctx context.Context, id int64) (*Image, error)
	Update(ctx context.Context, img *Image) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]*Image, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, img *Image) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(img).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Image, error) {
	var img Image
	err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Update writes an explicit column list; user_id and created_at are never touched.
func (r *repository) Update(ctx context.Context, img *Image) error {
	res := r.db.WithContext(ctx).
		Model(img).
		Select("title", "description", "file_path", "mime_type", "size", "updated_at").
		Updates(img)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Image{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Image, error) {
	q := r.db.WithContext(ctx).Preload("Owner")
	if filter.OwnerID != nil {
		q = q.Where("user_id = ?", *filter.OwnerID)
	}
	var images []*Image
	err := q.Order("created_at DESC").Order("id DESC").Find(&images).Error
	return images, err
}
