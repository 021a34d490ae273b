package image

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"imagegallery/internal/pkg/validator"
	"imagegallery/internal/storage"
)

// Service keeps an image's stored file and its database record consistent.
//
// Binaries are written before records and removed before records, so a failure
// in between can leave an orphaned file but never a record without its file.
type Service struct {
	repo   Repository
	store  storage.Storage
	policy UploadPolicy
	logger *slog.Logger
}

func NewService(repo Repository, store storage.Storage, policy UploadPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		store:  store,
		policy: policy.withDefaults(),
		logger: logger.With("component", "image"),
	}
}

func (s *Service) Policy() UploadPolicy { return s.policy }

// Create stores the file (if any) and then the record owned by callerID.
func (s *Service) Create(ctx context.Context, callerID int64, in CreateInput, file *FileInput) (*Image, error) {
	if callerID <= 0 {
		return nil, ErrUnauthenticated
	}
	in = in.normalized()
	checked, err := s.validate(in, file, s.policy.RequireImage)
	if err != nil {
		return nil, err
	}

	img := &Image{
		UserID:      callerID,
		Title:       in.Title,
		Description: in.Description,
	}
	if file != nil {
		p, err := s.store.Store(ctx, file.Data, storedName(file.Filename, checked), checked.mimeType)
		if err != nil {
			return nil, &StorageError{Op: "store", Err: err}
		}
		img.FilePath = p
		img.MimeType = checked.mimeType
		img.Size = int64(len(file.Data))
	}

	if err := s.repo.Create(ctx, img); err != nil {
		s.removeOrphan(ctx, img.FilePath)
		return nil, fmt.Errorf("save image record: %w", err)
	}

	s.logger.Info("image created", "image_id", img.ID, "user_id", callerID, "path", img.FilePath)
	s.decorate(img)
	return img, nil
}

// Get returns an image for editing; only its owner may read it this way.
func (s *Service) Get(ctx context.Context, callerID, id int64) (*Image, error) {
	img, err := s.loadOwned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	s.decorate(img)
	return img, nil
}

// Update always rewrites title and description. With a new file the new binary
// is stored first, the record is pointed at it, and only then is the old binary removed.
func (s *Service) Update(ctx context.Context, callerID, id int64, in UpdateInput, file *FileInput) (*Image, error) {
	img, err := s.loadOwned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	in = in.normalized()
	checked, err := s.validate(in, file, false)
	if err != nil {
		return nil, err
	}

	img.Title = in.Title
	img.Description = in.Description

	if file == nil {
		if err := s.repo.Update(ctx, img); err != nil {
			return nil, fmt.Errorf("update image record: %w", err)
		}
		s.logger.Info("image metadata updated", "image_id", img.ID, "user_id", callerID)
		s.decorate(img)
		return img, nil
	}

	newPath, err := s.store.Store(ctx, file.Data, storedName(file.Filename, checked), checked.mimeType)
	if err != nil {
		return nil, &StorageError{Op: "store", Err: err}
	}

	oldPath := img.FilePath
	img.FilePath = newPath
	img.MimeType = checked.mimeType
	img.Size = int64(len(file.Data))

	if err := s.repo.Update(ctx, img); err != nil {
		s.removeOrphan(ctx, newPath)
		return nil, fmt.Errorf("update image record: %w", err)
	}

	if oldPath != "" {
		if err := s.store.Delete(ctx, oldPath); err != nil && !errors.Is(err, storage.ErrNotExist) {
			s.logger.Warn("old image file not removed", "image_id", img.ID, "path", oldPath, "error", err)
		}
	}

	s.logger.Info("image replaced", "image_id", img.ID, "user_id", callerID, "old_path", oldPath, "path", newPath)
	s.decorate(img)
	return img, nil
}

// Delete removes the binary, then the record. A binary that is already gone
// counts as removed; any other storage failure is logged and the record is
// deleted anyway.
func (s *Service) Delete(ctx context.Context, callerID, id int64) error {
	img, err := s.loadOwned(ctx, callerID, id)
	if err != nil {
		return err
	}

	if img.FilePath != "" {
		err := s.store.Delete(ctx, img.FilePath)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNotExist):
			s.logger.Debug("image file already absent", "image_id", img.ID, "path", img.FilePath)
		default:
			s.logger.Warn("image file not removed, deleting record anyway", "image_id", img.ID, "path", img.FilePath, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, img.ID); err != nil {
		return fmt.Errorf("delete image record: %w", err)
	}

	s.logger.Info("image deleted", "image_id", img.ID, "user_id", callerID)
	return nil
}

// List returns images newest first, optionally only one owner's.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Image, error) {
	images, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	for _, img := range images {
		s.decorate(img)
	}
	return images, nil
}

func (s *Service) loadOwned(ctx context.Context, callerID, id int64) (*Image, error) {
	if callerID <= 0 {
		return nil, ErrUnauthenticated
	}
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if img.UserID != callerID {
		return nil, ErrNotOwner
	}
	return img, nil
}

func (s *Service) validate(in CreateInput, file *FileInput, requireFile bool) (*checkedFile, error) {
	fields := validator.Validate(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if !utf8.ValidString(in.Title) {
		fields["title"] = "must be valid UTF-8 text"
	}
	if !utf8.ValidString(in.Description) {
		fields["description"] = "must be valid UTF-8 text"
	}

	var (
		checked  *checkedFile
		tooLarge bool
	)
	switch {
	case file != nil:
		var msg string
		checked, msg, tooLarge = s.policy.check(file)
		if msg != "" {
			fields["image"] = msg
		}
	case requireFile:
		fields["image"] = "is required"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields, tooLarge: tooLarge}
	}
	return checked, nil
}

func (s *Service) decorate(img *Image) {
	if img.FilePath != "" {
		img.URL = s.store.URL(img.FilePath)
	}
}

func (s *Service) removeOrphan(ctx context.Context, p string) {
	if p == "" {
		return
	}
	// the request context may be what failed; cleanup still has to run
	if err := s.store.Delete(context.WithoutCancel(ctx), p); err != nil && !errors.Is(err, storage.ErrNotExist) {
		s.logger.Warn("orphaned image file left in storage", "path", p, "error", err)
	}
}

// storedName keeps the client's base name for readability but uses the detected extension.
func storedName(filename string, checked *checkedFile) string {
	return storage.SanitizeName(filename) + checked.ext
}
