package server

import (
	"context"
	"fmt"

	"imagegallery/internal/config"
	"imagegallery/internal/storage"
)

// OpenStorage returns the backend selected by STORAGE_DRIVER.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal, "":
		local, err := storage.NewLocal(cfg.Dir, cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		return local, nil
	case config.StorageDriverMinIO:
		m, err := storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Prefix:    cfg.MinIOPrefix,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
