package service

import (
	"context"
	"fmt"
	"io"

	"github.com/Ning0612/drivesync/internal/adapter"
	"github.com/Ning0612/drivesync/internal/adapter/gdrive"
	"github.com/Ning0612/drivesync/internal/adapter/local"
	"github.com/Ning0612/drivesync/internal/adapter/minio"
	"github.com/Ning0612/drivesync/internal/config"
	"github.com/Ning0612/drivesync/internal/domain"
)

// StorageFactory opens the storage backend described by cfg.
// It returns a nil adapter when no backend is configured.
type StorageFactory func(ctx context.Context, cfg *config.Config) (adapter.Adapter, error)

// OpenStorage is the default StorageFactory
func OpenStorage(ctx context.Context, cfg *config.Config) (adapter.Adapter, error) {
	sc := cfg.Storage
	switch sc.Type {
	case config.StorageNone, "":
		return nil, nil
	case config.StorageLocal:
		a, err := local.New(sc.Root, local.Options{
			TrashDir:  sc.Trash,
			Algorithm: cfg.ChecksumAlgorithm(),
			Checksum:  cfg.ChecksumOptions(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create local adapter for %s: %w", sc.Root, err)
		}
		return a, nil
	case config.StorageGDrive:
		if sc.GDrive.ClientID == "" || sc.GDrive.ClientSecret == "" {
			return nil, fmt.Errorf("%w: gdrive storage requires client_id and client_secret", domain.ErrConfigInvalid)
		}
		a, err := gdrive.New(ctx, sc.GDrive.ClientID, sc.GDrive.ClientSecret, sc.GDrive.TokenPath, sc.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to create gdrive adapter: %w", err)
		}
		return a, nil
	case config.StorageMinio:
		a, err := minio.New(ctx, minio.Config{
			Endpoint:    sc.Minio.Endpoint,
			AccessKey:   sc.Minio.AccessKey,
			SecretKey:   sc.Minio.SecretKey,
			Bucket:      sc.Minio.Bucket,
			UseSSL:      sc.Minio.UseSSL,
			Prefix:      sc.Root,
			TrashPrefix: sc.Trash,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio adapter: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage type: %s", domain.ErrConfigInvalid, sc.Type)
	}
}

// metaSource reads metadata files of the folder being synced from storage
type metaSource struct {
	storage  adapter.Adapter
	folderID string
	maxSize  int64
}

func (m *metaSource) Content(ctx context.Context, v domain.FileVersion) ([]byte, error) {
	rc, err := m.storage.Read(ctx, m.folderID, v.Name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := io.Reader(rc)
	if m.maxSize > 0 {
		r = io.LimitReader(rc, m.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", v.Name, err)
	}
	if m.maxSize > 0 && int64(len(data)) > m.maxSize {
		return nil, fmt.Errorf("metadata file %s exceeds %d bytes", v.Name, m.maxSize)
	}
	return data, nil
}
