package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/drivesync/internal/domain"
)

// Adapter defines the read-only surface a storage backend offers to the optimizer.
// Folder IDs and scopes are backend specific: relative paths for local and
// object stores, Drive folder IDs for Google Drive.
// All implementations return domain-level errors for consistent error handling.
type Adapter interface {
	// SearchByChecksum finds files below scope whose content has one of sums
	// Results for a checksum that was not asked for are never returned
	SearchByChecksum(ctx context.Context, scope string, sums []string) ([]domain.Entity, error)

	// FolderPermission returns what the current user may do in a folder
	// Returns domain.ErrNotFound if the folder doesn't exist
	// Returns domain.ErrNotDirectory if folderID names a file
	FolderPermission(ctx context.Context, folderID string) (domain.Permission, error)

	// Read opens a file in a folder for reading
	// Caller is responsible for closing the reader
	// Returns domain.ErrNotFound if file doesn't exist
	Read(ctx context.Context, folderID, name string) (io.ReadCloser, error)

	// Close releases any resources held by the adapter
	Close() error
}

// Wanted turns a checksum list into a lookup set, skipping empty checksums
func Wanted(sums []string) map[string]bool {
	wanted := make(map[string]bool, len(sums))
	for _, s := range sums {
		if s != "" {
			wanted[s] = true
		}
	}
	return wanted
}
