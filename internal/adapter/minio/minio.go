package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Ning0612/drivesync/internal/adapter"
	"github.com/Ning0612/drivesync/internal/domain"
)

// Config holds the connection settings of an S3-compatible object store
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// Prefix is the key prefix every folder ID is relative to
	Prefix string

	// TrashPrefix is the folder, relative to Prefix, whose objects are reported as trashed
	TrashPrefix string
}

// Adapter implements the adapter.Adapter interface for an object store.
// Folder IDs are key prefixes relative to Config.Prefix without a trailing slash.
// Single-part ETags are the MD5 of the object and serve as its checksum.
type Adapter struct {
	client *minio.Client
	bucket string
	prefix string
	trash  string
}

var _ adapter.Adapter = (*Adapter)(nil)

// New connects to the object store and checks the bucket exists
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: minio endpoint and bucket are required", domain.ErrConfigInvalid)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	a := &Adapter{
		client: client,
		bucket: cfg.Bucket,
		prefix: cleanPrefix(cfg.Prefix),
		trash:  cleanPrefix(cfg.TrashPrefix),
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, mapError(err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q: %w", cfg.Bucket, domain.ErrNotFound)
	}

	return a, nil
}

// cleanPrefix trims slashes so prefixes join with a single "/"
func cleanPrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// keyPrefix returns the listing prefix of a folder
func (a *Adapter) keyPrefix(folderID string) string {
	full := path.Join(a.prefix, cleanPrefix(folderID))
	if full == "" || full == "." {
		return ""
	}
	return full + "/"
}

// SearchByChecksum lists every object below scope and matches ETags
func (a *Adapter) SearchByChecksum(ctx context.Context, scope string, sums []string) ([]domain.Entity, error) {
	wanted := adapter.Wanted(sums)
	if len(wanted) == 0 {
		return nil, nil
	}

	var result []domain.Entity
	opts := minio.ListObjectsOptions{Prefix: a.keyPrefix(scope), Recursive: true}
	for obj := range a.client.ListObjects(ctx, a.bucket, opts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err)
		}
		if e, ok := a.entityFromObject(obj, wanted); ok {
			result = append(result, e)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// entityFromObject converts a listed object to an entity when its checksum is wanted
func (a *Adapter) entityFromObject(obj minio.ObjectInfo, wanted map[string]bool) (domain.Entity, bool) {
	if strings.HasSuffix(obj.Key, "/") {
		return domain.Entity{}, false
	}
	sum := etagChecksum(obj.ETag)
	if sum == "" || !wanted[sum] {
		return domain.Entity{}, false
	}

	rel := strings.TrimPrefix(obj.Key, a.keyPrefix(""))
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}

	return domain.Entity{
		FolderID: folder,
		Name:     path.Base(rel),
		Checksum: sum,
		Size:     obj.Size,
		Trashed:  a.trash != "" && (folder == a.trash || strings.HasPrefix(folder, a.trash+"/")),
	}, true
}

// etagChecksum returns the MD5 held in a single-part ETag ("" for multipart ETags)
func etagChecksum(etag string) string {
	etag = strings.ToLower(strings.Trim(etag, "\""))
	if len(etag) != 32 || strings.Contains(etag, "-") {
		return ""
	}
	return etag
}

// FolderPermission probes a folder by listing one key below it.
// Object stores have no folders: a prefix without objects is reported as missing.
// Listing access implies read access; write access is not probed and follows it.
func (a *Adapter) FolderPermission(ctx context.Context, folderID string) (domain.Permission, error) {
	prefix := a.keyPrefix(folderID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{Prefix: prefix, MaxKeys: 1}
	for obj := range a.client.ListObjects(ctx, a.bucket, opts) {
		if obj.Err != nil {
			return domain.Permission{}, mapError(obj.Err)
		}
		if obj.Key == strings.TrimSuffix(prefix, "/") {
			return domain.Permission{}, domain.ErrNotDirectory
		}
		return domain.Permission{CanRead: true, CanWrite: true}, nil
	}

	if prefix == "" {
		return domain.Permission{CanRead: true, CanWrite: true}, nil
	}
	return domain.Permission{}, domain.ErrNotFound
}

// Read opens an object for reading
func (a *Adapter) Read(ctx context.Context, folderID, name string) (io.ReadCloser, error) {
	key := a.keyPrefix(folderID) + name

	if _, err := a.client.StatObject(ctx, a.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, mapError(err)
	}

	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}
	return obj, nil
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

// mapError converts object store errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return domain.ErrNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return domain.ErrPermissionDenied
	case "RequestTimeout":
		return domain.ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrNetworkError, err)
	}

	return err
}
