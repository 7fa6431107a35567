package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Ning0612/drivesync/internal/adapter"
	"github.com/Ning0612/drivesync/internal/core/checksum"
	"github.com/Ning0612/drivesync/internal/domain"
)

// Options configures a local adapter
type Options struct {
	// TrashDir is the folder, relative to root, whose files are reported as trashed
	TrashDir string

	// Algorithm used to checksum file content (default md5)
	Algorithm checksum.Algorithm

	Checksum checksum.Options
}

// Adapter implements the adapter.Adapter interface over an afero filesystem.
// Folder IDs are slash-separated paths relative to root ("" is root itself).
type Adapter struct {
	fs    afero.Fs
	root  string
	trash string
	algo  checksum.Algorithm
	calc  checksum.Calculator
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new adapter over the OS filesystem
func New(root string, opts Options) (*Adapter, error) {
	return NewWithFs(afero.NewOsFs(), root, opts)
}

// NewWithFs creates a new adapter over the given filesystem
// root must name an existing directory
func NewWithFs(fs afero.Fs, root string, opts Options) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := fs.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	algo := opts.Algorithm
	if algo == "" {
		algo = checksum.MD5
	}
	if !checksum.IsSupported(algo) {
		return nil, fmt.Errorf("%w: unsupported checksum algorithm %q", domain.ErrConfigInvalid, algo)
	}

	copts := opts.Checksum
	if copts == (checksum.Options{}) {
		copts = checksum.DefaultOptions()
	}

	trash := strings.Trim(path.Clean("/"+filepath.ToSlash(opts.TrashDir)), "/")

	return &Adapter{
		fs:    fs,
		root:  absRoot,
		trash: trash,
		algo:  algo,
		calc:  checksum.NewCalculator(copts),
	}, nil
}

// resolvePath safely resolves a relative path to absolute path within root
// Returns error if path attempts to escape root directory
func (a *Adapter) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return a.root, nil
	}

	relPath = filepath.Clean(filepath.FromSlash(relPath))

	// Reject absolute paths
	if filepath.IsAbs(relPath) {
		return "", domain.ErrPermissionDenied
	}

	fullPath := filepath.Join(a.root, relPath)

	// filepath.Rel handles root="/data" vs fullPath="/data2"
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil {
		return "", domain.ErrPermissionDenied
	}
	if strings.HasPrefix(rel, "..") {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// relative converts a resolved path back to a slash-separated folder-relative path
func (a *Adapter) relative(fullPath string) string {
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (a *Adapter) inTrash(rel string) bool {
	if a.trash == "" {
		return false
	}
	return rel == a.trash || strings.HasPrefix(rel, a.trash+"/")
}

// SearchByChecksum walks scope and checksums every regular file
func (a *Adapter) SearchByChecksum(ctx context.Context, scope string, sums []string) ([]domain.Entity, error) {
	wanted := adapter.Wanted(sums)
	if len(wanted) == 0 {
		return nil, nil
	}

	start, err := a.resolvePath(scope)
	if err != nil {
		return nil, err
	}
	if _, err := a.fs.Stat(start); err != nil {
		return nil, a.mapError(err)
	}

	var result []domain.Entity
	err = afero.Walk(a.fs, start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip entries we can't read
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		sum, err := a.computeChecksum(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Too large or unreadable files cannot be copy sources
			return nil
		}
		if !wanted[sum] {
			return nil
		}

		rel := a.relative(p)
		folder := path.Dir(rel)
		if folder == "." {
			folder = ""
		}
		result = append(result, domain.Entity{
			FolderID: folder,
			Name:     path.Base(rel),
			Checksum: sum,
			Size:     info.Size(),
			Trashed:  a.inTrash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FolderPermission derives read/write access from the owner permission bits
func (a *Adapter) FolderPermission(ctx context.Context, folderID string) (domain.Permission, error) {
	fullPath, err := a.resolvePath(folderID)
	if err != nil {
		return domain.Permission{}, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return domain.Permission{}, a.mapError(err)
	}
	if !info.IsDir() {
		return domain.Permission{}, domain.ErrNotDirectory
	}

	perm := info.Mode().Perm()
	return domain.Permission{
		CanRead:  perm&0400 != 0,
		CanWrite: perm&0200 != 0,
	}, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, folderID, name string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(path.Join(folderID, name))
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := a.fs.Open(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}

	return file, nil
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// computeChecksum calculates the configured checksum of a file
func (a *Adapter) computeChecksum(ctx context.Context, fullPath string) (string, error) {
	file, err := a.fs.Open(fullPath)
	if err != nil {
		return "", a.mapError(err)
	}
	defer file.Close()

	return a.calc.Calculate(ctx, file, a.algo)
}

// mapError converts OS errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	if os.IsNotExist(err) {
		return domain.ErrNotFound
	}
	if os.IsPermission(err) {
		return domain.ErrPermissionDenied
	}
	if os.IsExist(err) {
		return domain.ErrAlreadyExists
	}

	return err
}
