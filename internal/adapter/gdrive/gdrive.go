package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Ning0612/drivesync/internal/adapter"
	"github.com/Ning0612/drivesync/internal/domain"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of files to fetch per request
	PageSize = 100
	// TrashScope searches every trashed file the user owns
	TrashScope = "trash"
)

const fileFields = "nextPageToken, files(id, name, mimeType, size, md5Checksum, parents, trashed)"

// Adapter implements the adapter.Adapter interface for Google Drive.
// Folder IDs are Drive file IDs; the empty scope is the configured root folder.
type Adapter struct {
	service *drive.Service
	root    string   // Root folder path in Drive (e.g., "/drivesync/shared")
	rootID  string   // Cached root folder ID
	cache   *idCache // Cache for path -> ID mapping
}

var _ adapter.Adapter = (*Adapter)(nil)

// idCache caches folder ID lookups with thread-safe access
type idCache struct {
	mu    sync.RWMutex
	paths map[string]string // path -> folder ID
}

func newIDCache() *idCache {
	return &idCache{
		paths: make(map[string]string),
	}
}

func (c *idCache) get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.paths[path]
	return id, ok
}

func (c *idCache) set(path, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[path] = id
}

func (c *idCache) delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.paths, path)
}

// New creates a new Google Drive adapter from a stored token
func New(ctx context.Context, clientID, clientSecret, tokenPath, root string) (*Adapter, error) {
	auth := NewAuthenticator(clientID, clientSecret, tokenPath)

	token, err := auth.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	return NewWithToken(ctx, token, auth.Config(), root)
}

// NewWithToken creates a new adapter with an existing token
func NewWithToken(ctx context.Context, token *oauth2.Token, oauthConfig *oauth2.Config, root string) (*Adapter, error) {
	client := oauthConfig.Client(ctx, token)

	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	a := &Adapter{
		service: service,
		root:    normalizeRoot(root),
		cache:   newIDCache(),
	}

	rootID, err := a.getFileID(ctx, a.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root folder %q: %w", a.root, err)
	}
	a.rootID = rootID
	a.cache.set(a.root, rootID)

	return a, nil
}

// normalizeRoot normalizes the root path
func normalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "/" {
		return ""
	}
	// Ensure leading slash, no trailing slash
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return strings.TrimSuffix(root, "/")
}

// RootID returns the ID of the configured root folder
func (a *Adapter) RootID() string {
	return a.rootID
}

// ResolveFolder returns the ID of a folder given by its path below root
func (a *Adapter) ResolveFolder(ctx context.Context, relPath string) (string, error) {
	fullPath, err := a.joinPath(relPath)
	if err != nil {
		return "", err
	}
	return a.getFileID(ctx, fullPath)
}

// SearchByChecksum walks the folder tree below scope breadth-first and keeps the
// files whose md5Checksum is wanted. The Drive query language cannot filter on
// checksums, so matching happens on the listed metadata.
func (a *Adapter) SearchByChecksum(ctx context.Context, scope string, sums []string) ([]domain.Entity, error) {
	wanted := adapter.Wanted(sums)
	if len(wanted) == 0 {
		return nil, nil
	}

	if scope == TrashScope {
		return a.searchQuery(ctx, trashQuery(), wanted, nil)
	}

	start := scope
	if start == "" {
		start = a.rootID
	}

	var result []domain.Entity
	queue := []string{start}
	seen := map[string]bool{start: true}
	for len(queue) > 0 {
		folderID := queue[0]
		queue = queue[1:]

		found, err := a.searchQuery(ctx, childrenQuery(folderID), wanted, func(f *drive.File) {
			if f.MimeType == MimeTypeFolder && !seen[f.Id] {
				seen[f.Id] = true
				queue = append(queue, f.Id)
			}
		})
		if err != nil {
			return nil, err
		}
		result = append(result, found...)
	}

	return result, nil
}

// searchQuery pages through a files.list query; onFile sees every listed file
func (a *Adapter) searchQuery(ctx context.Context, query string, wanted map[string]bool, onFile func(*drive.File)) ([]domain.Entity, error) {
	var result []domain.Entity
	pageToken := ""

	for {
		call := a.service.Files.List().
			Q(query).
			PageSize(PageSize).
			Fields(fileFields)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			return nil, a.mapError(err)
		}

		for _, f := range fileList.Files {
			if onFile != nil {
				onFile(f)
			}
			if e, ok := entityFromDrive(f, wanted); ok {
				result = append(result, e)
			}
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

// FolderPermission reads the folder capabilities of the current user
func (a *Adapter) FolderPermission(ctx context.Context, folderID string) (domain.Permission, error) {
	if folderID == "" {
		folderID = a.rootID
	}

	file, err := a.service.Files.Get(folderID).
		Fields("id, mimeType, trashed, capabilities(canListChildren, canAddChildren)").
		Context(ctx).Do()
	if err != nil {
		return domain.Permission{}, a.mapError(err)
	}

	return permissionFromDrive(file)
}

// Read downloads a file by name from a folder
func (a *Adapter) Read(ctx context.Context, folderID, name string) (io.ReadCloser, error) {
	if folderID == "" {
		folderID = a.rootID
	}

	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQueryString(name), escapeQueryString(folderID))
	fileList, err := a.service.Files.List().
		Q(query).
		PageSize(1).
		Fields("files(id, mimeType)").
		Context(ctx).Do()
	if err != nil {
		return nil, a.mapError(err)
	}
	if len(fileList.Files) == 0 {
		return nil, domain.ErrNotFound
	}
	if fileList.Files[0].MimeType == MimeTypeFolder {
		return nil, domain.ErrNotFile
	}

	resp, err := a.service.Files.Get(fileList.Files[0].Id).Context(ctx).Download()
	if err != nil {
		return nil, a.mapError(err)
	}

	return resp.Body, nil
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// joinPath joins relative path with root and validates against path traversal
func (a *Adapter) joinPath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return a.root, nil
	}

	cleanPath := path.Clean(relPath)

	// Reject absolute paths
	if path.IsAbs(cleanPath) {
		return "", domain.ErrPermissionDenied
	}

	// Check for path traversal attempt
	if strings.HasPrefix(cleanPath, "..") {
		return "", domain.ErrPermissionDenied
	}

	fullPath := path.Join(a.root, cleanPath)

	// Verify the result is still under root (handles edge cases)
	if a.root != "" && !strings.HasPrefix(fullPath, a.root) {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

func childrenQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryString(folderID))
}

func trashQuery() string {
	return fmt.Sprintf("trashed = true and mimeType != '%s'", MimeTypeFolder)
}

// getFileID returns the ID of a folder at the given path without creating anything
func (a *Adapter) getFileID(ctx context.Context, fullPath string) (string, error) {
	// Check cache first
	if id, ok := a.cache.get(fullPath); ok {
		return id, nil
	}

	// Empty path means root of Drive
	if fullPath == "" {
		return "root", nil
	}

	parts := strings.Split(strings.TrimPrefix(fullPath, "/"), "/")
	currentID := "root"

	for i, part := range parts {
		if part == "" {
			continue
		}

		partialPath := "/" + strings.Join(parts[:i+1], "/")
		if id, ok := a.cache.get(partialPath); ok {
			currentID = id
			continue
		}

		// Escape single quotes to prevent query injection
		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
			escapeQueryString(part), currentID, MimeTypeFolder)
		fileList, err := a.service.Files.List().
			Q(query).
			PageSize(1).
			Fields("files(id)").
			Context(ctx).Do()
		if err != nil {
			return "", a.mapError(err)
		}

		if len(fileList.Files) == 0 {
			return "", domain.ErrNotFound
		}

		currentID = fileList.Files[0].Id
		a.cache.set(partialPath, currentID)
	}

	return currentID, nil
}

// entityFromDrive converts a listed Drive file to an entity when its checksum is wanted.
// Folders and Google Docs (no md5Checksum) never match.
func entityFromDrive(f *drive.File, wanted map[string]bool) (domain.Entity, bool) {
	if f == nil || f.MimeType == MimeTypeFolder || f.Md5Checksum == "" || !wanted[f.Md5Checksum] {
		return domain.Entity{}, false
	}

	folderID := ""
	if len(f.Parents) > 0 {
		folderID = f.Parents[0]
	}

	return domain.Entity{
		FolderID: folderID,
		Name:     f.Name,
		Checksum: f.Md5Checksum,
		Size:     f.Size,
		Trashed:  f.Trashed,
	}, true
}

// permissionFromDrive maps folder capabilities to a permission
func permissionFromDrive(f *drive.File) (domain.Permission, error) {
	if f.MimeType != MimeTypeFolder {
		return domain.Permission{}, domain.ErrNotDirectory
	}
	if f.Trashed {
		return domain.Permission{}, domain.ErrNotFound
	}
	if f.Capabilities == nil {
		return domain.Permission{}, nil
	}
	return domain.Permission{
		CanRead:  f.Capabilities.CanListChildren,
		CanWrite: f.Capabilities.CanAddChildren,
	}, nil
}

// mapError converts Google API errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return domain.ErrNotFound
		case 401, 403:
			return domain.ErrPermissionDenied
		case 409:
			return domain.ErrAlreadyExists
		case 429:
			return fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	// Fallback to string matching for non-googleapi errors
	if strings.Contains(err.Error(), "notFound") {
		return domain.ErrNotFound
	}

	return err
}
