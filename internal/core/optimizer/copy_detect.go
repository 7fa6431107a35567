package optimizer

import (
	"context"
	"errors"

	"github.com/Ning0612/drivesync/internal/core/match"
	"github.com/Ning0612/drivesync/internal/domain"
)

// copySource is an existing server file a copy can be made from
type copySource struct {
	version domain.FileVersion
	folder  string
	origin  string
}

// DetectCopies replaces client uploads of content the server already holds with
// a server-side copy. Sources are searched in order: the folder's own files, the
// checksum store, a content search of the root scope, then the trash.
// Lookup failures are logged and count as "no match".
func DetectCopies(ctx context.Context, s *Session, plan domain.FilePlan) domain.FilePlan {
	meta := s.metaName()
	client := domain.CloneActions(plan.ForClient)

	var uploads []int
	for i, a := range client {
		if !isClientUpload(a) || a.NewVersion.Checksum == "" || a.NewVersion.Checksum == s.EmptyChecksum ||
			match.IsDriveMeta(a.NewVersion, meta) {
			continue
		}
		uploads = append(uploads, i)
	}
	if len(uploads) == 0 {
		return plan
	}

	sources := make(map[int]copySource, len(uploads))
	var missing []string
	seen := make(map[string]bool)
	for _, i := range uploads {
		target := client[i].NewVersion
		if src, ok := s.findInFolder(*target); ok {
			sources[i] = src
			continue
		}
		if !seen[target.Checksum] {
			seen[target.Checksum] = true
			missing = append(missing, target.Checksum)
		}
	}

	external := make(map[string]copySource)
	if len(missing) > 0 {
		missing = s.findInStore(ctx, missing, external)
	}
	if len(missing) > 0 {
		missing = s.findInStorage(ctx, s.RootScope, missing, external, "search")
	}
	if len(missing) > 0 && s.TrashScope != "" {
		s.findInStorage(ctx, s.TrashScope, missing, external, "trash")
	}

	server := domain.CloneActions(plan.ForServer)
	for _, i := range uploads {
		upload := client[i]
		src, ok := sources[i]
		if !ok {
			src, ok = external[upload.NewVersion.Checksum]
		}
		if !ok {
			continue
		}

		download := domain.NewAction(domain.ActionDownload, copyOf(upload.Version), copyOf(upload.NewVersion), upload.Comparison)
		download.Params.SourceVersion = domain.Ptr(src.version)
		download.Params.SourceFolder = src.folder
		server = append(server, download)
		client[i] = acknowledgeAfter(upload, download)

		s.log().Debug("server-side copy detected",
			"file", upload.NewVersion.Name, "source", src.version.Name, "folder", src.folder, "origin", src.origin)
	}

	return domain.FilePlan{ForServer: server, ForClient: client}
}

// findInFolder looks for another server file of the synced folder with the same content
func (s *Session) findInFolder(target domain.FileVersion) (copySource, bool) {
	meta := s.metaName()
	for _, f := range s.mapper().ServerFilesBySum(target.Checksum) {
		if f.Name == target.Name || (meta != "" && f.Name == meta) {
			continue
		}
		return copySource{version: f, origin: "folder"}, true
	}
	return copySource{}, false
}

// findInStore resolves sums through the checksum store. Every candidate folder
// is re-checked in storage, so the store is skipped without a storage backend.
// Candidates whose folder is gone or unreadable for another reason than
// permissions are invalidated. It returns the sums still unresolved.
func (s *Session) findInStore(ctx context.Context, sums []string, found map[string]copySource) []string {
	if s.Store == nil || s.Storage == nil {
		return sums
	}
	candidates, err := s.Store.LookupByChecksums(ctx, sums)
	if err != nil {
		s.log().Warn("checksum store lookup failed", "error", err)
		return sums
	}

	meta := s.metaName()
	var stale []domain.ChecksumCandidate
	for _, sum := range sums {
		c, ok := candidates[sum]
		if !ok || (meta != "" && c.Name == meta) {
			continue
		}
		perm, err := s.Storage.FolderPermission(ctx, c.FolderID)
		switch {
		case errors.Is(err, domain.ErrPermissionDenied):
			continue
		case err != nil:
			s.log().Warn("stale checksum candidate", "folder", c.FolderID, "file", c.Name, "error", err)
			stale = append(stale, c)
			continue
		case !perm.CanRead:
			continue
		}
		found[sum] = copySource{version: c.FileVersion(), folder: c.FolderID, origin: "store"}
	}

	if len(stale) > 0 {
		if err := s.Store.Invalidate(ctx, stale); err != nil {
			s.log().Warn("failed to invalidate stale checksum candidates", "count", len(stale), "error", err)
		}
	}
	return unresolved(sums, found)
}

// findInStorage runs a content search in scope and returns the sums still unresolved
func (s *Session) findInStorage(ctx context.Context, scope string, sums []string, found map[string]copySource, origin string) []string {
	if s.Storage == nil {
		return sums
	}
	entities, err := s.Storage.SearchByChecksum(ctx, scope, sums)
	if err != nil {
		s.log().Warn("storage content search failed", "scope", scope, "error", err)
		return sums
	}

	wanted := make(map[string]bool, len(sums))
	for _, sum := range sums {
		wanted[sum] = true
	}
	meta := s.metaName()
	for _, e := range entities {
		if _, done := found[e.Checksum]; done || !wanted[e.Checksum] || (meta != "" && e.Name == meta) {
			continue
		}
		if e.Trashed && origin != "trash" {
			continue
		}
		found[e.Checksum] = copySource{version: e.FileVersion(), folder: e.FolderID, origin: origin}
	}
	return unresolved(sums, found)
}

func unresolved(sums []string, found map[string]copySource) []string {
	var rest []string
	for _, sum := range sums {
		if _, ok := found[sum]; !ok {
			rest = append(rest, sum)
		}
	}
	return rest
}
