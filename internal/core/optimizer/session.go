package optimizer

import (
	"context"

	"github.com/Ning0612/drivesync/internal/core/checksum"
	"github.com/Ning0612/drivesync/internal/core/trace"
	"github.com/Ning0612/drivesync/internal/domain"
	"github.com/Ning0612/drivesync/internal/logger"
)

// DefaultMaxRenameRounds bounds the directory rename fixed point
const DefaultMaxRenameRounds = 100

// DefaultMetaFileName is the reserved name of the per-directory metadata file
const DefaultMetaFileName = ".drive-meta"

// ChecksumStore remembers where content with a given checksum was last seen
type ChecksumStore interface {
	// LookupByChecksums returns at most one candidate per known checksum
	LookupByChecksums(ctx context.Context, sums []string) (map[string]domain.ChecksumCandidate, error)

	// Invalidate forgets stale candidates
	Invalidate(ctx context.Context, candidates []domain.ChecksumCandidate) error
}

// Storage is the content search surface of a storage backend
type Storage interface {
	// SearchByChecksum finds files under scope whose content has one of sums
	SearchByChecksum(ctx context.Context, scope string, sums []string) ([]domain.Entity, error)

	// FolderPermission returns domain.ErrNotFound for a missing folder
	FolderPermission(ctx context.Context, folderID string) (domain.Permission, error)
}

// MetadataSource provides the payload of a metadata file
type MetadataSource interface {
	Content(ctx context.Context, v domain.FileVersion) ([]byte, error)
}

// Session carries everything one optimization cycle needs besides the plan itself.
// It is built per call and never shared between cycles.
type Session struct {
	Logger logger.Logger
	Tracer trace.Tracer

	// Mapper holds the complete version sets of the folder being synced
	Mapper *domain.VersionMapper

	// MetaMode enables the metadata file and the plain checksum fallback
	MetaMode     bool
	MetaFileName string

	// PlainChecksums maps a directory path to its checksum without the metadata file
	PlainChecksums map[string]string

	// EmptyChecksum is the checksum of empty content
	EmptyChecksum string

	Store   ChecksumStore
	Storage Storage

	// FolderID is the folder being synced
	FolderID string

	// RootScope is the content search scope ("" = storage root);
	// TrashScope is searched last and "" disables it
	RootScope  string
	TrashScope string

	InlineMetadata bool
	MetaSource     MetadataSource

	MaxRenameRounds int
}

// NewSession creates a session with defaults for everything optional
func NewSession(mapper *domain.VersionMapper) *Session {
	if mapper == nil {
		mapper = domain.NewVersionMapper(nil, nil, nil, nil)
	}
	return &Session{
		Logger:          &logger.NullLogger{},
		Tracer:          trace.NullTracer{},
		Mapper:          mapper,
		MetaFileName:    DefaultMetaFileName,
		EmptyChecksum:   checksum.Empty(checksum.MD5),
		MaxRenameRounds: DefaultMaxRenameRounds,
	}
}

func (s *Session) log() logger.Logger {
	if s.Logger == nil {
		return &logger.NullLogger{}
	}
	return s.Logger
}

func (s *Session) tracer() trace.Tracer {
	if s.Tracer == nil {
		return trace.NullTracer{}
	}
	return s.Tracer
}

func (s *Session) mapper() *domain.VersionMapper {
	if s.Mapper == nil {
		s.Mapper = domain.NewVersionMapper(nil, nil, nil, nil)
	}
	return s.Mapper
}

func (s *Session) maxRenameRounds() int {
	if s.MaxRenameRounds <= 0 {
		return DefaultMaxRenameRounds
	}
	return s.MaxRenameRounds
}

// metaName returns the metadata file name, or "" when metadata mode is off
func (s *Session) metaName() string {
	if !s.MetaMode {
		return ""
	}
	if s.MetaFileName == "" {
		return DefaultMetaFileName
	}
	return s.MetaFileName
}

// plainChecksum returns the plain checksum of a directory ("" if unknown)
func (s *Session) plainChecksum(path string) string {
	if !s.MetaMode || s.PlainChecksums == nil {
		return ""
	}
	return s.PlainChecksums[path]
}
