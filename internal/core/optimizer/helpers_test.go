package optimizer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Ning0612/drivesync/internal/domain"
	"github.com/Ning0612/drivesync/internal/logger"
	"github.com/Ning0612/drivesync/internal/testutil"
)

var (
	none     = domain.ChangeNone
	created  = domain.ChangeNew
	deleted  = domain.ChangeDeleted
	modified = domain.ChangeModified
)

type dirAction = domain.Action[domain.DirectoryVersion]

// recordingLogger keeps warnings for assertions
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(msg string, args ...any) {}
func (l *recordingLogger) Info(msg string, args ...any)  {}
func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(msg string, args ...any) {
	l.Warn(msg, args...)
}
func (l *recordingLogger) With(args ...any) logger.Logger { return l }
func (l *recordingLogger) Sync() error                    { return nil }
func (l *recordingLogger) Shutdown() error                { return nil }

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func assertActions[V domain.Version](t *testing.T, side string, got []domain.Action[V], want []string) {
	t.Helper()
	if diff := cmp.Diff(want, testutil.Describe(got)); diff != "" {
		t.Errorf("%s actions mismatch (-want +got):\n%s", side, diff)
	}
}

// fakeStore is an in-memory ChecksumStore
type fakeStore struct {
	candidates  map[string]domain.ChecksumCandidate
	err         error
	invalidated []domain.ChecksumCandidate
	lookups     int
}

func (f *fakeStore) LookupByChecksums(ctx context.Context, sums []string) (map[string]domain.ChecksumCandidate, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]domain.ChecksumCandidate)
	for _, sum := range sums {
		if c, ok := f.candidates[sum]; ok {
			result[sum] = c
		}
	}
	return result, nil
}

func (f *fakeStore) Invalidate(ctx context.Context, candidates []domain.ChecksumCandidate) error {
	f.invalidated = append(f.invalidated, candidates...)
	for _, c := range candidates {
		delete(f.candidates, c.Checksum)
	}
	return nil
}

// fakeStorage answers content searches per scope and permissions per folder
type fakeStorage struct {
	entities    map[string][]domain.Entity
	permissions map[string]error
	searchErr   error
	searches    []string
}

func (f *fakeStorage) SearchByChecksum(ctx context.Context, scope string, sums []string) ([]domain.Entity, error) {
	f.searches = append(f.searches, scope)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	wanted := make(map[string]bool)
	for _, s := range sums {
		wanted[s] = true
	}
	var result []domain.Entity
	for _, e := range f.entities[scope] {
		if wanted[e.Checksum] {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeStorage) FolderPermission(ctx context.Context, folderID string) (domain.Permission, error) {
	if err, ok := f.permissions[folderID]; ok {
		if err != nil {
			return domain.Permission{}, err
		}
	}
	return domain.Permission{CanRead: true, CanWrite: true}, nil
}

// fakeMeta serves metadata payloads
type fakeMeta struct {
	content []byte
	err     error
}

func (f fakeMeta) Content(ctx context.Context, v domain.FileVersion) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("%s:%s", f.content, v.Checksum)), nil
}
