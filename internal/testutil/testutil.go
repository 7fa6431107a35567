package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/drivesync/internal/domain"
)

// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return path
}

// Dir returns a directory version
func Dir(path, sum string) domain.DirectoryVersion {
	return domain.DirectoryVersion{Path: path, Checksum: sum}
}

// File returns a file version
func File(name, sum string) domain.FileVersion {
	return domain.FileVersion{Name: name, Checksum: sum}
}

// Cause builds a comparison that classifies as (client, server) for an action
// moving from v to nv. New on either side means there was no original version.
func Cause[V domain.Version](client, server domain.Change, v, nv *V) *domain.Comparison[V] {
	var original *V
	if client != domain.ChangeNew && server != domain.ChangeNew {
		original = v
		if original == nil {
			original = nv
		}
	}
	side := func(c domain.Change) *V {
		switch c {
		case domain.ChangeNone:
			return original
		case domain.ChangeDeleted:
			return nil
		default:
			return nv
		}
	}
	return &domain.Comparison[V]{Original: original, Client: side(client), Server: side(server)}
}

// Act builds an action of any kind caused by (client, server)
func Act[V domain.Version](kind domain.ActionKind, v, nv *V, client, server domain.Change) domain.Action[V] {
	return domain.NewAction(kind, v, nv, Cause(client, server, v, nv))
}

// Remove builds a remove of v
func Remove[V domain.Version](v V, client, server domain.Change) domain.Action[V] {
	return Act(domain.ActionRemove, &v, nil, client, server)
}

// Sync builds a sync creating nv
func Sync[V domain.Version](nv V, client, server domain.Change) domain.Action[V] {
	return Act(domain.ActionSync, nil, &nv, client, server)
}

// AckRemoved builds the acknowledge of a removed version, Acknowledge(v, nil)
func AckRemoved[V domain.Version](v V, client, server domain.Change) domain.Action[V] {
	return Act(domain.ActionAcknowledge, &v, nil, client, server)
}

// Upload builds a client upload from old (nil for new content) to nv
func Upload(old *domain.FileVersion, nv domain.FileVersion, client domain.Change) domain.Action[domain.FileVersion] {
	return Act(domain.ActionUpload, old, &nv, client, domain.ChangeNone)
}

// Download builds a download of nv
func Download[V domain.Version](old *V, nv V, client, server domain.Change) domain.Action[V] {
	return Act(domain.ActionDownload, old, &nv, client, server)
}

// Describe renders actions as strings for compact assertions
func Describe[V domain.Version](actions []domain.Action[V]) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}
