package domain

import "strings"

// Version is a tagged identity for a syncable entity.
// Key is the identity field (path for directories, name for files) and
// Sum is the content checksum. An empty checksum means "absent".
type Version interface {
	comparable
	Key() string
	Sum() string
}

// DirectoryVersion identifies a directory by its absolute path within the sync root
type DirectoryVersion struct {
	// Path uses forward slashes and a leading "/"
	Path string

	// Checksum is the directory checksum (empty when unknown)
	Checksum string
}

// Key returns the directory path
func (d DirectoryVersion) Key() string { return d.Path }

// Sum returns the directory checksum
func (d DirectoryVersion) Sum() string { return d.Checksum }

// Name returns the last path segment
func (d DirectoryVersion) Name() string {
	trimmed := strings.TrimSuffix(d.Path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// IsDescendantOf reports whether d lies strictly below the given directory path
func (d DirectoryVersion) IsDescendantOf(parent string) bool {
	return IsDescendantPath(d.Path, parent)
}

// Rebase moves d from below oldParent to below newParent.
// The version is returned unchanged when it is not a strict descendant of oldParent.
func (d DirectoryVersion) Rebase(oldParent, newParent string) DirectoryVersion {
	if !d.IsDescendantOf(oldParent) {
		return d
	}
	rest := strings.TrimPrefix(d.Path, ChildPrefix(oldParent))
	return DirectoryVersion{Path: ChildPrefix(newParent) + rest, Checksum: d.Checksum}
}

// FileVersion identifies a file by name within the folder being synced
type FileVersion struct {
	Name     string
	Checksum string
}

// Key returns the file name
func (f FileVersion) Key() string { return f.Name }

// Sum returns the file checksum
func (f FileVersion) Sum() string { return f.Checksum }

// ChildPrefix returns the prefix shared by every strict descendant of dir
func ChildPrefix(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// IsDescendantPath reports whether path is strictly below dir
func IsDescendantPath(path, dir string) bool {
	prefix := ChildPrefix(dir)
	return len(path) > len(prefix) && strings.HasPrefix(path, prefix)
}

// Ptr returns a pointer to a copy of v
func Ptr[V Version](v V) *V {
	return &v
}
