package domain

import "time"

// Entity is a file found in storage by a content search
type Entity struct {
	// FolderID identifies the folder holding the file
	FolderID string

	// Name is the file name within FolderID
	Name string

	Checksum string
	Size     int64
	Trashed  bool
}

// FileVersion returns the entity as a file version
func (e Entity) FileVersion() FileVersion {
	return FileVersion{Name: e.Name, Checksum: e.Checksum}
}

// Permission is what the current user may do in a folder
type Permission struct {
	CanRead  bool
	CanWrite bool
}

// ChecksumCandidate is a checksum store entry pointing at a previously seen file
type ChecksumCandidate struct {
	Checksum string
	FolderID string
	Name     string
	SeenAt   time.Time
}

// FileVersion returns the candidate as a file version
func (c ChecksumCandidate) FileVersion() FileVersion {
	return FileVersion{Name: c.Name, Checksum: c.Checksum}
}
