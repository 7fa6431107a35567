package checksum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Ning0612/drivesync/internal/domain"
)

// DirectoryHasher derives a directory checksum from its direct children.
//
// The manifest is one "name\tchecksum\n" line per child, sorted by name, so the
// checksum does not depend on listing order. The metadata file takes part in the
// full checksum; the "plain" checksum leaves it out, which is what a client
// computes before its local metadata mirrors the server's.
type DirectoryHasher struct {
	Algorithm Algorithm
	MetaName  string
	calc      Calculator
}

// NewDirectoryHasher creates a hasher for the given algorithm and metadata file name
func NewDirectoryHasher(algo Algorithm, metaName string) (*DirectoryHasher, error) {
	if !IsSupported(algo) {
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
	return &DirectoryHasher{
		Algorithm: algo,
		MetaName:  metaName,
		calc:      NewCalculator(Options{}),
	}, nil
}

// Checksum returns the directory checksum including the metadata file
func (d *DirectoryHasher) Checksum(ctx context.Context, children []domain.FileVersion) (string, error) {
	return d.hash(ctx, children, true)
}

// Plain returns the directory checksum computed without the metadata file
func (d *DirectoryHasher) Plain(ctx context.Context, children []domain.FileVersion) (string, error) {
	return d.hash(ctx, children, false)
}

// PlainAll computes plain checksums for every directory in contents
func (d *DirectoryHasher) PlainAll(ctx context.Context, contents map[string][]domain.FileVersion) (map[string]string, error) {
	result := make(map[string]string, len(contents))
	for dir, children := range contents {
		sum, err := d.Plain(ctx, children)
		if err != nil {
			return nil, fmt.Errorf("directory %s: %w", dir, err)
		}
		result[dir] = sum
	}
	return result, nil
}

func (d *DirectoryHasher) hash(ctx context.Context, children []domain.FileVersion, includeMeta bool) (string, error) {
	lines := make([]string, 0, len(children))
	for _, child := range children {
		if !includeMeta && d.MetaName != "" && child.Name == d.MetaName {
			continue
		}
		lines = append(lines, child.Name+"\t"+child.Checksum+"\n")
	}
	sort.Strings(lines)
	return d.calc.Calculate(ctx, strings.NewReader(strings.Join(lines, "")), d.Algorithm)
}
