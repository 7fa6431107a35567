package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Algorithm represents the hashing algorithm to use
type Algorithm string

const (
	// MD5 matches the checksums reported by Google Drive and S3 ETags (default)
	MD5 Algorithm = "md5"
	// SHA256 is used when every endpoint computes its own checksums
	SHA256 Algorithm = "sha256"
)

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	switch algo {
	case MD5, SHA256:
		return true
	default:
		return false
	}
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

// Empty returns the well-known checksum of empty content ("" for unsupported algorithms)
func Empty(algo Algorithm) string {
	h, err := newHash(algo)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Options configures the checksum calculator
type Options struct {
	// MaxSize: content larger than this is rejected (0 = unlimited)
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	BufferSize int
}

// DefaultOptions returns the recommended default options
func DefaultOptions() Options {
	return Options{
		MaxSize:    100 * 1024 * 1024, // 100MB
		BufferSize: 32 * 1024,
	}
}

// Calculator computes content checksums
type Calculator interface {
	Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error)
}

// DefaultCalculator implements Calculator with streaming support
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

// Calculate streams reader through the hasher, checking ctx between chunks
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	src := reader
	if c.opts.MaxSize > 0 {
		src = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, readErr := src.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("content size exceeds maximum (%d bytes)", c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read error: %w", readErr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateString is a convenience wrapper for in-memory content
func (c *DefaultCalculator) CalculateString(ctx context.Context, content string, algo Algorithm) (string, error) {
	return c.Calculate(ctx, strings.NewReader(content), algo)
}
