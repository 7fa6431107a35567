package checksum

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Ning0612/drivesync/internal/domain"
)

func TestCalculate_KnownVectors(t *testing.T) {
	calc := NewDefaultCalculator()
	ctx := context.Background()

	tests := []struct {
		algo  Algorithm
		input string
		want  string
	}{
		{MD5, "hello world", "5eb63bbbe01eeed093cb22bb8f5acdc3"},
		{SHA256, "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{MD5, "", "d41d8cd98f00b204e9800998ecf8427e"},
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	for _, tt := range tests {
		got, err := calc.Calculate(ctx, strings.NewReader(tt.input), tt.algo)
		if err != nil {
			t.Fatalf("%s(%q): Calculate failed: %v", tt.algo, tt.input, err)
		}
		if got != tt.want {
			t.Errorf("%s(%q) mismatch: got %s, want %s", tt.algo, tt.input, got, tt.want)
		}
	}
}

func TestEmpty(t *testing.T) {
	if got := Empty(MD5); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Expected md5 empty checksum, got %s", got)
	}
	if got := Empty(SHA256); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Expected sha256 empty checksum, got %s", got)
	}
	if got := Empty("crc32"); got != "" {
		t.Errorf("Expected empty string for unsupported algorithm, got %s", got)
	}
}

func TestCalculate_MaxSize(t *testing.T) {
	calc := NewCalculator(Options{MaxSize: 10, BufferSize: 4})
	ctx := context.Background()

	if _, err := calc.CalculateString(ctx, "0123456789", MD5); err != nil {
		t.Errorf("Expected content at the limit to pass, got %v", err)
	}
	if _, err := calc.CalculateString(ctx, "0123456789A", MD5); err == nil {
		t.Error("Expected error for content above the limit")
	}
}

func TestCalculate_Cancelled(t *testing.T) {
	calc := NewDefaultCalculator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.CalculateString(ctx, "data", MD5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCalculate_UnsupportedAlgorithm(t *testing.T) {
	calc := NewDefaultCalculator()
	if _, err := calc.CalculateString(context.Background(), "data", "crc32"); err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
	if IsSupported("crc32") {
		t.Error("Expected crc32 to be unsupported")
	}
	if !IsSupported(MD5) || !IsSupported(SHA256) {
		t.Error("Expected md5 and sha256 to be supported")
	}
}

func TestCalculate_LargeStream(t *testing.T) {
	calc := NewCalculator(Options{BufferSize: 7})
	ctx := context.Background()

	content := strings.Repeat("abcdefghij", 1000)
	streamed, err := calc.CalculateString(ctx, content, SHA256)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	whole, err := NewDefaultCalculator().CalculateString(ctx, content, SHA256)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if streamed != whole {
		t.Errorf("Expected buffer size not to change result: %s != %s", streamed, whole)
	}
}

func TestDirectoryHasher_OrderIndependent(t *testing.T) {
	h, err := NewDirectoryHasher(MD5, ".drive-meta")
	if err != nil {
		t.Fatalf("NewDirectoryHasher failed: %v", err)
	}
	ctx := context.Background()

	a := []domain.FileVersion{{Name: "a.txt", Checksum: "h1"}, {Name: "b.txt", Checksum: "h2"}}
	b := []domain.FileVersion{{Name: "b.txt", Checksum: "h2"}, {Name: "a.txt", Checksum: "h1"}}

	sumA, err := h.Checksum(ctx, a)
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	sumB, _ := h.Checksum(ctx, b)
	if sumA != sumB {
		t.Errorf("Expected listing order not to matter: %s != %s", sumA, sumB)
	}

	changed, _ := h.Checksum(ctx, []domain.FileVersion{{Name: "a.txt", Checksum: "h1"}, {Name: "b.txt", Checksum: "h3"}})
	if changed == sumA {
		t.Error("Expected child checksum change to change directory checksum")
	}
}

func TestDirectoryHasher_PlainExcludesMeta(t *testing.T) {
	h, _ := NewDirectoryHasher(MD5, ".drive-meta")
	ctx := context.Background()

	files := []domain.FileVersion{{Name: "a.txt", Checksum: "h1"}}
	withMeta := append([]domain.FileVersion{{Name: ".drive-meta", Checksum: "m1"}}, files...)

	full, _ := h.Checksum(ctx, withMeta)
	plain, _ := h.Plain(ctx, withMeta)
	bare, _ := h.Checksum(ctx, files)

	if plain != bare {
		t.Errorf("Expected plain checksum to ignore meta file: %s != %s", plain, bare)
	}
	if full == plain {
		t.Error("Expected full checksum to include meta file")
	}

	empty, _ := h.Plain(ctx, nil)
	if empty != Empty(MD5) {
		t.Errorf("Expected empty directory to hash like empty content, got %s", empty)
	}
}

func TestDirectoryHasher_PlainAll(t *testing.T) {
	h, _ := NewDirectoryHasher(SHA256, ".drive-meta")
	contents := map[string][]domain.FileVersion{
		"/a": {{Name: "x", Checksum: "1"}},
		"/b": nil,
	}

	sums, err := h.PlainAll(context.Background(), contents)
	if err != nil {
		t.Fatalf("PlainAll failed: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("Expected 2 checksums, got %d", len(sums))
	}
	if sums["/b"] != Empty(SHA256) {
		t.Errorf("Expected empty checksum for /b, got %s", sums["/b"])
	}

	if _, err := NewDirectoryHasher("crc32", ""); err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
}
