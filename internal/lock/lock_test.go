package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeInfo(t *testing.T, path string, info LockInfo) {
	t.Helper()
	data, _ := json.Marshal(info)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write lock file: %v", err)
	}
}

func TestLockFileName(t *testing.T) {
	tests := []struct {
		folder   string
		expected string
	}{
		{"docs", ".drivesync-docs.lock"},
		{"team/shared docs", ".drivesync-team_shared_docs.lock"},
		{"", ".drivesync-_.lock"},
	}
	for _, tt := range tests {
		if got := LockFileName(tt.folder); got != tt.expected {
			t.Errorf("LockFileName(%q) = %q, want %q", tt.folder, got, tt.expected)
		}
	}
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := New(dir, "docs")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(l.lockPath); os.IsNotExist(err) {
		t.Error("lock file does not exist after acquire")
	}
	if !l.IsLocked() {
		t.Error("lock should be held")
	}

	holder, err := l.Holder()
	if err != nil {
		t.Fatalf("Holder failed: %v", err)
	}
	if holder.PID != os.Getpid() || holder.Folder != "docs" {
		t.Errorf("Expected holder to be this process for docs, got %+v", holder)
	}

	// Re-acquiring from the same instance is a no-op
	if err := l.Acquire(); err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(l.lockPath); !os.IsNotExist(err) {
		t.Error("lock file still exists after release")
	}
	if l.IsLocked() {
		t.Error("lock should not be held after release")
	}

	// Releasing twice is fine
	if err := l.Release(); err != nil {
		t.Errorf("Second release failed: %v", err)
	}
}

func TestAcquire_HeldByOtherInstance(t *testing.T) {
	dir := t.TempDir()

	first, _ := New(dir, "docs")
	second, _ := New(dir, "docs")
	other, _ := New(dir, "photos")

	if err := first.Acquire(); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	defer first.Release()

	err := second.Acquire()
	if err == nil {
		t.Fatal("Expected second instance to be refused")
	}
	if !IsLockError(err) {
		t.Errorf("Expected LockError, got %T: %v", err, err)
	}
	if !IsLockError(fmt.Errorf("wrapped: %w", err)) {
		t.Error("Expected wrapped LockError to be detected")
	}

	if err := other.Acquire(); err != nil {
		t.Errorf("Expected a different folder to lock independently, got %v", err)
	}
	other.Release()
}

func TestAcquire_StaleLock(t *testing.T) {
	dir := t.TempDir()
	hostname, _ := os.Hostname()
	path := filepath.Join(dir, LockFileName("docs"))

	// A PID that cannot exist on this host
	writeInfo(t, path, LockInfo{PID: 1 << 30, Hostname: hostname, StartTime: time.Now(), Folder: "docs"})

	l, _ := New(dir, "docs")
	if l.IsLocked() {
		t.Error("Expected dead holder to be stale")
	}
	if err := l.Acquire(); err != nil {
		t.Fatalf("Expected stale lock to be taken over, got %v", err)
	}
	l.Release()
}

func TestAcquire_ForeignHostTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName("docs"))

	writeInfo(t, path, LockInfo{PID: 1, Hostname: "elsewhere", StartTime: time.Now().Add(-time.Hour), Folder: "docs"})

	l, _ := New(dir, "docs")
	l.SetStaleTimeout(2 * time.Hour)
	if err := l.Acquire(); !IsLockError(err) {
		t.Fatalf("Expected foreign lock within timeout to hold, got %v", err)
	}

	l.SetStaleTimeout(time.Minute)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Expected timed out foreign lock to be taken over, got %v", err)
	}
	l.Release()
}

func TestRelease_Stolen(t *testing.T) {
	dir := t.TempDir()
	l, _ := New(dir, "docs")

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	writeInfo(t, l.lockPath, LockInfo{PID: 1, Hostname: "elsewhere", StartTime: time.Now(), Folder: "docs"})

	if err := l.Release(); err == nil {
		t.Error("Expected error when lock was stolen")
	}
}

func TestForceRelease(t *testing.T) {
	dir := t.TempDir()
	first, _ := New(dir, "docs")
	first.Acquire()

	second, _ := New(dir, "docs")
	if err := second.ForceRelease(); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	if second.IsLocked() {
		t.Error("Expected no lock after force release")
	}
}

func TestNew_EmptyDir(t *testing.T) {
	if _, err := New("", "docs"); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestPidAlive(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		want bool
	}{
		{"current process", os.Getpid(), true},
		{"zero pid", 0, false},
		{"negative pid", -1, false},
		{"unused pid", 1 << 30, false},
	}

	for _, tt := range tests {
		if got := pidAlive(tt.pid); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestAcquire_ZeroPidIsStale(t *testing.T) {
	dir := t.TempDir()
	hostname, _ := os.Hostname()
	writeInfo(t, filepath.Join(dir, LockFileName("docs")), LockInfo{Hostname: hostname, StartTime: time.Now(), Folder: "docs"})

	l, _ := New(dir, "docs")
	if err := l.Acquire(); err != nil {
		t.Fatalf("Expected lock without a holder pid to be taken over, got %v", err)
	}
	l.Release()
}
