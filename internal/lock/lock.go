package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// DefaultStaleTimeout is the duration after which a lock held on another host is considered stale
const DefaultStaleTimeout = 30 * time.Minute

// LockInfo contains metadata about the lock holder
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Folder    string    `json:"folder"`
}

// FolderLock keeps two optimization cycles of the same folder from running at once
type FolderLock struct {
	lockPath     string
	folder       string
	staleTimeout time.Duration
	info         *LockInfo
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LockFileName returns the lock file name of a folder
func LockFileName(folder string) string {
	name := unsafeChars.ReplaceAllString(folder, "_")
	if name == "" {
		name = "_"
	}
	return ".drivesync-" + name + ".lock"
}

// New creates a lock for folder inside dataDir
func New(dataDir, folder string) (*FolderLock, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("lock directory cannot be empty")
	}

	// Ensure lock directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &FolderLock{
		lockPath:     filepath.Join(dataDir, LockFileName(folder)),
		folder:       folder,
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// SetStaleTimeout sets the duration after which a foreign-host lock is considered stale
func (l *FolderLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire attempts to acquire the lock
// Returns a *LockError if the lock is held by another process
func (l *FolderLock) Acquire() error {
	existingInfo, err := l.readLockInfo()
	if err == nil {
		switch {
		case l.isHeldByThisInstance(existingInfo):
			return nil
		case l.isStale(existingInfo):
			if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove stale lock: %w", err)
			}
		default:
			return &LockError{Holder: existingInfo, Reason: "folder is being optimized by another process"}
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Folder:    l.folder,
	}

	// O_EXCL makes creation atomic
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			// Another process acquired the lock between our check and create
			existingInfo, readErr := l.readLockInfo()
			if readErr != nil {
				return fmt.Errorf("lock acquisition race condition: %w", err)
			}
			return &LockError{Holder: existingInfo, Reason: "lock acquired by another process during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release releases the lock
func (l *FolderLock) Release() error {
	if l.info == nil {
		return nil // Not holding lock
	}

	existingInfo, err := l.readLockInfo()
	if err != nil {
		l.info = nil
		return nil // Lock file doesn't exist, consider it released
	}

	if !l.isHeldByThisInstance(existingInfo) {
		l.info = nil
		return fmt.Errorf("lock was stolen by another process")
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.info = nil
	return nil
}

// IsLocked checks if a live lock exists
func (l *FolderLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// Holder returns information about the current lock holder
func (l *FolderLock) Holder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

// ForceRelease forcibly removes the lock file
func (l *FolderLock) ForceRelease() error {
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *FolderLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}

	return &info, nil
}

// isStale reports a dead holder process on this host, or a timed out holder on another host
func (l *FolderLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()

	if info.Hostname == hostname {
		return !pidAlive(info.PID)
	}

	return time.Since(info.StartTime) > l.staleTimeout
}

func (l *FolderLock) isHeldByThisInstance(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() &&
		info.Hostname == hostname &&
		l.info.StartTime.Equal(info.StartTime)
}

// LockError represents an error when lock cannot be acquired
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s, folder: %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
			e.Holder.Folder,
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}
