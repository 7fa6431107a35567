package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/drivesync/internal/domain"
)

// DatabaseName is the file created inside the data directory
const DatabaseName = "drivesync.db"

// Store persists the checksum index used by copy detection and the history
// of optimization runs
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// RunRecord represents a single optimization run
type RunRecord struct {
	ID        int64
	Folder    string
	StartTime time.Time
	EndTime   time.Time
	Status    string // "success", "degraded", "failed"

	DirectoryActionsBefore int
	DirectoryActionsAfter  int
	FileActionsBefore      int
	FileActionsAfter       int

	// FailedPasses counts passes that panicked and were skipped
	FailedPasses int
	Error        string
}

// New opens (creating if needed) the store in dataDir
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checksums (
		checksum TEXT NOT NULL,
		folder_id TEXT NOT NULL,
		name TEXT NOT NULL,
		seen_at TIMESTAMP NOT NULL,
		PRIMARY KEY (checksum, folder_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_checksums_seen ON checksums(checksum, seen_at DESC);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		dir_before INTEGER DEFAULT 0,
		dir_after INTEGER DEFAULT 0,
		file_before INTEGER DEFAULT 0,
		file_after INTEGER DEFAULT 0,
		failed_passes INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_folder_time ON runs(folder, start_time DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record remembers that a file with the given checksum lives in a folder.
// Recording the same file again refreshes its timestamp.
func (s *Store) Record(ctx context.Context, c domain.ChecksumCandidate) error {
	if c.Checksum == "" || c.FolderID == "" || c.Name == "" {
		return fmt.Errorf("checksum, folder and name are required")
	}
	seenAt := c.SeenAt
	if seenAt.IsZero() {
		seenAt = s.now()
	}

	query := `
		INSERT INTO checksums (checksum, folder_id, name, seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(checksum, folder_id, name) DO UPDATE SET seen_at = excluded.seen_at
	`
	if _, err := s.db.ExecContext(ctx, query, c.Checksum, c.FolderID, c.Name, seenAt); err != nil {
		return fmt.Errorf("failed to record checksum: %w", err)
	}
	return nil
}

// LookupByChecksums returns the most recently seen candidate for every known checksum
func (s *Store) LookupByChecksums(ctx context.Context, sums []string) (map[string]domain.ChecksumCandidate, error) {
	result := make(map[string]domain.ChecksumCandidate)
	if len(sums) == 0 {
		return result, nil
	}

	args := make([]any, len(sums))
	for i, sum := range sums {
		args[i] = sum
	}
	query := `
		SELECT checksum, folder_id, name, seen_at
		FROM checksums
		WHERE checksum IN (` + placeholders(len(sums)) + `)
		ORDER BY seen_at DESC, folder_id, name
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checksums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.ChecksumCandidate
		if err := rows.Scan(&c.Checksum, &c.FolderID, &c.Name, &c.SeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan checksum: %w", err)
		}
		if _, seen := result[c.Checksum]; !seen {
			result[c.Checksum] = c
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checksums: %w", err)
	}
	return result, nil
}

// Invalidate forgets the given candidates
func (s *Store) Invalidate(ctx context.Context, candidates []domain.ChecksumCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range candidates {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM checksums WHERE checksum = ? AND folder_id = ? AND name = ?`,
			c.Checksum, c.FolderID, c.Name)
		if err != nil {
			return fmt.Errorf("failed to invalidate %s/%s: %w", c.FolderID, c.Name, err)
		}
	}
	return tx.Commit()
}

// SaveRun records an optimization run
func (s *Store) SaveRun(record RunRecord) error {
	if record.Status != "success" && record.Status != "degraded" && record.Status != "failed" {
		return fmt.Errorf("invalid status: %s (must be 'success', 'degraded', or 'failed')", record.Status)
	}

	query := `
		INSERT INTO runs (folder, start_time, end_time, status, dir_before, dir_after, file_before, file_after, failed_passes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		record.Folder,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.DirectoryActionsBefore,
		record.DirectoryActionsAfter,
		record.FileActionsBefore,
		record.FileActionsAfter,
		record.FailedPasses,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// GetHistory retrieves run history for a folder ("" = all folders), newest first
func (s *Store) GetHistory(folder string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT id, folder, start_time, end_time, status, dir_before, dir_after, file_before, file_after, failed_passes, error
		FROM runs
	`
	var args []any
	if folder != "" {
		query += ` WHERE folder = ?`
		args = append(args, folder)
	}
	query += ` ORDER BY start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			record  RunRecord
			errText sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.Folder,
			&record.StartTime,
			&record.EndTime,
			&record.Status,
			&record.DirectoryActionsBefore,
			&record.DirectoryActionsAfter,
			&record.FileActionsBefore,
			&record.FileActionsAfter,
			&record.FailedPasses,
			&errText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Error = errText.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
