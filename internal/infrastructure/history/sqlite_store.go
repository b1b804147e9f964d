package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

const timestampLayout = time.RFC3339Nano

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		instruction TEXT NOT NULL,
		command TEXT NOT NULL,
		risk TEXT NOT NULL,
		executed INTEGER NOT NULL,
		dry_run INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		rc INTEGER
	);`)
	return err
}

// Append inserts a new entry.
func (s *SQLiteStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	entry = prepare(entry)
	var rc sql.NullInt64
	if entry.RC != nil {
		rc = sql.NullInt64{Int64: int64(*entry.RC), Valid: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, timestamp, instruction, command, risk, executed, dry_run, ok, rc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.Format(timestampLayout),
		entry.Instruction,
		entry.Command,
		string(entry.Risk),
		boolToInt(entry.Executed),
		boolToInt(entry.DryRun),
		boolToInt(entry.OK),
		rc,
	)
	return err
}

// Records returns entries newest first. limit <= 0 means all.
func (s *SQLiteStore) Records(limit int, search string) ([]domain.HistoryEntry, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT id, timestamp, instruction, command, risk, executed, dry_run, ok, rc FROM runs")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE instruction LIKE ? OR command LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY seq DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var ts, risk string
		var executed, dryRun, ok int
		var rc sql.NullInt64
		if err := rows.Scan(&entry.ID, &ts, &entry.Instruction, &entry.Command, &risk, &executed, &dryRun, &ok, &rc); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timestampLayout, ts); err == nil {
			entry.Timestamp = t
		}
		entry.Risk = domain.RiskLevel(risk)
		entry.Executed = executed == 1
		entry.DryRun = dryRun == 1
		entry.OK = ok == 1
		if rc.Valid {
			code := int(rc.Int64)
			entry.RC = &code
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM runs")
	return err
}

// ExportJSON writes every entry to dest as JSON lines, oldest first.
func (s *SQLiteStore) ExportJSON(dest string) error {
	entries, err := s.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, entries)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
