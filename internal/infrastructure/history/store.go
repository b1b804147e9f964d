// Package history persists one entry per run. The core only appends; listing,
// search, clear and export serve the CLI.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/pkg/filesystem"
	"github.com/doeshing/gensh/internal/ports"
)

// DefaultPath returns the default location for the given store kind.
func DefaultPath(store string) string {
	dir := filepath.Join(filesystem.AppDir(), "history")
	if store == domain.HistoryStoreJSONL {
		return filepath.Join(dir, "history.jsonl")
	}
	return filepath.Join(dir, "history.db")
}

// Open builds the repository selected by settings.
func Open(settings domain.HistorySettings) (ports.HistoryRepository, error) {
	cfg := domain.Config{History: settings}
	store := cfg.GetHistoryStore()
	path := filesystem.ExpandPath(settings.Path)
	if path == "" {
		path = DefaultPath(store)
	}
	if store == domain.HistoryStoreJSONL {
		return NewFileStore(path), nil
	}
	return NewSQLiteStore(path)
}

// prepare fills the id and timestamp when the caller left them empty.
func prepare(entry domain.HistoryEntry) domain.HistoryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	return entry
}

func matches(entry domain.HistoryEntry, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(entry.Instruction), needle) ||
		strings.Contains(strings.ToLower(entry.Command), needle)
}

// writeJSONL writes entries oldest first, one JSON object per line.
func writeJSONL(dest string, newestFirst []domain.HistoryEntry) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
			return err
		}
	}
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	for i := len(newestFirst) - 1; i >= 0; i-- {
		if err := encoder.Encode(newestFirst[i]); err != nil {
			return err
		}
	}
	return file.Sync()
}
