package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drivesound/drivesound/internal/session"
)

// FileStore keeps one JSON file per session in a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating responses directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory records are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Persist writes the record to a temp file in the same directory and
// renames it over <id>.json.
func (s *FileStore) Persist(snap session.Snapshot) error {
	if err := checkID(snap.SessionID); err != nil {
		return err
	}
	data, err := encodeRecord(NewRecord(snap, s.now()))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+snap.SessionID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing record %s: %w", snap.SessionID, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing record %s: %w", snap.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing record %s: %w", snap.SessionID, err)
	}
	if err := os.Rename(tmpName, s.path(snap.SessionID)); err != nil {
		return fmt.Errorf("renaming record %s: %w", snap.SessionID, err)
	}
	return nil
}

// Load reads the record for id.
// Returns nil, nil if no record exists (not an error).
func (s *FileStore) Load(id string) (*Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", id, err)
	}
	return rec, nil
}

// LoadAll reads every <id>.json in the directory. Temp files are ignored,
// and so are records removed between listing and reading.
func (s *FileStore) LoadAll() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	var records []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
