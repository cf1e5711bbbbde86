// Package store persists survey sessions, one record per session id.
//
// Two backends share the Gateway interface: a directory of JSON files
// (data/responses/<id>.json) and a SQLite database. Both replace a record
// atomically so a failed write never corrupts another session's data.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/drivesound/drivesound/internal/config"
	"github.com/drivesound/drivesound/internal/session"
)

// ErrInvalidID is returned for session ids that cannot name a record.
var ErrInvalidID = errors.New("invalid session id")

// Record is the persisted form of a session.
type Record struct {
	SessionID     string             `json:"session_id"`
	SavedAt       time.Time          `json:"saved_at"`
	Group         session.Group      `json:"group"`
	StartedAt     time.Time          `json:"started_at"`
	Completed     bool               `json:"completed"`
	StimulusOrder []string           `json:"stimulus_order"`
	Responses     *session.Responses `json:"responses"`
}

// NewRecord builds the record for snap, stamped with savedAt.
func NewRecord(snap session.Snapshot, savedAt time.Time) Record {
	resp := snap.Responses
	if resp == nil {
		resp = session.NewResponses()
	}
	return Record{
		SessionID:     snap.SessionID,
		SavedAt:       savedAt,
		Group:         snap.Group,
		StartedAt:     snap.StartedAt,
		Completed:     snap.Completed,
		StimulusOrder: snap.StimulusOrder,
		Responses:     resp,
	}
}

// Gateway is the storage target shared by all sessions.
type Gateway interface {
	// Persist writes (or replaces) the record for snap.SessionID.
	Persist(snap session.Snapshot) error
	// Load returns nil, nil when no record exists for id.
	Load(id string) (*Record, error)
	// LoadAll returns every stored record in no particular order. Writes in
	// flight while it runs may or may not be included.
	LoadAll() ([]Record, error)
	Close() error
}

// Open returns the backend named by cfg.Storage, rooted at the project root.
func Open(cfg *config.Config, root string) (Gateway, error) {
	dataDir := cfg.DataDir(root)
	switch cfg.Storage.Backend {
	case config.BackendFile, "":
		return NewFileStore(filepath.Join(dataDir, "responses"))
	case config.BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "responses.db"))
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling record %s: %w", rec.SessionID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Responses == nil {
		rec.Responses = session.NewResponses()
	}
	return &rec, nil
}
