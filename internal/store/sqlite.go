package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/drivesound/drivesound/internal/session"
)

// SQLiteStore keeps records in a single SQLite table, one row per session.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		session_id TEXT PRIMARY KEY,
		grp TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		saved_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Persist upserts the record inside a transaction.
func (s *SQLiteStore) Persist(snap session.Snapshot) error {
	if err := checkID(snap.SessionID); err != nil {
		return err
	}
	rec := NewRecord(snap, s.now())
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO records (session_id, grp, completed, saved_at, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   grp = excluded.grp,
		   completed = excluded.completed,
		   saved_at = excluded.saved_at,
		   payload = excluded.payload`,
		rec.SessionID, string(rec.Group), rec.Completed, rec.SavedAt, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.SessionID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record %s: %w", rec.SessionID, err)
	}
	return nil
}

// Load retrieves the record for id.
func (s *SQLiteStore) Load(id string) (*Record, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM records WHERE session_id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec, err := decodeRecord([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", id, err)
	}
	return rec, nil
}

// LoadAll returns every record, oldest save first.
func (s *SQLiteStore) LoadAll() ([]Record, error) {
	rows, err := s.db.Query(`SELECT session_id, payload FROM records ORDER BY saved_at`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("parsing record %s: %w", id, err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}
