// Package sqlite implements the SQLite PersonStore behind the reference
// upstream service. persons.jsonl in the data directory is the source of
// truth; SQLite is rebuilt from it on every Attach and serves the queries.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/roster/pkg/types"
)

const dbFileName = "roster.db"

// Compile-time interface check.
var _ types.PersonStore = (*Store)(nil)

// Store implements types.PersonStore over SQLite.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewStore creates a detached store. Call Attach before use.
func NewStore() *Store {
	return &Store{}
}

// Attach creates DataDir if needed, builds a fresh database from the schema,
// and loads persons.jsonl into it.
// Returns ErrAlreadyAttached if already attached.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is derived state; start from an empty file every time.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := ensureJSONL(filepath.Join(dataDir, personsJSONL)); err != nil {
		db.Close()
		return err
	}
	if err := loadPersonsJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	s.config = config
	s.db = db
	s.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	s.attached = false
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// jsonlPath returns the path of persons.jsonl for the attached data dir.
func (s *Store) jsonlPath() string {
	return filepath.Join(s.config.DataDir, personsJSONL)
}

// generateID returns a new UUID v7, falling back to v4.
func generateID() types.PersonID {
	id, err := uuid.NewV7()
	if err != nil {
		return types.PersonID(uuid.New().String())
	}
	return types.PersonID(id.String())
}
