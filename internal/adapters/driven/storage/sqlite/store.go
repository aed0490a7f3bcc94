package sqlite

import (
	"database/sql"
	"errors"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// StateFile holds what must survive an index rebuild.
const StateFile = "state.db"

// Store is the application state database.
type Store struct {
	db   *sql.DB
	path string
}

func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("state store: data directory not set")
	}
	db, path, err := openDatabase(dataDir, StateFile, migrations.State())
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// SchedulerStore exposes the poller tables.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{db: s.db}
}
