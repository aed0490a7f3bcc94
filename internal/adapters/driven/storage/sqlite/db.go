package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// timeLayout is fixed width so that text order in SQL is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const jsonNull = "null"

// pragmas apply to every pooled connection.
const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// openDatabase opens dir/file, creating both if needed, and migrates it.
// A file that existed before and fails to migrate is reported as
// domain.ErrStorageCorrupt.
func openDatabase(dir, file string, schema fs.FS) (*sql.DB, string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dir, file)
	info, statErr := os.Stat(path)
	existed := statErr == nil && info.Size() > 0

	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	if err := migrate(context.Background(), db, schema); err != nil {
		db.Close()
		if existed || isCorruption(err) {
			return nil, "", fmt.Errorf("%s: %w: %v", path, domain.ErrStorageCorrupt, err)
		}
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}
	return db, path, nil
}

type migration struct {
	version int
	file    string
}

// pending lists the NNN_name.up.sql files newer than applied, oldest first.
func pending(schema fs.FS, applied int) ([]migration, error) {
	entries, err := fs.ReadDir(schema, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}
	var out []migration
	for _, e := range entries {
		name := e.Name()
		prefix, _, ok := strings.Cut(name, "_")
		if !ok || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		v, err := strconv.Atoi(prefix)
		if err != nil || v <= applied {
			continue
		}
		out = append(out, migration{version: v, file: name})
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

func migrate(ctx context.Context, db *sql.DB, schema fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var applied int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	todo, err := pending(schema, applied)
	if err != nil {
		return err
	}
	for _, m := range todo {
		script, err := fs.ReadFile(schema, m.file)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", m.file, err)
		}
		if err := inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(script)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version)
			return err
		}); err != nil {
			return fmt.Errorf("migration %s: %w", m.file, err)
		}
	}
	return nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isCorruption reports whether err is SQLite refusing a damaged file.
func isCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"not a database", "malformed", "corrupt"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// wrapCorrupt maps SQLite corruption onto domain.ErrStorageCorrupt.
func wrapCorrupt(op string, err error) error {
	if isCorruption(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageCorrupt, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
