package disabled

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLStore keeps disabled ids in the disabled_plugins table
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore creates the table if needed and returns the store
func NewSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS disabled_plugins (
		plugin_id TEXT PRIMARY KEY,
		disabled_at TIMESTAMP NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create disabled_plugins table: %w", err)
	}
	return nil
}

// placeholder returns the n-th bind parameter for the driver
func (s *SQLStore) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Load implements Store
func (s *SQLStore) Load(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT plugin_id FROM disabled_plugins ORDER BY plugin_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query disabled plugins: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan disabled plugin: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disabled plugins: %w", err)
	}
	return ids, nil
}

// Append implements Store. All ids are written in one transaction.
func (s *SQLStore) Append(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"INSERT INTO disabled_plugins (plugin_id, disabled_at) VALUES (%s, %s) ON CONFLICT (plugin_id) DO NOTHING",
		s.placeholder(1), s.placeholder(2))
	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, id, now); err != nil {
			return fmt.Errorf("failed to insert disabled plugin %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close implements Store
func (s *SQLStore) Close() error {
	return s.db.Close()
}
