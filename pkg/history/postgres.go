package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
	_ "github.com/lib/pq"
)

// PostgresStore keeps notification history in Postgres for sites that run
// the cleaner without Redis. Rows carry their own expiry instant; expired
// rows are ignored by reads and swept opportunistically.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to Postgres and creates the history table if
// it does not exist.
func NewPostgresStore(cfg types.PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initializeSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) initializeSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS notification_history (
			namespace    TEXT NOT NULL,
			cluster_name TEXT NOT NULL,
			severity     TEXT NOT NULL,
			expires_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (namespace, cluster_name, severity)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// HasBeenNotified reports whether an unexpired record exists.
func (s *PostgresStore) HasBeenNotified(ctx context.Context, namespace, name string, severity types.Severity) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_history
			WHERE namespace = $1 AND cluster_name = $2 AND severity = $3 AND expires_at > NOW()
		)
	`, namespace, name, string(severity)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query notification history: %w", err)
	}
	return exists, nil
}

// MarkNotified upserts the record and rearms its expiry.
func (s *PostgresStore) MarkNotified(ctx context.Context, namespace, name string, severity types.Severity, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_history (namespace, cluster_name, severity, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, cluster_name, severity)
		DO UPDATE SET expires_at = EXCLUDED.expires_at
	`, namespace, name, string(severity), time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// ClearHistory removes all severities for the cluster.
func (s *PostgresStore) ClearHistory(ctx context.Context, namespace, name string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notification_history WHERE namespace = $1 AND cluster_name = $2
	`, namespace, name)
	if err != nil {
		return fmt.Errorf("failed to clear notification history: %w", err)
	}
	return nil
}

// AllNotified lists clusters with unexpired history, sweeping expired rows
// on the way.
func (s *PostgresStore) AllNotified(ctx context.Context) ([]Key, error) {
	_, _ = s.db.ExecContext(ctx, `DELETE FROM notification_history WHERE expires_at <= NOW()`)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT namespace, cluster_name FROM notification_history WHERE expires_at > NOW()
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Namespace, &k.Name); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}

	return keys, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
