package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/formgate/server/internal/config"
	"github.com/formgate/server/internal/dbpool"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db        *sql.DB
	pool      *dbpool.SharedPool // Set when this store owns the pool (for Close())
	tableName string
}

// NewPostgresStore creates a new PostgreSQL-backed store with its own pool.
func NewPostgresStore(connectionString, tableName string, poolConfig config.PostgresPoolConfig) (*PostgresStore, error) {
	pool, err := dbpool.NewSharedPool(connectionString, poolConfig)
	if err != nil {
		return nil, err
	}

	store, err := NewPostgresStoreWithDB(pool.DB(), tableName)
	if err != nil {
		// NOTE: Close() error during initialization cleanup is not actionable
		// and would only obscure the original failure.
		_ = pool.Close()
		return nil, err
	}
	store.pool = pool

	return store, nil
}

// NewPostgresStoreWithDB creates a PostgreSQL-backed store using an existing
// connection pool. The caller retains ownership of the pool.
func NewPostgresStoreWithDB(db *sql.DB, tableName string) (*PostgresStore, error) {
	store := &PostgresStore{
		db:        db,
		tableName: tableName,
	}
	if store.tableName == "" {
		store.tableName = "formgate_submissions"
	}

	if err := store.createTable(); err != nil {
		return nil, err
	}
	return store, nil
}

// createTable creates the submissions table and indexes if they don't exist.
func (s *PostgresStore) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			form_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			message TEXT NOT NULL,
			client_ip TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %s_form_created_idx ON %s (form_id, created_at DESC);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create submissions table: %w", err)
	}
	return nil
}

// SaveSubmission implements Store.
func (s *PostgresStore) SaveSubmission(ctx context.Context, sub Submission) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, form_id, name, email, message, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.FormID, sub.Name, sub.Email, sub.Message, sub.ClientIP, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListSubmissions implements Store.
func (s *PostgresStore) ListSubmissions(ctx context.Context, formID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if formID == "" {
		query := fmt.Sprintf(`
			SELECT id, form_id, name, email, message, COALESCE(client_ip, ''), created_at
			FROM %s ORDER BY created_at DESC LIMIT $1
		`, s.tableName)
		rows, err = s.db.QueryContext(ctx, query, limit)
	} else {
		query := fmt.Sprintf(`
			SELECT id, form_id, name, email, message, COALESCE(client_ip, ''), created_at
			FROM %s WHERE form_id = $1 ORDER BY created_at DESC LIMIT $2
		`, s.tableName)
		rows, err = s.db.QueryContext(ctx, query, formID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var result []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.FormID, &sub.Name, &sub.Email, &sub.Message, &sub.ClientIP, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return result, nil
}

// GetSubmission implements Store.
func (s *PostgresStore) GetSubmission(ctx context.Context, formID, id string) (Submission, error) {
	var row *sql.Row
	if formID == "" {
		query := fmt.Sprintf(`
			SELECT id, form_id, name, email, message, COALESCE(client_ip, ''), created_at
			FROM %s WHERE id = $1
		`, s.tableName)
		row = s.db.QueryRowContext(ctx, query, id)
	} else {
		query := fmt.Sprintf(`
			SELECT id, form_id, name, email, message, COALESCE(client_ip, ''), created_at
			FROM %s WHERE id = $1 AND form_id = $2
		`, s.tableName)
		row = s.db.QueryRowContext(ctx, query, id, formID)
	}

	var sub Submission
	err := row.Scan(&sub.ID, &sub.FormID, &sub.Name, &sub.Email, &sub.Message, &sub.ClientIP, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, fmt.Errorf("query submission: %w", err)
	}
	return sub, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
