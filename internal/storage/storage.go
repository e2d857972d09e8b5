// Package storage persists accepted form submissions. Rejected
// submissions are never stored - the store only sees traffic that passed
// the anti-spam pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formgate/server/internal/config"
)

// ErrNotFound is returned when a requested entity is missing from the store.
var ErrNotFound = errors.New("storage: not found")

// Submission is one accepted form submission.
type Submission struct {
	ID        string    `json:"id"`
	FormID    string    `json:"form_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store captures the persistence requirements for accepted submissions.
type Store interface {
	// SaveSubmission persists one accepted submission.
	SaveSubmission(ctx context.Context, sub Submission) error

	// ListSubmissions returns up to limit submissions for a form, newest
	// first. An empty formID lists across all forms.
	ListSubmissions(ctx context.Context, formID string, limit int) ([]Submission, error)

	// GetSubmission returns one submission by ID, scoped to a form when
	// formID is non-empty. Returns ErrNotFound when no such submission
	// exists.
	GetSubmission(ctx context.Context, formID, id string) (Submission, error)

	// Close releases backend resources.
	Close() error
}

// NewStore builds the store selected by configuration.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(cfg.PostgresURL, cfg.PostgresTableName, cfg.PostgresPool)
	case "mongodb":
		return NewMongoDBStore(cfg.MongoDBURL, cfg.MongoDBDatabase, cfg.MongoDBCollection)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// DefaultListLimit bounds operator listings when the caller does not
// specify one.
const DefaultListLimit = 100
