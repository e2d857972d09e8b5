package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for single-instance deployments and
// tests. Submissions are lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions []Submission
	maxEntries  int
}

const defaultMaxEntries = 10000

// NewMemoryStore creates an in-memory store retaining the most recent
// 10,000 submissions.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{maxEntries: defaultMaxEntries}
}

// SaveSubmission implements Store.
func (s *MemoryStore) SaveSubmission(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions = append(s.submissions, sub)

	// Drop oldest entries past the retention bound.
	if len(s.submissions) > s.maxEntries {
		overflow := len(s.submissions) - s.maxEntries
		s.submissions = append([]Submission(nil), s.submissions[overflow:]...)
	}
	return nil
}

// ListSubmissions implements Store.
func (s *MemoryStore) ListSubmissions(ctx context.Context, formID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Submission, 0, limit)
	for i := len(s.submissions) - 1; i >= 0 && len(result) < limit; i-- {
		if formID != "" && s.submissions[i].FormID != formID {
			continue
		}
		result = append(result, s.submissions[i])
	}
	return result, nil
}

// GetSubmission implements Store.
func (s *MemoryStore) GetSubmission(ctx context.Context, formID, id string) (Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.submissions {
		sub := s.submissions[i]
		if sub.ID != id {
			continue
		}
		if formID != "" && sub.FormID != formID {
			continue
		}
		return sub, nil
	}
	return Submission{}, ErrNotFound
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
