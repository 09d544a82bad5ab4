// Package memory provides a static in-memory colony source used by tests
// and ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"daphniacore/pkg/domain"
)

var _ domain.Source = (*Store)(nil)

// Store serves a fixed specimen table from memory.
type Store struct {
	mu   sync.RWMutex
	rows []domain.Specimen
}

// NewStore constructs a store serving the given rows.
func NewStore(rows []domain.Specimen) *Store {
	s := &Store{}
	s.Replace(rows)
	return s
}

// Replace swaps the served table, simulating a fresh ETL load.
func (s *Store) Replace(rows []domain.Specimen) {
	cloned := make([]domain.Specimen, len(rows))
	copy(cloned, rows)
	s.mu.Lock()
	s.rows = cloned
	s.mu.Unlock()
}

// FetchSpecimens returns a copy of the current table.
func (s *Store) FetchSpecimens(ctx context.Context) ([]domain.Specimen, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Specimen, len(s.rows))
	copy(out, s.rows)
	return out, nil
}
