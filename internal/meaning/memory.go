package meaning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/ull/pkg/types"
)

// MemoryService is an in-process Service.
type MemoryService struct {
	mu      sync.RWMutex
	records map[string]types.MeaningRecord
}

// NewMemoryService returns an empty MemoryService.
func NewMemoryService() *MemoryService {
	return &MemoryService{records: make(map[string]types.MeaningRecord)}
}

// Insert stores rec. Inserting an existing id is an error.
func (s *MemoryService) Insert(_ context.Context, rec *types.MeaningRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("insert meaning %s: duplicate id", rec.ID)
	}
	s.records[rec.ID] = *rec
	return nil
}

// Update replaces the payload of id.
func (s *MemoryService) Update(_ context.Context, id string, m *types.Meaning, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update meaning %s: %w", id, types.ErrNotFound)
	}
	rec.Meaning = *m
	rec.UpdatedAt = at
	s.records[id] = rec
	return nil
}

// Get returns a copy of the record for id.
func (s *MemoryService) Get(_ context.Context, id string) (*types.MeaningRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get meaning %s: %w", id, types.ErrNotFound)
	}
	return &rec, nil
}

// Len returns the number of stored records.
func (s *MemoryService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ Service = (*MemoryService)(nil)
