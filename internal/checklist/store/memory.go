package store

import (
	"context"
	"fmt"
	"sync"

	"visadesk/internal/checklist"
	"visadesk/pkg/platform/sentinel"
)

// InMemory keeps checklists in a map, cloned on every read and write so a
// caller mutating a returned record cannot corrupt the stored copy.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*checklist.DocumentChecklist
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[string]*checklist.DocumentChecklist),
	}
}

func (s *InMemory) Get(ctx context.Context, applicationID string) (*checklist.DocumentChecklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[applicationID]
	if !ok {
		return nil, fmt.Errorf("checklist for %s: %w", applicationID, sentinel.ErrNotFound)
	}
	return cloneRecord(record), nil
}

func (s *InMemory) Put(ctx context.Context, record *checklist.DocumentChecklist) error {
	if record == nil || record.ApplicationID == "" {
		return fmt.Errorf("checklist record with application id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ApplicationID] = cloneRecord(record)
	return nil
}

func (s *InMemory) Update(ctx context.Context, record *checklist.DocumentChecklist) error {
	if record == nil || record.ApplicationID == "" {
		return fmt.Errorf("checklist record with application id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ApplicationID]; !ok {
		return fmt.Errorf("checklist for %s: %w", record.ApplicationID, sentinel.ErrNotFound)
	}
	s.records[record.ApplicationID] = cloneRecord(record)
	return nil
}

func (s *InMemory) Delete(ctx context.Context, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, applicationID)
	return nil
}

func cloneRecord(in *checklist.DocumentChecklist) *checklist.DocumentChecklist {
	out := *in
	out.Items = make([]checklist.Item, len(in.Items))
	copy(out.Items, in.Items)
	return &out
}
