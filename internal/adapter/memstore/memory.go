package memstore

import (
	"context"
	"errors"
	"sync"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var (
	_ port.InteractionLog     = (*MemoryLog)(nil)
	_ port.InteractionHistory = (*MemoryLog)(nil)
)

var errClosed = errors.New("interaction log is closed")

// MemoryLog keeps interactions in process memory.
type MemoryLog struct {
	mu      sync.RWMutex
	records []domain.Interaction
	closed  bool
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (s *MemoryLog) Append(ctx context.Context, in domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	in.Citations = append([]domain.Citation(nil), in.Citations...)
	s.records = append(s.records, in)
	return nil
}

func (s *MemoryLog) Recent(ctx context.Context, n int) ([]domain.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && n < len(s.records) {
		start = len(s.records) - n
	}
	out := make([]domain.Interaction, len(s.records)-start)
	copy(out, s.records[start:])
	return out, nil
}

func (s *MemoryLog) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
