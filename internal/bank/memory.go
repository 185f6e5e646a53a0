package bank

import (
	"context"
	"sync"

	"github.com/dgallion1/docquiz/internal/question"
)

// MemoryStore keeps the bank in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	bank question.Bank
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (question.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bank.Clone(), nil
}

func (s *MemoryStore) Append(_ context.Context, records []question.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range records {
		s.bank = append(s.bank, q.Clone())
	}
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	s.bank = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
