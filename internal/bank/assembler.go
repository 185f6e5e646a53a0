package bank

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/google/uuid"
)

// Assembler validates generated questions and merges them into a Store.
// Accept calls are serialized so concurrent runs never interleave their
// appends.
type Assembler struct {
	mu    sync.Mutex
	store Store
	log   *slog.Logger
}

func NewAssembler(store Store, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{store: store, log: log.With("component", "bank")}
}

// Accept validates every record and appends them all in order. If any record
// is invalid nothing is written and the *question.ValidationError is
// returned. Records without an ID get a fresh UUID. It returns the records as
// stored.
func (a *Assembler) Accept(ctx context.Context, records []question.Question) ([]question.Question, error) {
	if len(records) == 0 {
		return nil, nil
	}
	accepted := make([]question.Question, len(records))
	for i, rec := range records {
		q := rec.Clone()
		question.Normalize(&q)
		if err := question.Validate(&q); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		accepted[i] = q
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Append(ctx, accepted); err != nil {
		return nil, err
	}
	a.log.Info("questions appended", "count", len(accepted))
	return accepted, nil
}

// Load returns a snapshot of the bank.
func (a *Assembler) Load(ctx context.Context) (question.Bank, error) {
	return a.store.Load(ctx)
}

// Reset empties the bank.
func (a *Assembler) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	a.log.Info("bank reset")
	return nil
}
