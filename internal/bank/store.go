// Package bank persists the question bank and merges newly generated
// questions into it.
package bank

import (
	"context"
	"fmt"

	"github.com/dgallion1/docquiz/internal/question"
)

// Store is durable storage for the ordered question bank. Implementations
// must be safe for concurrent use and make Append all-or-nothing.
type Store interface {
	// Load returns the bank in insertion order. A store that was never
	// written yields an empty bank.
	Load(ctx context.Context) (question.Bank, error)
	Append(ctx context.Context, records []question.Question) error
	Reset(ctx context.Context) error
	Close() error
}

// StoreError is a storage failure. The bank is left as it was before the
// failed operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("bank %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Driver selects a Store backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Options configures Open.
type Options struct {
	Driver Driver
	Path   string // JSON file for DriverFile.
	DSN    string // Connection string for the SQL drivers.
}

// DefaultPath is the bank file used when none is configured.
const DefaultPath = "question_bank.json"

// Open returns the Store for opts.Driver. An empty driver means DriverFile.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile, "":
		path := opts.Path
		if path == "" {
			path = DefaultPath
		}
		return NewFileStore(path), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, opts.Driver, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported bank driver %q", opts.Driver)
	}
}
