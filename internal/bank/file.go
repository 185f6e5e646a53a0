package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgallion1/docquiz/internal/question"
)

// FileStore keeps the bank as a JSON array in a single file. Every write goes
// to a temp file in the same directory which is then renamed over the bank,
// so readers never see a partial file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the bank file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (question.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.readLocked()
	return bank, storeErr("load", err)
}

func (s *FileStore) Append(ctx context.Context, records []question.Question) error {
	if err := ctx.Err(); err != nil {
		return storeErr("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.readLocked()
	if err != nil {
		return storeErr("append", err)
	}
	return storeErr("append", s.writeLocked(append(bank, records...)))
}

func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeErr("reset", s.writeLocked(question.Bank{}))
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readLocked() (question.Bank, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return question.Bank{}, nil
	}
	if err != nil {
		return nil, err
	}
	var bank question.Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if bank == nil {
		bank = question.Bank{}
	}
	return bank, nil
}

func (s *FileStore) writeLocked(bank question.Bank) error {
	data, err := json.MarshalIndent(bank, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bank: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".bank-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
