package bank

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(prompt string) question.Question {
	return question.Question{
		Prompt:        prompt,
		Options:       []string{"alpha", "beta", "gamma", "delta"},
		CorrectOption: "gamma",
		Explanation:   "gamma is third",
		Source:        "notes.txt",
	}
}

// stores returns one fresh instance of every backend that runs without
// external services.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := OpenSQL(context.Background(), DriverSQLite, "file:"+filepath.Join(dir, "bank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(dir, "bank.json")),
		"sqlite": sqlite,
	}
}

func prompts(b question.Bank) []string {
	out := make([]string, len(b))
	for i, q := range b {
		out[i] = q.Prompt
	}
	return out
}

func TestStores_AppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := NewAssembler(s, nil)
			_, err := a.Accept(ctx, []question.Question{record("a")})
			require.NoError(t, err)
			_, err = a.Accept(ctx, []question.Question{record("b")})
			require.NoError(t, err)

			bank, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, prompts(bank))
			assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, bank[1].Options)
			assert.Equal(t, "notes.txt", bank[0].Source)
		})
	}
}

func TestStores_ResetEmptiesBank(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := NewAssembler(s, nil)
			_, err := a.Accept(ctx, []question.Question{record("a"), record("b")})
			require.NoError(t, err)
			require.NoError(t, a.Reset(ctx))

			bank, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, bank)

			_, err = a.Accept(ctx, []question.Question{record("c")})
			require.NoError(t, err)
			bank, err = a.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, prompts(bank))
		})
	}
}

func TestStores_EmptyBeforeFirstWrite(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			bank, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, bank)
			assert.Empty(t, bank)
		})
	}
}

func TestAccept_InvalidRecordRejectsWholeCall(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := NewAssembler(s, nil)
			bad := record("bad")
			bad.CorrectOption = "epsilon"

			_, err := a.Accept(ctx, []question.Question{record("good"), bad})
			var verr *question.ValidationError
			require.ErrorAs(t, err, &verr)

			bank, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, bank)
		})
	}
}

func TestAccept_AssignsIDs(t *testing.T) {
	a := NewAssembler(NewMemoryStore(), nil)
	keep := record("keep")
	keep.ID = "fixed-id"
	got, err := a.Accept(context.Background(), []question.Question{keep, record("fresh")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fixed-id", got[0].ID)
	assert.Len(t, got[1].ID, 36)
}

func TestAccept_NoRecordsIsNoop(t *testing.T) {
	a := NewAssembler(NewMemoryStore(), nil)
	got, err := a.Accept(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccept_ConcurrentCallsDoNotLoseRecords(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(NewFileStore(filepath.Join(dir, "bank.json")), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.Accept(ctx, []question.Question{record(fmt.Sprintf("q%d-1", i)), record(fmt.Sprintf("q%d-2", i))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	bank, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, bank, 20)
	// Each call's records stay adjacent.
	for i := 0; i < len(bank); i += 2 {
		assert.Equal(t, bank[i].Prompt[:len(bank[i].Prompt)-2], bank[i+1].Prompt[:len(bank[i+1].Prompt)-2])
	}
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Append(context.Context, []question.Question) error {
	return &StoreError{Op: "append", Err: errors.New("disk full")}
}

func TestAccept_StoreFailure(t *testing.T) {
	a := NewAssembler(&failingStore{}, nil)
	_, err := a.Accept(context.Background(), []question.Question{record("a")})
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "append", serr.Op)
}

func TestFileStore_CorruptFileIsStoreError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := NewFileStore(path)

	_, err := s.Load(context.Background())
	var serr *StoreError
	require.ErrorAs(t, err, &serr)

	err = s.Append(context.Background(), []question.Question{record("a")})
	require.ErrorAs(t, err, &serr)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "{not json", string(data))
}

func TestFileStore_WritesStableFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bank.json")
	s := NewFileStore(path)
	require.NoError(t, s.Append(context.Background(), []question.Question{record("a")}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"question"`, `"choices"`, `"correct_answer"`, `"explanation"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Path: filepath.Join(t.TempDir(), "b.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Options{Driver: "mongo"})
	assert.Error(t, err)
}
