package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docquiz/internal/bank"
	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/generate"
	"github.com/dgallion1/docquiz/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator answers with a question naming the unit index unless respond
// overrides it.
type fakeGenerator struct {
	respond func(unit chunker.TextUnit, call int) (*question.Question, error)

	mu       sync.Mutex
	calls    map[int]int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    func(unit chunker.TextUnit) time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, unit chunker.TextUnit, _ question.Difficulty) (*question.Question, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[int]int)
	}
	f.calls[unit.Index]++
	call := f.calls[unit.Index]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(unit)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.respond != nil {
		return f.respond(unit, call)
	}
	return questionFor(unit), nil
}

func questionFor(unit chunker.TextUnit) *question.Question {
	return &question.Question{
		Prompt:        fmt.Sprintf("unit %d", unit.Index),
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: "b",
		Explanation:   "b it is",
	}
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(w, " ")
}

func newTestOrchestrator(gen Generator, store bank.Store, opts Options) *Orchestrator {
	o := NewOrchestrator(gen, bank.NewAssembler(store, nil), nil, opts)
	o.backoff = func(int) time.Duration { return 0 }
	return o
}

func cfg(n int) question.Configuration {
	return question.Configuration{TargetQuestionCount: n, Difficulty: question.Medium}
}

func prompts(qs []question.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Prompt
	}
	return out
}

func TestRun_OneUnitFailsOthersKeepOrder(t *testing.T) {
	gen := &fakeGenerator{respond: func(u chunker.TextUnit, _ int) (*question.Question, error) {
		if u.Index == 1 {
			return nil, errors.New("model unavailable")
		}
		return questionFor(u), nil
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{})

	report, err := o.Run(context.Background(), Request{
		Documents: []Upload{{Filename: "notes.txt", Data: []byte(words(30))}},
		Config:    cfg(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Units)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, 1, report.GenerationFailures)
	assert.Equal(t, 1, report.FailureCount())
	assert.Equal(t, []string{"unit 0", "unit 2"}, prompts(report.Bank))
	assert.Equal(t, "notes.txt", report.Bank[0].Source)
	assert.Len(t, report.Failures, 1)
}

func TestGenerate_OrderIndependentOfCompletion(t *testing.T) {
	gen := &fakeGenerator{delay: func(u chunker.TextUnit) time.Duration {
		return time.Duration(8-u.Index) * 3 * time.Millisecond
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{MaxConcurrent: 8})

	units := chunker.Flatten(chunker.Split(chunker.Document{Source: "d", Text: words(80)}, cfg(8)))
	require.Len(t, units, 8)
	out := o.Generate(context.Background(), units, cfg(8))

	require.Len(t, out.Results, 8)
	for i, r := range out.Results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Unit.Index)
		assert.Equal(t, fmt.Sprintf("unit %d", i), r.Question.Prompt)
	}
}

func TestGenerate_BoundedConcurrency(t *testing.T) {
	gen := &fakeGenerator{delay: func(chunker.TextUnit) time.Duration { return 5 * time.Millisecond }}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{MaxConcurrent: 2})

	units := chunker.Flatten(chunker.Split(chunker.Document{Source: "d", Text: words(100)}, cfg(10)))
	out := o.Generate(context.Background(), units, cfg(10))
	assert.Len(t, out.Accepted(), 10)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
}

func TestGenerate_RetriesRetryableErrors(t *testing.T) {
	gen := &fakeGenerator{respond: func(u chunker.TextUnit, call int) (*question.Question, error) {
		if call < 3 {
			return nil, &generate.RetryableError{StatusCode: 429, Message: "slow down"}
		}
		return questionFor(u), nil
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{MaxRetries: 3})

	out := o.Generate(context.Background(), []chunker.TextUnit{{Text: "x", Source: "s"}}, cfg(1))
	require.NoError(t, out.Results[0].Err)
	assert.Equal(t, 3, gen.calls[0])
}

func TestGenerate_GivesUpAfterMaxRetries(t *testing.T) {
	gen := &fakeGenerator{respond: func(chunker.TextUnit, int) (*question.Question, error) {
		return nil, &generate.RetryableError{StatusCode: 503}
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{MaxRetries: 2})

	out := o.Generate(context.Background(), []chunker.TextUnit{{Text: "x", Source: "s"}}, cfg(1))
	var gerr *GenerationError
	require.ErrorAs(t, out.Results[0].Err, &gerr)
	assert.Equal(t, 2, gerr.Attempts)
	assert.True(t, IsRetryable(gerr))
	assert.Equal(t, 2, gen.calls[0])
}

func TestGenerate_NonRetryableNotRetried(t *testing.T) {
	gen := &fakeGenerator{respond: func(chunker.TextUnit, int) (*question.Question, error) {
		return nil, errors.New("bad request")
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{MaxRetries: 5})
	o.Generate(context.Background(), []chunker.TextUnit{{Text: "x"}}, cfg(1))
	assert.Equal(t, 1, gen.calls[0])
}

func TestGenerate_NilAndMalformedResponses(t *testing.T) {
	gen := &fakeGenerator{respond: func(u chunker.TextUnit, _ int) (*question.Question, error) {
		switch u.Index {
		case 0:
			return nil, nil
		case 1:
			q := questionFor(u)
			q.Options = q.Options[:3]
			return q, nil
		case 2:
			q := questionFor(u)
			q.CorrectOption = "z"
			return q, nil
		case 3:
			q := questionFor(u)
			q.Explanation = ""
			return q, nil
		}
		return questionFor(u), nil
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{})
	units := []chunker.TextUnit{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}, {Index: 4}}
	out := o.Generate(context.Background(), units, cfg(5))

	assert.ErrorIs(t, out.Results[0].Err, generate.ErrEmptyResponse)
	var verr *question.ValidationError
	assert.ErrorAs(t, out.Results[1].Err, &verr)
	assert.ErrorAs(t, out.Results[2].Err, &verr)
	assert.ErrorAs(t, out.Results[3].Err, &verr)
	assert.NoError(t, out.Results[4].Err)
	assert.Len(t, out.Failures(), 4)
	assert.Equal(t, []string{"unit 4"}, prompts(out.Accepted()))
}

func TestRun_CountsFailureCategories(t *testing.T) {
	gen := &fakeGenerator{respond: func(u chunker.TextUnit, _ int) (*question.Question, error) {
		if u.Index == 0 {
			q := questionFor(u)
			q.Options = []string{"a", "a", "b", "c"}
			return q, nil
		}
		return questionFor(u), nil
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{})

	report, err := o.Run(context.Background(), Request{
		Documents: []Upload{
			{Filename: "tiny.txt", Data: []byte("too short")},
			{Filename: "slides.pptx", Data: []byte(words(40))},
			{Filename: "good.md", Data: []byte(words(20))},
		},
		Config: cfg(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 2, report.ExtractionFailures)
	assert.Equal(t, 1, report.ValidationFailures)
	assert.Equal(t, 0, report.GenerationFailures)
	assert.Equal(t, 1, report.Accepted)
	assert.Len(t, report.Failures, 3)
	assert.Contains(t, report.Failures[0], "tiny.txt")
}

func TestRun_AllUnitsFailIsNotAnError(t *testing.T) {
	gen := &fakeGenerator{respond: func(chunker.TextUnit, int) (*question.Question, error) {
		return nil, errors.New("down")
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{})
	report, err := o.Run(context.Background(), Request{
		Documents: []Upload{{Filename: "n.txt", Data: []byte(words(20))}},
		Config:    cfg(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accepted)
	assert.Empty(t, report.Questions)
	assert.NotNil(t, report.Questions)
	assert.Equal(t, 2, report.GenerationFailures)
}

func TestRun_MultipleDocumentsFlattenInOrder(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, bank.NewMemoryStore(), Options{MaxConcurrent: 3})
	report, err := o.Run(context.Background(), Request{
		Documents: []Upload{
			{Filename: "a.txt", Data: []byte(words(20))},
			{Filename: "b.txt", Data: []byte(words(20))},
		},
		Config: cfg(2),
	})
	require.NoError(t, err)
	require.Len(t, report.Bank, 4)
	assert.Equal(t, []string{"unit 0", "unit 1", "unit 2", "unit 3"}, prompts(report.Bank))
	assert.Equal(t, "a.txt", report.Bank[1].Source)
	assert.Equal(t, "b.txt", report.Bank[2].Source)
}

type brokenStore struct{ bank.MemoryStore }

func (b *brokenStore) Append(context.Context, []question.Question) error {
	return &bank.StoreError{Op: "append", Err: errors.New("read-only filesystem")}
}

func TestRun_StoreFailureIsReturned(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, &brokenStore{}, Options{})
	_, err := o.Run(context.Background(), Request{
		Documents: []Upload{{Filename: "n.txt", Data: []byte(words(20))}},
		Config:    cfg(1),
	})
	var serr *bank.StoreError
	require.ErrorAs(t, err, &serr)
}

func TestRun_InvalidConfiguration(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, bank.NewMemoryStore(), Options{})
	_, err := o.Run(context.Background(), Request{Config: question.Configuration{TargetQuestionCount: 0, Difficulty: question.Easy}})
	require.Error(t, err)
}

func TestRun_CancelledContextDiscardsUnits(t *testing.T) {
	gen := &fakeGenerator{delay: func(chunker.TextUnit) time.Duration { return time.Second }}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	report, err := o.Run(ctx, Request{
		Documents: []Upload{{Filename: "n.txt", Data: []byte(words(20))}},
		Config:    cfg(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accepted)
	assert.Equal(t, 2, report.GenerationFailures)
}

func TestSubmit_AsyncJobCompletes(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, bank.NewMemoryStore(), Options{Workers: 1})
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob([]Upload{{Filename: "n.txt", Data: []byte(words(30))}}, cfg(3))
	require.NoError(t, o.Submit(job))

	require.Eventually(t, func() bool {
		s := o.GetJob(job.ID).Snapshot()
		return s.Status == StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	snap := o.GetJob(job.ID).Snapshot()
	assert.Equal(t, 3, snap.Progress.TotalUnits)
	assert.Equal(t, 3, snap.Progress.UnitsProcessed)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 3, snap.Report.Accepted)
}

func TestSubmit_PartialAndFailedJobs(t *testing.T) {
	gen := &fakeGenerator{respond: func(u chunker.TextUnit, _ int) (*question.Question, error) {
		if u.Source == "bad.txt" || u.Index == 0 {
			return nil, errors.New("nope")
		}
		return questionFor(u), nil
	}}
	o := newTestOrchestrator(gen, bank.NewMemoryStore(), Options{Workers: 2})
	o.Start(context.Background())
	defer o.Stop()

	partial := NewJob([]Upload{{Filename: "ok.txt", Data: []byte(words(30))}}, cfg(3))
	failed := NewJob([]Upload{{Filename: "bad.txt", Data: []byte(words(30))}}, cfg(3))
	require.NoError(t, o.Submit(partial))
	require.NoError(t, o.Submit(failed))

	require.Eventually(t, func() bool {
		return partial.Snapshot().Status == StatusPartial && failed.Snapshot().Status == StatusFailed
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSubmit_QueueFull(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, bank.NewMemoryStore(), Options{QueueSize: 1})
	// Not started: nothing drains the queue.
	require.NoError(t, o.Submit(NewJob(nil, cfg(1))))
	job := NewJob(nil, cfg(1))
	require.Error(t, o.Submit(job))
	assert.Equal(t, StatusFailed, job.Snapshot().Status)
}

func TestSubmit_AfterStop(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, bank.NewMemoryStore(), Options{})
	o.Start(context.Background())
	o.Stop()

	job := NewJob(nil, cfg(1))
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, o.Submit(job), ErrStopped)
	})
	assert.Equal(t, StatusFailed, job.Snapshot().Status)
	assert.Nil(t, o.GetJob(job.ID))

	assert.NotPanics(t, o.Stop, "second Stop is a no-op")
}
