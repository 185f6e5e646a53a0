package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/generate"
	"github.com/dgallion1/docquiz/internal/question"
	"golang.org/x/sync/errgroup"
)

// Generator produces one question for one unit of text.
type Generator interface {
	Generate(ctx context.Context, unit chunker.TextUnit, difficulty question.Difficulty) (*question.Question, error)
}

// UnitResult is the outcome for one unit: either a validated Question or the
// reason there is none.
type UnitResult struct {
	Unit     chunker.TextUnit
	Question *question.Question
	Err      error
}

// Outcome holds one result per input unit, in input order.
type Outcome struct {
	Results []UnitResult
}

// Accepted returns the generated questions in unit order.
func (o Outcome) Accepted() []question.Question {
	var out []question.Question
	for _, r := range o.Results {
		if r.Err == nil && r.Question != nil {
			out = append(out, *r.Question)
		}
	}
	return out
}

// Failures returns the results that produced no question.
func (o Outcome) Failures() []UnitResult {
	var out []UnitResult
	for _, r := range o.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Generate calls the generator once per unit with bounded concurrency. A
// failed or malformed response only affects its own unit. Results keep the
// order of units regardless of completion order.
func (o *Orchestrator) Generate(ctx context.Context, units []chunker.TextUnit, cfg question.Configuration) Outcome {
	return o.generateUnits(ctx, units, cfg, nil)
}

func (o *Orchestrator) generateUnits(ctx context.Context, units []chunker.TextUnit, cfg question.Configuration, job *Job) Outcome {
	results := make([]UnitResult, len(units))
	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrent)
	for i, unit := range units {
		g.Go(func() error {
			results[i] = o.generateUnit(ctx, unit, cfg.Difficulty)
			job.IncrUnitsProcessed()
			return nil
		})
	}
	_ = g.Wait()
	return Outcome{Results: results}
}

func (o *Orchestrator) generateUnit(ctx context.Context, unit chunker.TextUnit, difficulty question.Difficulty) UnitResult {
	log := o.log.With("source", unit.Source, "unit", unit.Index)
	res := UnitResult{Unit: unit}

	var lastErr error
	attempts := 0
	for attempt := range o.opts.MaxRetries {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		q, err := o.gen.Generate(callCtx, unit, difficulty)
		cancel()
		if err == nil && q == nil {
			err = generate.ErrEmptyResponse
		}
		if err == nil {
			question.Normalize(q)
			if verr := question.Validate(q); verr != nil {
				log.Warn("malformed question rejected", "error", verr)
				res.Err = verr
				return res
			}
			if q.Source == "" {
				q.Source = unit.Source
			}
			res.Question = q
			return res
		}

		lastErr = err
		if !IsRetryable(err) || attempt == o.opts.MaxRetries-1 {
			break
		}
		log.Warn("retryable generation error", "attempt", attempt, "error", err)
		select {
		case <-time.After(o.backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	if errors.Is(lastErr, context.Canceled) {
		log.Info("generation cancelled")
	} else {
		log.Error("generation failed", "attempts", attempts, "error", lastErr)
	}
	res.Err = &GenerationError{Source: unit.Source, Index: unit.Index, Attempts: attempts, Err: lastErr}
	return res
}
