package datasource

import (
	"context"
	"errors"
	"strings"
)

// ErrHalt, when wrapped by a step's error, stops the chain without trying
// the remaining steps.
var ErrHalt = errors.New("halt chain")

// haltError carries the cause of a halting step.
type haltError struct {
	err error
}

func (e *haltError) Error() string        { return ErrHalt.Error() + ": " + e.err.Error() }
func (e *haltError) Unwrap() error        { return e.err }
func (e *haltError) Is(target error) bool { return target == ErrHalt }

// Halt wraps err so that Chain.Run stops after the current step. The halt
// applies only to the chain running the step: the recorded attempt holds
// err itself, so a chain nested inside another never stops its parent.
func Halt(err error) error {
	return &haltError{err: err}
}

// Step is one attempt in a fallback chain.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Attempt records a failed step.
type Attempt struct {
	Step string
	Err  error
}

// ChainError lists every failed attempt of an exhausted chain. Halted is
// set when a step stopped the chain early.
type ChainError struct {
	Attempts []Attempt
	Halted   bool
}

func (e *ChainError) Error() string {
	if len(e.Attempts) == 0 {
		return "no steps to try"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Step + ": " + a.Err.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the attempt errors to errors.Is / errors.As.
func (e *ChainError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Last returns the error of the final attempt, or nil.
func (e *ChainError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Chain evaluates steps in order, lazily, until one succeeds.
type Chain[T any] struct {
	steps []Step[T]
}

// NewChain creates a chain from steps.
func NewChain[T any](steps ...Step[T]) *Chain[T] {
	return &Chain[T]{steps: steps}
}

// Then appends a step and returns the chain.
func (c *Chain[T]) Then(name string, run func(ctx context.Context) (T, error)) *Chain[T] {
	c.steps = append(c.steps, Step[T]{Name: name, Run: run})
	return c
}

// Len returns the number of steps.
func (c *Chain[T]) Len() int { return len(c.steps) }

// Run returns the result and name of the first successful step. When every
// step fails, or a step halts the chain, it returns a *ChainError. A
// cancelled context stops the chain before the next step.
func (c *Chain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	failed := &ChainError{}
	for _, s := range c.steps {
		if err := ctx.Err(); err != nil {
			failed.Attempts = append(failed.Attempts, Attempt{Step: s.Name, Err: err})
			return zero, "", failed
		}
		v, err := s.Run(ctx)
		if err == nil {
			return v, s.Name, nil
		}
		var h *haltError
		if errors.As(err, &h) {
			failed.Attempts = append(failed.Attempts, Attempt{Step: s.Name, Err: h.err})
			failed.Halted = true
			break
		}
		failed.Attempts = append(failed.Attempts, Attempt{Step: s.Name, Err: err})
	}
	return zero, "", failed
}
