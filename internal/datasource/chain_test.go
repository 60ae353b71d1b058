package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestChainFirstSuccessIsLazy(t *testing.T) {
	var calls []string
	step := func(name string, v int, err error) func(context.Context) (int, error) {
		return func(context.Context) (int, error) {
			calls = append(calls, name)
			return v, err
		}
	}

	v, name, err := NewChain[int]().
		Then("a", step("a", 0, errBoom)).
		Then("b", step("b", 2, nil)).
		Then("c", step("c", 3, nil)).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, "b", name)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestChainExhausted(t *testing.T) {
	notFound := &ErrHTTP{StatusCode: 404, Status: "404 Not Found", URL: "u"}
	_, _, err := NewChain[string](
		Step[string]{Name: "one", Run: func(context.Context) (string, error) { return "", errBoom }},
		Step[string]{Name: "two", Run: func(context.Context) (string, error) { return "", notFound }},
	).Run(context.Background())

	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Attempts, 2)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsStatus(err, 404))
	assert.Equal(t, notFound, ce.Last())
	assert.Contains(t, err.Error(), "one: boom")
}

func TestChainHaltSkipsRemainingSteps(t *testing.T) {
	called := false
	_, _, err := NewChain[int]().
		Then("first", func(context.Context) (int, error) { return 0, Halt(errBoom) }).
		Then("second", func(context.Context) (int, error) { called = true; return 1, nil }).
		Run(context.Background())

	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	assert.False(t, called)
	assert.True(t, ce.Halted)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, errBoom, ce.Last())
	assert.NotErrorIs(t, err, ErrHalt)
}

func TestChainHaltStaysInNestedChain(t *testing.T) {
	inner := func(fail bool) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			v, _, err := NewChain[string]().
				Then("consolidated", func(context.Context) (string, error) {
					if fail {
						return "", Halt(errBoom)
					}
					return "page", nil
				}).
				Then("standalone", func(context.Context) (string, error) {
					t.Error("standalone step must not run after a halt")
					return "", nil
				}).
				Run(ctx)
			return v, err
		}
	}

	v, name, err := NewChain[string]().
		Then("A", inner(true)).
		Then("B", inner(false)).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "page", v)
	assert.Equal(t, "B", name)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, _, err := NewChain[int]().
		Then("x", func(context.Context) (int, error) { called = true; return 1, nil }).
		Run(ctx)

	assert.False(t, called)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyChain(t *testing.T) {
	c := NewChain[int]()
	assert.Zero(t, c.Len())
	_, _, err := c.Run(context.Background())
	assert.EqualError(t, err, "no steps to try")
}
