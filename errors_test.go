package logging

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type selfWrappingError struct{}

func (selfWrappingError) Error() string { return "loop" }

func (e selfWrappingError) Unwrap() error { return e }

func TestErrorBuilder(t *testing.T) {
	cause := errors.New("io failure")
	err := newError("logging.test").Code("EIO").Err(cause).Msg("operation failed")

	dErr, ok := AsDetailedError(err)
	require.True(t, ok)
	assert.Equal(t, "operation failed", dErr.Error())
	assert.Equal(t, Op("logging.test"), dErr.Op())
	assert.Equal(t, "EIO", dErr.Code())
	assert.Equal(t, cause, dErr.Cause())
	assert.NotEmpty(t, dErr.Stack())
	assert.ErrorIs(t, err, cause)
}

func TestErrorBuilderMsgf(t *testing.T) {
	err := newError("logging.test").Msgf("failed after %d tries", 3)
	assert.Equal(t, "failed after 3 tries", err.Error())
}

func TestErrorBuilderErrorf(t *testing.T) {
	cause := errors.New("connection reset")
	err := newError("logging.test").Errorf("dial %s: %w", "db:5432", cause)

	assert.Equal(t, "dial db:5432: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	dErr, ok := AsDetailedError(err)
	require.True(t, ok)
	assert.Equal(t, cause, dErr.Cause())
}

func TestDetailedErrorNilSafety(t *testing.T) {
	var e *DetailedError

	assert.Equal(t, emptyString, e.Error())
	assert.Equal(t, Op(emptyString), e.Op())
	assert.Equal(t, emptyString, e.Code())
	assert.Nil(t, e.Cause())
	assert.Nil(t, e.Stack())
	assert.Nil(t, e.Unwrap())
}

func TestAsDetailedError(t *testing.T) {
	t.Run("direct value", func(t *testing.T) {
		err := newError("op.direct").Msg("boom")
		dErr, ok := AsDetailedError(err)
		require.True(t, ok)
		assert.Equal(t, Op("op.direct"), dErr.Op())
	})

	t.Run("does not search wrapped chains", func(t *testing.T) {
		inner := newError("op.inner").Msg("boom")
		wrapped := fmt.Errorf("outer: %w", inner)
		_, ok := AsDetailedError(wrapped)
		assert.False(t, ok)
	})

	t.Run("nil error", func(t *testing.T) {
		_, ok := AsDetailedError(nil)
		assert.False(t, ok)
	})
}

func TestCaptureStack(t *testing.T) {
	frames := captureStack(2)
	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0], "TestCaptureStack")
	assert.Contains(t, frames[0], "errors_test.go:")
}

func TestBuildErrorChain(t *testing.T) {
	t.Run("detailed chain", func(t *testing.T) {
		inner := newError("db.Connect").Msg("connection refused")
		middle := newError("db.Open").Err(inner).Msg("failed to connect")
		outer := newError("server.Start").Err(middle).Msg("startup failed")

		chain, ops, root, rootOp := buildErrorChain(outer)
		assert.Equal(t, []string{"startup failed", "failed to connect", "connection refused"}, chain)
		assert.Equal(t, []string{"server.Start", "db.Open", "db.Connect"}, ops)
		assert.Equal(t, "connection refused", root)
		assert.Equal(t, "db.Connect", rootOp)
	})

	t.Run("standard wrapping", func(t *testing.T) {
		cause := errors.New("boom")
		wrapped := fmt.Errorf("wrap: %w", cause)

		chain, ops, root, rootOp := buildErrorChain(wrapped)
		assert.Equal(t, []string{"wrap: boom", "boom"}, chain)
		assert.Equal(t, []string{emptyString, emptyString}, ops)
		assert.Equal(t, "boom", root)
		assert.Equal(t, emptyString, rootOp)
	})

	t.Run("mixed chain", func(t *testing.T) {
		cause := errors.New("refused")
		detailed := newError("db.Connect").Errorf("dial failed: %w", cause)

		chain, ops, root, rootOp := buildErrorChain(detailed)
		assert.Equal(t, []string{"dial failed: refused", "refused"}, chain)
		assert.Equal(t, []string{"db.Connect", emptyString}, ops)
		assert.Equal(t, "refused", root)
		assert.Equal(t, emptyString, rootOp)
	})

	t.Run("single error", func(t *testing.T) {
		err := errors.New("alone")
		chain, _, root, _ := buildErrorChain(err)
		assert.Equal(t, []string{"alone"}, chain)
		assert.Equal(t, "alone", root)
	})

	t.Run("nil error", func(t *testing.T) {
		chain, ops, root, rootOp := buildErrorChain(nil)
		assert.Empty(t, chain)
		assert.Empty(t, ops)
		assert.Equal(t, emptyString, root)
		assert.Equal(t, emptyString, rootOp)
	})

	t.Run("self wrapping error terminates", func(t *testing.T) {
		chain, _, root, _ := buildErrorChain(selfWrappingError{})
		assert.Equal(t, []string{"loop"}, chain)
		assert.Equal(t, "loop", root)
	})
}

func TestJoinChain(t *testing.T) {
	assert.Equal(t, "a -> b -> c", joinChain([]string{"a", "b", "c"}))
	assert.Equal(t, "a", joinChain([]string{"a"}))
	assert.Equal(t, emptyString, joinChain(nil))
}

func TestErrorChainDepthBound(t *testing.T) {
	err := newError("op.0").Msg("level 0")
	for i := 1; i < 80; i++ {
		err = newError("op.n").Err(err).Msgf("level %d", i)
	}

	chain, _, _, _ := buildErrorChain(err)
	assert.Len(t, chain, 50)
	assert.True(t, strings.HasPrefix(chain[0], "level 79"))
}
