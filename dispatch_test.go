package logging

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCall(t *testing.T) {
	type request struct{ Method string }

	tests := []struct {
		name  string
		first any
		want  callShape
	}{
		{"error", errors.New("x"), shapeError},
		{"detailed error", newError("op").Msg("x"), shapeError},
		{"map", map[string]any{}, shapeContext},
		{"typed key map", map[int]string{}, shapeContext},
		{"fields", Fields{}, shapeContext},
		{"struct", request{}, shapeContext},
		{"struct pointer", &request{}, shapeContext},
		{"string", "msg", shapeMessage},
		{"int", 7, shapeMessage},
		{"bool", true, shapeMessage},
		{"nil", nil, shapeMessage},
		{"slice", []int{1, 2}, shapeMessage},
		{"byte slice", []byte("x"), shapeMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCall(tt.first))
		})
	}
}

func TestInterpolate(t *testing.T) {
	sc := testBounds()

	tests := []struct {
		name   string
		format string
		args   []any
		want   string
	}{
		{"string verb", "hello %s", []any{"world"}, "hello world"},
		{"number verbs", "%d of %f", []any{3, 1.5}, "3 of 1.5"},
		{"generic verb", "state %v", []any{true}, "state true"},
		{"json verb", "payload %j", []any{map[string]any{"a": 1}}, `payload {"a":1}`},
		{"object verbs", "%o %O", []any{Fields{"b": 2}, []int{1}}, `{"b":2} [1]`},
		{"literal percent", "100%% done", nil, "100% done"},
		{"trailing percent", "100%", nil, "100%"},
		{"unsupported verb passes through", "quote %q here", []any{"x"}, "quote %q here x"},
		{"placeholder without argument", "%s and %s", []any{"one"}, "one and %s"},
		{"surplus arguments appended", "done", []any{"a", 1}, "done a 1"},
		{"no placeholders no args", "plain text", nil, "plain text"},
		{"error argument", "failed: %s", []any{errors.New("boom")}, "failed: boom"},
		{"map argument stringified as json", "ctx %s", []any{map[string]any{"k": "v"}}, `ctx {"k":"v"}`},
		{"slice argument", "items %v", []any{[]int{1, 2}}, "items [1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, interpolate(sc, tt.format, tt.args))
		})
	}
}

func TestInterpolateAppliesStringBound(t *testing.T) {
	sc := sanitizeContext{maxDepth: defaultMaxDepth, maxString: 4, marker: "..."}

	t.Run("arguments are bounded", func(t *testing.T) {
		assert.Equal(t, "got abcd...", interpolate(sc, "got %s", []any{"abcdefgh"}))
	})

	t.Run("format text is not", func(t *testing.T) {
		assert.Equal(t, "abcdefgh x", interpolate(sc, "abcdefgh", []any{"x"}))
	})

	t.Run("strings inside json arguments are bounded", func(t *testing.T) {
		got := interpolate(sc, "%j", []any{map[string]any{"k": "abcdefgh"}})
		assert.Equal(t, `{"k":"abcd..."}`, got)
	})
}

func TestRenderMessage(t *testing.T) {
	t.Run("lone string is bounded", func(t *testing.T) {
		sc := sanitizeContext{maxDepth: defaultMaxDepth, maxString: 5, marker: "..."}
		assert.Equal(t, "abcde...", renderMessage(sc, "abcdefgh", nil))
	})

	t.Run("non-string head is stringified", func(t *testing.T) {
		sc := testBounds()
		assert.Equal(t, "42", renderMessage(sc, 42, nil))
	})

	t.Run("non-string head joins remaining arguments", func(t *testing.T) {
		sc := testBounds()
		assert.Equal(t, "[1,2] tail", renderMessage(sc, []int{1, 2}, []any{"tail"}))
	})

	t.Run("nil head", func(t *testing.T) {
		sc := testBounds()
		assert.Equal(t, "<nil>", renderMessage(sc, nil, nil))
	})
}

func TestStringifyArg(t *testing.T) {
	sc := testBounds()

	tests := []struct {
		name string
		v    any
		want string
	}{
		{"string", "plain", "plain"},
		{"int", 42, "42"},
		{"float", 2.5, "2.5"},
		{"bool", false, "false"},
		{"nil", nil, "<nil>"},
		{"error", errors.New("broken"), "broken"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
		{"slice", []string{"x", "y"}, `["x","y"]`},
		{"struct", struct {
			A int `json:"a"`
		}{A: 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stringifyArg(sc, tt.v))
		})
	}
}

func TestErrorRecord(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		rec := errorRecord(errors.New("boom"))

		assert.Equal(t, "boom", rec["message"])
		assert.Equal(t, "errorString", rec["type"])
		assert.NotEmpty(t, rec["stack"])
		assert.NotContains(t, rec, "code")
		assert.NotContains(t, rec, "op")
		assert.NotContains(t, rec, "chain")
		assert.NotContains(t, rec, "root")
	})

	t.Run("detailed error", func(t *testing.T) {
		inner := newError("db.Connect").Msg("connection refused")
		outer := newError("server.Start").Code("ESTART").Err(inner).Msg("startup failed")

		rec := errorRecord(outer)
		assert.Equal(t, "startup failed", rec["message"])
		assert.Equal(t, "DetailedError", rec["type"])
		assert.Equal(t, "ESTART", rec["code"])
		assert.Equal(t, "server.Start", rec["op"])
		assert.Equal(t, "startup failed -> connection refused", rec["chain"])
		assert.Equal(t, "connection refused", rec["root"])

		dErr, ok := AsDetailedError(outer)
		require.True(t, ok)
		assert.Equal(t, dErr.Stack(), rec["stack"])
	})

	t.Run("stack is found deeper in the chain", func(t *testing.T) {
		inner := newError("db.Connect").Msg("refused")
		wrapped := fmt.Errorf("outer: %w", inner)

		rec := errorRecord(wrapped)
		assert.Equal(t, "wrapError", rec["type"])

		dErr, ok := AsDetailedError(inner)
		require.True(t, ok)
		assert.Equal(t, dErr.Stack(), rec["stack"])
	})

	t.Run("wrapped errors carry the chain", func(t *testing.T) {
		rec := errorRecord(fmt.Errorf("outer: %w", errors.New("inner")))
		assert.Equal(t, "outer: inner -> inner", rec["chain"])
		assert.Equal(t, "inner", rec["root"])
	})
}

func TestErrorTypeName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"stdlib error", errors.New("x"), "errorString"},
		{"wrapped error", fmt.Errorf("w: %w", errors.New("x")), "wrapError"},
		{"detailed error", newError("op").Msg("x"), "DetailedError"},
		{"value type", selfWrappingError{}, "selfWrappingError"},
		{"nil", nil, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorTypeName(tt.err))
		})
	}
}

func TestReplaceErrField(t *testing.T) {
	t.Run("error value is normalized on a copy", func(t *testing.T) {
		cause := errors.New("boom")
		in := Fields{"err": cause, "user": "u1"}

		out := replaceErrField(in)
		rec, ok := out["err"].(Fields)
		require.True(t, ok)
		assert.Equal(t, "boom", rec["message"])
		assert.Equal(t, "u1", out["user"])

		// the caller's map is untouched
		assert.Equal(t, cause, in["err"])
	})

	t.Run("absent err key returns the same map", func(t *testing.T) {
		in := Fields{"a": 1}
		out := replaceErrField(in)
		assert.Equal(t, reflect.ValueOf(in).Pointer(), reflect.ValueOf(out).Pointer())
	})

	t.Run("non-error err value is left alone", func(t *testing.T) {
		in := Fields{"err": "just a string"}
		out := replaceErrField(in)
		assert.Equal(t, "just a string", out["err"])
	})
}
