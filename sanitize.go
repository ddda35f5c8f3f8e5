package logging

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Fields is the plain keyed structure exchanged between the sanitizer, the
// dispatcher and child loggers. The sanitizer emits Fields for every keyed
// container it flattens and treats incoming Fields as plain records, so a
// sanitized payload passes through a second run untouched.
type Fields map[string]any

// valueKind is the explicit classification every payload value goes through
// before any sanitization rule is applied.
type valueKind uint8

const (
	kindScalar valueKind = iota
	kindSequence
	kindKeyedContainer
	kindPlainRecord
	kindError
)

// classifyValue tags v with the variant that decides its sanitization rule.
// Errors are recognized first so error types that happen to be structs are
// left to the dispatcher. Self-serializing values (json/text marshalers,
// stringers, byte slices) count as scalars. Native maps are the keyed
// containers subject to depth limiting; Fields and structs are plain records.
func classifyValue(v any) valueKind {
	if v == nil {
		return kindScalar
	}

	switch v.(type) {
	case error:
		return kindError
	case Fields:
		return kindPlainRecord
	case []byte, json.Marshaler, encoding.TextMarshaler, fmt.Stringer:
		return kindScalar
	}

	val, ok := concreteValue(v)
	if !ok {
		return kindScalar
	}

	switch val.Kind() {
	case reflect.Map:
		return kindKeyedContainer
	case reflect.Slice, reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return kindScalar
		}
		return kindSequence
	case reflect.Struct:
		return kindPlainRecord
	default:
		return kindScalar
	}
}

// concreteValue unwraps pointers and interfaces. The boolean is false when
// the chain ends in nil.
func concreteValue(v any) (reflect.Value, bool) {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return val, false
		}
		val = val.Elem()
	}
	return val, true
}

// sanitizeContext carries the bounds for one log call. Every argument of the
// call is sanitized with the same context.
type sanitizeContext struct {
	maxDepth  int
	maxString int
	marker    string
}

// sanitize returns a serialization-safe rendering of v: keyed containers are
// flattened to Fields down to the depth bound, sequences and plain records
// are traversed without consuming depth, strings are truncated to the length
// bound, and errors pass through untouched. Subtrees that needed no change
// come back as the original value, so sanitized output re-enters unchanged.
//
// Cycles are only guarded where the depth bound applies; a cyclic chain of
// plain records is the caller's bug, not this function's.
func (sc sanitizeContext) sanitize(v any) any {
	out, _ := sc.walk(v, sc.maxDepth)
	return out
}

// walk applies the sanitization rules and reports whether the result differs
// from the input.
func (sc sanitizeContext) walk(v any, depth int) (any, bool) {
	switch classifyValue(v) {
	case kindError:
		return v, false

	case kindKeyedContainer:
		if depth <= 0 {
			return maxDepthSentinel, true
		}
		return sc.walkKeyed(v, depth-1)

	case kindSequence:
		return sc.walkSequence(v, depth)

	case kindPlainRecord:
		if f, ok := v.(Fields); ok {
			return sc.walkFields(f, depth)
		}
		return sc.walkStruct(v, depth)

	default:
		if s, ok := v.(string); ok {
			// the depth sentinel is exempt from the string bound so a
			// collapsed payload re-enters unchanged
			if s == maxDepthSentinel {
				return s, false
			}
			return sc.truncate(s)
		}
		if sc.maxString > 0 {
			if val, ok := concreteValue(v); ok && val.Kind() == reflect.String {
				if out, changed := sc.truncate(val.String()); changed {
					return out, true
				}
			}
		}
		return v, false
	}
}

// walkKeyed flattens a native map into Fields, coercing keys to strings and
// recursing on values with one level of depth budget spent. The result is
// always a new value: the container type itself changes.
func (sc sanitizeContext) walkKeyed(v any, depth int) (any, bool) {
	val, ok := concreteValue(v)
	if !ok {
		return v, false
	}

	out := make(Fields, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		key := coerceKey(iter.Key())
		elem, _ := sc.walk(iter.Value().Interface(), depth)
		out[key] = elem
	}
	return out, true
}

// walkSequence recurses element-wise, preserving order and length. Depth is
// deliberately not consumed: only keyed containers spend the budget.
func (sc sanitizeContext) walkSequence(v any, depth int) (any, bool) {
	val, ok := concreteValue(v)
	if !ok {
		return v, false
	}

	n := val.Len()
	out := make([]any, n)
	changed := false
	for i := 0; i < n; i++ {
		elem, c := sc.walk(val.Index(i).Interface(), depth)
		out[i] = elem
		changed = changed || c
	}
	if !changed {
		return v, false
	}
	return out, true
}

// walkFields recurses over an existing Fields value without consuming depth.
func (sc sanitizeContext) walkFields(f Fields, depth int) (any, bool) {
	out := make(Fields, len(f))
	changed := false
	for k, v := range f {
		elem, c := sc.walk(v, depth)
		out[k] = elem
		changed = changed || c
	}
	if !changed {
		return f, false
	}
	return out, true
}

// walkStruct recurses over the exported fields of a struct without consuming
// depth. When nothing inside needed sanitization the original value is
// returned so the sink can serialize it with its own marshaling rules;
// otherwise the struct degrades to Fields keyed by json tag names.
func (sc sanitizeContext) walkStruct(v any, depth int) (any, bool) {
	val, ok := concreteValue(v)
	if !ok {
		return v, false
	}

	typ := val.Type()
	out := make(Fields, typ.NumField())
	changed := false
	for i := 0; i < typ.NumField(); i++ {
		fieldVal := val.Field(i)
		if !fieldVal.CanInterface() {
			continue
		}

		name, omit := jsonFieldName(typ.Field(i))
		if omit {
			continue
		}

		elem, c := sc.walk(fieldVal.Interface(), depth)
		out[name] = elem
		changed = changed || c
	}
	if !changed {
		return v, false
	}
	return out, true
}

// materializeFields sanitizes v and coerces the result into Fields suitable
// for a structured record body. Keyed containers already come back as Fields;
// structs the sanitizer left alone are flattened one level here. Anything
// else, such as a payload collapsed to the depth sentinel, is kept under a
// context key. The result may alias the input when nothing changed, so
// callers mutate copies only.
func (sc sanitizeContext) materializeFields(v any) Fields {
	out := sc.sanitize(v)
	if f, ok := out.(Fields); ok {
		return f
	}
	if out == nil {
		return Fields{}
	}
	if val, ok := concreteValue(out); ok && val.Kind() == reflect.Struct {
		return structFields(val)
	}
	return Fields{fieldNameContext: out}
}

// structFields flattens the exported fields of a struct one level into
// Fields keyed by json tag names. Values are carried as-is.
func structFields(val reflect.Value) Fields {
	typ := val.Type()
	out := make(Fields, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		fieldVal := val.Field(i)
		if !fieldVal.CanInterface() {
			continue
		}

		name, omit := jsonFieldName(typ.Field(i))
		if omit {
			continue
		}
		out[name] = fieldVal.Interface()
	}
	return out
}

// truncate shortens s to the configured rune count and appends the marker.
// A zero or negative bound disables truncation.
func (sc sanitizeContext) truncate(s string) (string, bool) {
	if sc.maxString <= 0 || utf8.RuneCountInString(s) <= sc.maxString {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:sc.maxString]) + sc.marker, true
}

// coerceKey renders a map key as a string the way fmt would.
func coerceKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

// jsonFieldName resolves the output key for a struct field, honoring json
// tags the way encoding/json does. The boolean reports a field excluded by a
// "-" tag.
func jsonFieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == emptyString {
		return field.Name, false
	}
	if tag == "-" {
		return emptyString, true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == emptyString {
		return field.Name, false
	}
	return name, false
}
