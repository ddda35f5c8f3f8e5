package logging

import (
	stderrs "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// callShape is the variant selected by a log call's first argument. The
// classification happens once per call and the emission path branches on it,
// keeping type checks out of the hot path.
type callShape uint8

const (
	shapeMessage callShape = iota
	shapeError
	shapeContext
)

// classifyCall maps the first argument onto an emission path: errors carry
// a normalized err record, maps and structs become the record's fields, and
// everything else, sequences and non-string scalars included, is rendered
// into the message text.
func classifyCall(first any) callShape {
	switch classifyValue(first) {
	case kindError:
		return shapeError
	case kindKeyedContainer, kindPlainRecord:
		return shapeContext
	default:
		return shapeMessage
	}
}

// emit is the single funnel behind every severity method. The namespace
// filter is evaluated against the live environment on every call, then the
// handle's threshold, then the first argument picks the shape. A panic while
// rendering one call is confined to that call.
func (l *Logger) emit(level zerolog.Level, args []any) {
	if l == nil || len(args) == 0 {
		return
	}
	if !l.namespaceEnabled() {
		return
	}

	inst := l.instance.Load()
	if inst == nil {
		return
	}
	event := inst.WithLevel(level)
	if event == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			diagf("%s log call failed: %v", levelName(level), r)
		}
	}()

	sc := l.service.bounds
	first, rest := args[0], args[1:]

	switch classifyCall(first) {
	case shapeError:
		err := first.(error)
		event.Interface(fieldNameErr, errorRecord(err))
		finishEvent(event, sc, rest)

	case shapeContext:
		fields := replaceErrField(sc.materializeFields(first))
		event.Fields(map[string]interface{}(fields))
		finishEvent(event, sc, rest)

	default:
		event.Msg(renderMessage(sc, first, rest))
	}
}

// finishEvent terminates an event whose first argument was structural,
// treating any remaining arguments as the message path. No remaining
// arguments means a record without a message.
func finishEvent(event *zerolog.Event, sc sanitizeContext, rest []any) {
	if len(rest) == 0 {
		event.Send()
		return
	}
	event.Msg(renderMessage(sc, rest[0], rest[1:]))
}

// renderMessage builds the message text. A string head followed by arguments
// is interpolated printf-style and the format text itself is left unbounded;
// a lone string head is subject to the string bound like any payload string.
// Non-string heads are stringified and joined with the remaining arguments.
func renderMessage(sc sanitizeContext, head any, args []any) string {
	if s, ok := head.(string); ok {
		if len(args) == 0 {
			out, _ := sc.truncate(s)
			return out
		}
		return interpolate(sc, s, args)
	}

	if len(args) == 0 {
		return stringifyArg(sc, head)
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, stringifyArg(sc, head))
	for _, a := range args {
		parts = append(parts, stringifyArg(sc, a))
	}
	return strings.Join(parts, " ")
}

// interpolate substitutes placeholder verbs in format from args, consuming
// them left to right. %j, %o and %O render their argument as JSON, the other
// supported verbs stringify it, %% emits a literal percent. Unsupported
// verbs and placeholders with no argument left pass through literally;
// surplus arguments are appended space-separated. Arguments are sanitized
// individually; the format text is not.
func interpolate(sc sanitizeContext, format string, args []any) string {
	sb := sprintPool.Get().(*strings.Builder)
	defer func() {
		sb.Reset()
		sprintPool.Put(sb)
	}()

	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			sb.WriteByte(c)
			continue
		}

		verb := format[i+1]
		if verb == '%' {
			sb.WriteByte('%')
			i++
			continue
		}
		if !supportedVerb(verb) || next >= len(args) {
			sb.WriteByte(c)
			continue
		}

		sb.WriteString(renderVerb(sc, verb, args[next]))
		next++
		i++
	}

	for ; next < len(args); next++ {
		sb.WriteByte(' ')
		sb.WriteString(stringifyArg(sc, args[next]))
	}
	return sb.String()
}

func supportedVerb(v byte) bool {
	switch v {
	case 's', 'd', 'f', 'v', 'j', 'o', 'O':
		return true
	}
	return false
}

func renderVerb(sc sanitizeContext, verb byte, arg any) string {
	switch verb {
	case 'j', 'o', 'O':
		return jsonString(sc.sanitize(arg))
	default:
		return stringifyArg(sc, arg)
	}
}

// stringifyArg renders one message argument. Sanitization applies first so
// string and depth bounds hold inside containers; containers then render as
// JSON, errors as their message, everything else through fmt.
func stringifyArg(sc sanitizeContext, v any) string {
	out := sc.sanitize(v)
	switch t := out.(type) {
	case string:
		return t
	case error:
		return t.Error()
	}

	switch classifyValue(out) {
	case kindKeyedContainer, kindSequence, kindPlainRecord:
		return jsonString(out)
	}
	return fmt.Sprint(out)
}

func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// errorRecord normalizes an error into the structured form bound under the
// err key: message, concrete type name and stack always, code and op when
// the error carries them, and the flattened cause chain when there is one.
func errorRecord(err error) Fields {
	rec := Fields{
		"message": err.Error(),
		"type":    errorTypeName(err),
		"stack":   errorStack(err),
	}

	if dErr, ok := AsDetailedError(err); ok && dErr != nil {
		if code := dErr.Code(); code != emptyString {
			rec["code"] = code
		}
		if op := dErr.Op(); op != emptyString {
			rec["op"] = string(op)
		}
	}

	if chain, _, root, _ := buildErrorChain(err); len(chain) > 1 {
		rec["chain"] = joinChain(chain)
		rec["root"] = root
	}
	return rec
}

// errorStack returns the first captured stack in the cause chain. Errors
// that never carried one get the stack of the log call itself, which is the
// closest a runtime error value comes to a creation site.
func errorStack(err error) []string {
	const maxDepth = 50
	for depth := 0; err != nil && depth < maxDepth; depth++ {
		if dErr, ok := AsDetailedError(err); ok && dErr != nil {
			if stack := dErr.Stack(); len(stack) > 0 {
				return stack
			}
			err = dErr.Cause()
			continue
		}
		err = stderrs.Unwrap(err)
	}
	return captureStack(3)
}

// errorTypeName reports the concrete type behind err with pointers
// dereferenced, the Go analogue of a constructor name.
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "error"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != emptyString {
		return name
	}
	return t.String()
}

// replaceErrField substitutes an error-valued err entry with its normalized
// record. The input may alias a caller-owned map, so the replacement happens
// on a copy.
func replaceErrField(fields Fields) Fields {
	v, ok := fields[fieldNameErr]
	if !ok {
		return fields
	}
	err, ok := v.(error)
	if !ok || err == nil {
		return fields
	}

	out := make(Fields, len(fields))
	for k, val := range fields {
		out[k] = val
	}
	out[fieldNameErr] = errorRecord(err)
	return out
}
