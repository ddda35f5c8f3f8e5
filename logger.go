package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Logger is a namespaced logging handle over the shared sink. Handles are
// cheap; create one per subsystem and derive request-scoped children with
// Child. All methods are safe for concurrent use.
//
// Whether a handle actually emits is decided per call: the DEBUG filter
// expression is read from the environment at call time, so changing it at
// runtime silences or wakes handles that already exist.
type Logger struct {
	service   *Service
	namespace string
	fields    Fields
	instance  atomic.Pointer[zerolog.Logger]
}

// New returns a handle bound to the given namespace, initializing the shared
// sink on first use. An empty namespace is valid and bypasses the DEBUG
// filter. Sink construction failure is the only error path; a misconfigured
// transport degrades instead of failing.
func New(namespace string) (*Logger, error) {
	const op Op = "logging.New"

	svc, err := ensureShared()
	if err != nil {
		return nil, newError(op).Err(err).Msg(errMsgSinkInit)
	}

	base := svc.logger.Load()
	if base == nil {
		return nil, newError(op).Msg(errMsgSinkInit)
	}

	l := &Logger{
		service:   svc,
		namespace: strings.TrimSpace(namespace),
	}

	ctx := base.With()
	if l.namespace != emptyString {
		ctx = ctx.Str(fieldNameNamespace, l.namespace)
	}
	instance := ctx.Logger()
	l.instance.Store(&instance)
	return l, nil
}

// Child returns a new handle with fields merged into the bound context. The
// namespace is inherited, never overridden, so the child is filtered exactly
// like its parent. The child starts at the parent's current level and
// diverges only when its own level is set.
func (l *Logger) Child(fields Fields) *Logger {
	if l == nil {
		return nil
	}

	cur := l.instance.Load()
	if cur == nil {
		return l
	}

	normalized := l.service.bounds.materializeFields(fields)
	normalized = replaceErrField(normalized)

	child := &Logger{
		service:   l.service,
		namespace: l.namespace,
	}

	merged := make(Fields, len(l.fields)+len(normalized))
	for k, v := range l.fields {
		merged[k] = v
	}
	ctx := cur.With()
	for k, v := range normalized {
		merged[k] = v
		ctx = ctx.Interface(k, v)
	}
	child.fields = merged

	instance := ctx.Logger()
	child.instance.Store(&instance)
	return child
}

// Bindings returns a copy of the accumulated bound fields, including the
// namespace when one is set.
func (l *Logger) Bindings() Fields {
	if l == nil {
		return Fields{}
	}

	out := make(Fields, len(l.fields)+1)
	for k, v := range l.fields {
		out[k] = v
	}
	if l.namespace != emptyString {
		out[fieldNameNamespace] = l.namespace
	}
	return out
}

// Level returns the handle's active severity threshold name.
func (l *Logger) Level() string {
	if l == nil {
		return levelSilent
	}
	inst := l.instance.Load()
	if inst == nil {
		return levelSilent
	}
	return levelName(inst.GetLevel())
}

// SetLevel changes this handle's severity threshold without affecting other
// handles. Unrecognized names degrade to info with a diagnostic. "silent"
// disables the handle entirely.
func (l *Logger) SetLevel(level string) {
	lvl, err := parseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		diagf("invalid level %q, using %s", level, defaultLevelName)
		lvl = zerolog.InfoLevel
	}
	l.swapLevel(lvl)
}

// Silent disables all emission for this handle. Bound fields and namespace
// are untouched; SetLevel re-enables it.
func (l *Logger) Silent() {
	l.swapLevel(zerolog.Disabled)
}

// swapLevel installs a new handle instance at the given level using a
// compare-and-swap loop so concurrent updates never lose a writer.
func (l *Logger) swapLevel(lvl zerolog.Level) {
	if l == nil {
		return
	}
	for {
		old := l.instance.Load()
		if old == nil {
			return
		}
		updated := old.Level(lvl)

		// Try to swap - if another goroutine changed it, retry
		if l.instance.CompareAndSwap(old, &updated) {
			return
		}
	}
}

// IsLevelEnabled reports whether a call at the named level would currently
// emit: the namespace filter must pass and the handle's threshold must admit
// the level.
func (l *Logger) IsLevelEnabled(level string) bool {
	if l == nil {
		return false
	}
	lvl, err := parseLevel(level)
	if err != nil || lvl == zerolog.NoLevel || lvl == zerolog.Disabled {
		return false
	}
	if !l.namespaceEnabled() {
		return false
	}
	inst := l.instance.Load()
	if inst == nil {
		return false
	}
	cur := inst.GetLevel()
	return cur != zerolog.Disabled && lvl >= cur
}

// namespaceEnabled evaluates the DEBUG filter against the live environment.
func (l *Logger) namespaceEnabled() bool {
	return isNamespaceEnabled(l.namespace, os.Getenv(envDebug))
}

// Trace logs at trace level. See Info for the accepted call shapes.
func (l *Logger) Trace(args ...any) {
	l.emit(zerolog.TraceLevel, args)
}

// Debug logs at debug level. See Info for the accepted call shapes.
func (l *Logger) Debug(args ...any) {
	l.emit(zerolog.DebugLevel, args)
}

// Info logs at info level. The first argument picks the call shape: an
// error is bound as a structured err record, a map or struct becomes the
// record's fields, and a string is a message with optional printf-style
// placeholders interpolated from the remaining arguments. Calling with no
// arguments is a no-op.
func (l *Logger) Info(args ...any) {
	l.emit(zerolog.InfoLevel, args)
}

// Warn logs at warn level. See Info for the accepted call shapes.
func (l *Logger) Warn(args ...any) {
	l.emit(zerolog.WarnLevel, args)
}

// Error logs at error level. See Info for the accepted call shapes.
func (l *Logger) Error(args ...any) {
	l.emit(zerolog.ErrorLevel, args)
}

// Fatal logs at fatal severity. Unlike zerolog's Fatal it never exits the
// process; terminating is the caller's decision.
func (l *Logger) Fatal(args ...any) {
	l.emit(zerolog.FatalLevel, args)
}
