package logging

import (
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Settings is a snapshot of the environment keys the facade consumes, taken
// once when the shared sink is built. DEBUG is deliberately absent: the
// namespace filter reads it live so runtime changes reach existing handles.
type Settings struct {
	k *koanf.Koanf
}

// loadSettings captures LOG_* and TRANSPORT* environment variables into a
// koanf snapshot.
func loadSettings() (*Settings, error) {
	const op Op = "logging.loadSettings"

	k := koanf.New(".")
	if err := k.Load(env.Provider(emptyString, ".", settingsKeyTransform), nil); err != nil {
		return nil, newError(op).Err(err).Msg("Failed to read environment settings.")
	}
	return &Settings{k: k}, nil
}

// settingsKeyTransform keeps the facade's own keys and blanks everything
// else so unrelated environment variables never pollute the snapshot.
func settingsKeyTransform(key string) string {
	switch {
	case strings.HasPrefix(key, "LOG_"), strings.HasPrefix(key, transportKeyPrefix):
		return strings.ToLower(key)
	default:
		return emptyString
	}
}

// value returns the raw string for an environment key, "" when unset.
func (s *Settings) value(key string) string {
	if s == nil || s.k == nil {
		return emptyString
	}
	return s.k.String(strings.ToLower(key))
}

// has reports whether the key was present in the environment, even with an
// empty value.
func (s *Settings) has(key string) bool {
	if s == nil || s.k == nil {
		return false
	}
	return s.k.Exists(strings.ToLower(key))
}

// intValue parses an integer key, falling back with a diagnostic on garbage.
func (s *Settings) intValue(key string, fallback int) int {
	v := s.value(key)
	if v == emptyString {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		diagf("invalid %s value %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// transportKind returns the TRANSPORT{n} kind value for a 1-based index.
func (s *Settings) transportKind(n int) string {
	return s.value(transportKeyPrefix + strconv.Itoa(n))
}

// hasTransport reports whether TRANSPORT{n} is defined at all.
func (s *Settings) hasTransport(n int) bool {
	return s.has(transportKeyPrefix + strconv.Itoa(n))
}

// transportField returns TRANSPORT{n}_{field}, "" when unset.
func (s *Settings) transportField(n int, field string) string {
	return s.value(transportFieldKey(n, field))
}

// hasTransportField reports whether TRANSPORT{n}_{field} was set.
func (s *Settings) hasTransportField(n int, field string) bool {
	return s.has(transportFieldKey(n, field))
}

func transportFieldKey(n int, field string) string {
	var sb strings.Builder
	sb.WriteString(transportKeyPrefix)
	sb.WriteString(strconv.Itoa(n))
	sb.WriteByte('_')
	sb.WriteString(field)
	return sb.String()
}

// sanitization resolves the payload bounds from the snapshot.
func (s *Settings) sanitization() sanitizeContext {
	sc := sanitizeContext{
		maxDepth:  defaultMaxDepth,
		maxString: defaultMaxStringLen,
		marker:    defaultTruncationMark,
	}
	if s == nil {
		return sc
	}

	sc.maxDepth = s.intValue(envLogMaxDepth, defaultMaxDepth)
	sc.maxString = s.intValue(envLogMaxStringLength, defaultMaxStringLen)
	if s.has(envLogTruncationMark) {
		sc.marker = s.value(envLogTruncationMark)
	}
	return sc
}
