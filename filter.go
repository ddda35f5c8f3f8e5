package logging

import (
	"regexp"
	"strings"
	"sync"
)

// filterPattern is one compiled token of a DEBUG-style filter expression.
// Bare "*" and "-*" never reach this type; they are tracked as catch-all
// flags on the owning filter.
type filterPattern struct {
	negate bool
	re     *regexp.Regexp
}

// namespaceFilter is a parsed filter expression. Patterns keep their textual
// order because a later match overrides an earlier one for the same
// namespace.
type namespaceFilter struct {
	patterns   []filterPattern
	enableAll  bool // bare "*" present
	disableAll bool // bare "-*" present
	blank      bool
}

// enabled reports whether namespace passes the filter.
//
// Blank expressions admit only unnamespaced callers. For namespaced callers
// every specific pattern is scanned in textual order and the last match sets
// the verdict; bare "*" and "-*" are the lowest-precedence catch-alls in
// their polarity and apply only when no specific pattern matched.
func (f *namespaceFilter) enabled(namespace string) bool {
	if f.blank {
		return namespace == emptyString
	}
	if namespace == emptyString {
		return f.enableAll && !f.disableAll
	}

	verdict := false
	matched := false
	for _, p := range f.patterns {
		if p.re.MatchString(namespace) {
			matched = true
			verdict = !p.negate
		}
	}
	if matched {
		return verdict
	}
	return f.enableAll && !f.disableAll
}

// parseFilter splits expr on commas and compiles each token. Malformed
// tokens degrade to never-match with a diagnostic; they never break the
// remaining patterns.
func parseFilter(expr string) *namespaceFilter {
	f := &namespaceFilter{}
	if strings.TrimSpace(expr) == emptyString {
		f.blank = true
		return f
	}

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == emptyString {
			continue
		}

		negate := strings.HasPrefix(token, "-")
		body := strings.TrimPrefix(token, "-")
		if body == emptyString {
			diagf("malformed namespace pattern %q ignored", token)
			continue
		}
		if body == "*" {
			if negate {
				f.disableAll = true
			} else {
				f.enableAll = true
			}
			continue
		}

		re, err := compilePattern(body)
		if err != nil {
			diagf("malformed namespace pattern %q ignored: %v", token, err)
			continue
		}
		f.patterns = append(f.patterns, filterPattern{negate: negate, re: re})
	}
	return f
}

// compilePattern turns a token into an anchored regex. Every "*" becomes an
// unbounded wildcard and the literal portions are quoted, so namespace
// separators like ":" and "." carry no regex meaning.
func compilePattern(body string) (*regexp.Regexp, error) {
	parts := strings.Split(body, "*")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

// filterCacheLimit bounds the compiled-expression cache. The cache is cleared
// wholesale when it fills.
const filterCacheLimit = 128

var filterCache = struct {
	mu      sync.RWMutex
	entries map[string]*namespaceFilter
}{entries: make(map[string]*namespaceFilter)}

// compileFilter returns the cached compiled form of expr, parsing it on first
// sight.
func compileFilter(expr string) *namespaceFilter {
	filterCache.mu.RLock()
	f, ok := filterCache.entries[expr]
	filterCache.mu.RUnlock()
	if ok {
		return f
	}

	f = parseFilter(expr)

	filterCache.mu.Lock()
	if len(filterCache.entries) >= filterCacheLimit {
		filterCache.entries = make(map[string]*namespaceFilter)
	}
	filterCache.entries[expr] = f
	filterCache.mu.Unlock()
	return f
}

// isNamespaceEnabled reports whether a namespace passes the given filter
// expression. It is evaluated per log call so runtime changes to the
// expression affect handles that already exist.
func isNamespaceEnabled(namespace, expr string) bool {
	return compileFilter(expr).enabled(namespace)
}
