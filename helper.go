package logging

import (
	stderrs "errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
)

const levelSilent = "silent"

// parseLevel parses a string log level into a zerolog.Level. The facade's
// "silent" alias maps to zerolog.Disabled. Returns zerolog.NoLevel and an
// error if parsing fails.
func parseLevel(level string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == levelSilent {
		return zerolog.Disabled, nil
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, err
	}
	return l, nil
}

// levelName renders a zerolog level in the facade's vocabulary, where
// Disabled reads back as "silent".
func levelName(l zerolog.Level) string {
	if l == zerolog.Disabled {
		return levelSilent
	}
	return l.String()
}

// boolDefaultTrue implements the "on unless explicitly false" convention used
// for safe behaviors such as console output, mkdir and append.
func boolDefaultTrue(v string) bool {
	return !strings.EqualFold(strings.TrimSpace(v), "false")
}

// boolDefaultFalse implements the "off unless explicitly true" convention used
// for destructive or expensive behaviors such as rotation and file output.
func boolDefaultFalse(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// diagOut receives the facade's own diagnostics. The logger may be broken or
// not yet built when these fire, so they bypass it entirely.
var diagOut io.Writer = os.Stderr

func diagf(format string, args ...any) {
	fmt.Fprintf(diagOut, "logging: "+format+"\n", args...)
}

// execName returns the running executable's base name without extension.
func execName() string {
	p, err := os.Executable()
	if err != nil || p == emptyString {
		return "app"
	}
	name := filepath.Base(p)
	if ext := filepath.Ext(name); ext != emptyString {
		name = strings.TrimSuffix(name, ext)
	}
	if name == emptyString || name == "." {
		return "app"
	}
	return name
}

// appMetadata resolves the application name and version used by filename
// templates. Build info is preferred; stripped binaries fall back to the
// executable name and an unknown version.
func appMetadata() (name, version string) {
	name = execName()
	version = "unknown"
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return name, version
	}
	if base := path.Base(bi.Main.Path); base != emptyString && base != "." {
		name = base
	}
	if bi.Main.Version != emptyString {
		version = bi.Main.Version
	}
	return name, version
}

// hostName returns the machine hostname, or "localhost" when unavailable.
func hostName() string {
	h, err := os.Hostname()
	if err != nil || h == emptyString {
		return "localhost"
	}
	return h
}

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// The traversal prefers DetailedError.Cause() and then falls back to stdlib
// errors.Unwrap. It guards against excessive depth and repeated messages to
// avoid cycles.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	const maxDepth = 50
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxDepth {
		visited++

		if dErr, ok := AsDetailedError(err); ok && dErr != nil {
			msg := dErr.Error()
			chain = append(chain, msg)
			op := string(dErr.Op())
			ops = append(ops, op)
			// prefer unwrapping via our error type first
			err = dErr.Cause()
			continue
		}

		// Fallback: generic error
		msg := err.Error()
		// avoid infinite loops if messages repeat due to unusual cycles
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)
		ops = append(ops, emptyString)
		// unwrap via stdlib
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return emptyString
	}
	return strings.Join(chain, " -> ")
}
