// Package logging is a namespaced structured-logging facade over rs/zerolog
// with DEBUG-style namespace filtering, payload sanitization, and
// environment-driven transport configuration.
//
// Key features
//   - Namespace filtering: handles are bound to a namespace and gated per
//     call by the DEBUG filter expression (wildcards, negation), read from
//     the environment at call time so runtime changes take effect
//   - Flexible call shapes: a message with printf-style placeholders, a
//     context map or struct, or a bare error all normalize into structured
//     records
//   - Payload sanitization: map depth bounding, string truncation, and
//     error normalization with the full cause chain (outermost -> root),
//     the root cause string, and captured stacks
//   - Transports from the environment: indexed TRANSPORT{n} descriptors for
//     console and file targets with per-transport levels, file rotation via
//     lumberjack, async buffered writes, and graceful degradation to a
//     console fallback when a target cannot be used
//
// Typical usage
//
//	log, err := logging.New("api:server")
//	if err != nil { panic(err) }
//	defer logging.Close()
//
//	log.Info("listening on %s", addr)
//	req := log.Child(logging.Fields{"request_id": rid})
//	req.Error(err)
package logging
