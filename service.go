package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Service owns the process-wide base sink: the composed transport writer,
// the base zerolog instance and the sanitization bounds. It is built lazily
// on the first New call and treated as immutable afterwards; per-handle
// level overrides never touch it.
type Service struct {
	mu          sync.Mutex
	logger      atomic.Pointer[zerolog.Logger]
	initialized atomic.Bool
	settings    *Settings
	bounds      sanitizeContext
	transports  *resolvedTransports

	// checker overrides the filesystem collaborator, set by tests before
	// the first Initialize.
	checker DirectoryChecker
}

// sprintPool is a buffer pool for message assembly to reduce allocations.
var sprintPool = sync.Pool{
	New: func() interface{} {
		return new(strings.Builder)
	},
}

// sharedService is the base sink every handle routes through.
var sharedService = &Service{}

// ensureShared returns the initialized shared sink, building it on first
// use.
func ensureShared() (*Service, error) {
	if sharedService.initialized.Load() {
		return sharedService, nil
	}
	if err := sharedService.Initialize(); err != nil {
		return nil, err
	}
	return sharedService, nil
}

// Initialize builds the sink from the environment: settings snapshot,
// transport resolution, base logger. It is idempotent; New calls it lazily.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized.Load() {
		return nil
	}
	return s.initializeLocked()
}

func (s *Service) initializeLocked() error {
	const op Op = "logging.Initialize"

	settings, err := loadSettings()
	if err != nil {
		return newError(op).Err(err).Msg(errMsgSinkInit)
	}

	checker := s.checker
	if checker == nil {
		checker = osDirectoryChecker{}
	}

	transports, err := resolveTransports(settings, checker)
	if err != nil {
		return newError(op).Err(err).Msg(errMsgSinkInit)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(transports.writer).Level(transports.level).With().
		Timestamp().
		Int(fieldNamePID, os.Getpid()).
		Str(fieldNameHostname, hostName()).
		Logger()

	s.settings = settings
	s.bounds = settings.sanitization()
	s.transports = transports

	// Store logger atomically
	s.logger.Store(&logger)

	s.initialized.Store(true)
	return nil
}

// Close drains and releases the sink's transports and discards the shared
// instance so the next New rebuilds from the current environment. It exists
// for administrative shutdown and test harnesses; production logging paths
// never call it. Safe to call multiple times.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized.Load() {
		return nil
	}

	s.initialized.Store(false)
	s.logger.Store(nil)

	var firstErr error
	if s.transports != nil {
		for _, c := range s.transports.closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	s.transports = nil
	s.settings = nil
	s.bounds = sanitizeContext{}
	return firstErr
}

// Close tears down the shared sink. See Service.Close.
func Close() error {
	return sharedService.Close()
}
