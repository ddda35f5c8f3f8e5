package logging

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	transportConsole = "console"
	transportFile    = "file"
)

// TransportDescriptor is one fully-resolved output destination. Descriptors
// are assembled from the environment, validated, and only then turned into
// writers; a descriptor that fails either step is dropped, never fatal.
type TransportDescriptor struct {
	Kind    string        `validate:"required,oneof=console file"`
	Level   zerolog.Level `validate:"min=-1,max=7"`
	Enabled bool
	Sync    bool
	Console ConsoleOptions
	File    FileOptions
}

// ConsoleOptions shape the human-readable rendering of a console transport.
type ConsoleOptions struct {
	Pretty        bool
	Colors        bool
	TranslateTime bool
	Ignore        []string
	SingleLine    bool
	HideKeys      bool
	ShowMetadata  bool
}

// FileOptions shape a file transport. Destination overrides the
// folder/filename pair; the numeric destinations "1" and "2" route to stdout
// and stderr.
type FileOptions struct {
	Folder         string
	Filename       string
	Destination    string
	Mkdir          bool
	Append         bool
	PrettyPrint    bool
	Rotate         bool
	RotateMaxSize  int `validate:"min=0"`
	RotateMaxFiles int `validate:"min=0"`
	RotateCompress bool

	// set during target resolution
	path   string
	stream *os.File
}

// resolvedTransports is the outcome of transport resolution: the surviving
// descriptors, the composed sink writer, the minimum level across survivors
// and whatever needs closing on shutdown.
type resolvedTransports struct {
	descriptors []TransportDescriptor
	writer      zerolog.LevelWriter
	level       zerolog.Level
	closers     []closerFunc
}

// resolveTransports reads the transport configuration, validates every
// descriptor, and composes the sink writer. Per-descriptor failures degrade
// with diagnostics; the only error returned is a sink that cannot be built
// even for the fallback console.
func resolveTransports(settings *Settings, checker DirectoryChecker) (*resolvedTransports, error) {
	const op Op = "logging.resolveTransports"

	if settings == nil {
		return nil, newError(op).Msg(errMsgNilSettings)
	}
	if checker == nil {
		checker = osDirectoryChecker{}
	}

	descriptors := readDescriptors(settings)

	survivors := make([]TransportDescriptor, 0, len(descriptors))
	for i := range descriptors {
		d := &descriptors[i]
		if !d.Enabled {
			continue
		}
		if err := validateDescriptor(d); err != nil {
			diagf("transport %d (%s) dropped: %v", i+1, d.Kind, err)
			continue
		}
		if d.Kind == transportFile {
			if err := resolveFileTarget(d, checker); err != nil {
				diagf("transport %d (file) dropped: %v", i+1, err)
				continue
			}
		}
		survivors = append(survivors, *d)
	}

	if len(survivors) == 0 {
		diagf("no usable transports configured, falling back to console at %s", defaultLevelName)
		survivors = []TransportDescriptor{fallbackConsoleDescriptor()}
	}

	writers, closers, kept := buildWriters(survivors)
	if len(writers) == 0 {
		fallback := fallbackConsoleDescriptor()
		diagf("every configured transport failed to build, falling back to console at %s", defaultLevelName)
		writers, closers, kept = buildWriters([]TransportDescriptor{fallback})
		if len(writers) == 0 {
			return nil, newError(op).Msg(errMsgNoTransports)
		}
	}

	level := zerolog.Disabled
	for _, d := range kept {
		if d.Level < level {
			level = d.Level
		}
	}

	var writer zerolog.LevelWriter
	if len(writers) == 1 {
		writer = writers[0]
	} else {
		ws := make([]io.Writer, len(writers))
		for i, w := range writers {
			ws[i] = w
		}
		writer = zerolog.MultiLevelWriter(ws...)
	}

	return &resolvedTransports{
		descriptors: kept,
		writer:      writer,
		level:       level,
		closers:     closers,
	}, nil
}

// indexedTransportKey matches the mode-selecting TRANSPORT{n} keys after the
// settings snapshot lowercases them.
var indexedTransportKey = regexp.MustCompile(`^transport[0-9]+$`)

// readDescriptors selects between indexed multi-transport mode and the
// legacy single-mode keys. The presence of any TRANSPORT{n} key switches to
// indexed mode and the legacy keys are ignored entirely.
func readDescriptors(s *Settings) []TransportDescriptor {
	if s.k != nil {
		for _, key := range s.k.Keys() {
			if indexedTransportKey.MatchString(key) {
				return readIndexedDescriptors(s)
			}
		}
	}
	return readLegacyDescriptors(s)
}

// readIndexedDescriptors walks TRANSPORT1, TRANSPORT2, ... and stops at the
// first gap.
func readIndexedDescriptors(s *Settings) []TransportDescriptor {
	var out []TransportDescriptor
	for n := 1; s.hasTransport(n); n++ {
		out = append(out, descriptorFromSettings(s, n))
	}
	return out
}

// descriptorFromSettings assembles the descriptor for one transport index.
func descriptorFromSettings(s *Settings, n int) TransportDescriptor {
	kind := strings.ToLower(strings.TrimSpace(s.transportKind(n)))

	d := TransportDescriptor{
		Kind:    kind,
		Level:   parseLevelOrDefault(s.transportField(n, fieldLevel), transportFieldKey(n, fieldLevel)),
		Enabled: boolDefaultTrue(s.transportField(n, fieldEnabled)),
		Sync:    boolDefaultFalse(s.transportField(n, fieldSync)),
	}

	switch kind {
	case transportConsole:
		d.Console = ConsoleOptions{
			Pretty:        true,
			Colors:        resolveColors(s.hasTransportField(n, fieldColors), s.transportField(n, fieldColors)),
			TranslateTime: boolDefaultTrue(s.transportField(n, fieldTranslateTime)),
			Ignore:        splitFieldList(s.transportField(n, fieldIgnore)),
			SingleLine:    boolDefaultTrue(s.transportField(n, fieldSingleLine)),
			HideKeys:      boolDefaultFalse(s.transportField(n, fieldHideObjectKeys)),
			ShowMetadata:  boolDefaultFalse(s.transportField(n, fieldShowMetadata)),
		}
	case transportFile:
		d.File = FileOptions{
			Folder:         valueOrDefault(s.transportField(n, fieldFolder), defaultLogFolder),
			Filename:       s.transportField(n, fieldFilename),
			Destination:    strings.TrimSpace(s.transportField(n, fieldDestination)),
			Mkdir:          boolDefaultTrue(s.transportField(n, fieldMkdir)),
			Append:         boolDefaultTrue(s.transportField(n, fieldAppend)),
			PrettyPrint:    boolDefaultFalse(s.transportField(n, fieldPrettyPrint)),
			Rotate:         boolDefaultFalse(s.transportField(n, fieldRotate)),
			RotateMaxSize:  intOrDefault(s.transportField(n, fieldRotateMaxSize), defaultRotateMaxSizeMB),
			RotateMaxFiles: intOrDefault(s.transportField(n, fieldRotateMaxFiles), defaultRotateMaxFiles),
			RotateCompress: boolDefaultFalse(s.transportField(n, fieldRotateCompress)),
		}
	}
	return d
}

// readLegacyDescriptors synthesizes descriptors from the single-mode keys:
// a console transport that is on by default and a file transport that is off
// by default, both sharing LOG_LEVEL and LOG_SYNC.
func readLegacyDescriptors(s *Settings) []TransportDescriptor {
	level := parseLevelOrDefault(s.value(envLogLevel), envLogLevel)
	sync := boolDefaultFalse(s.value(envLogSync))

	console := TransportDescriptor{
		Kind:    transportConsole,
		Level:   level,
		Enabled: boolDefaultTrue(s.value(envLogConsoleOutput)),
		Sync:    sync,
		Console: ConsoleOptions{
			Pretty:        boolDefaultFalse(s.value(envLogPretty)),
			Colors:        resolveColors(s.has(envLogColorize), s.value(envLogColorize)),
			TranslateTime: true,
			SingleLine:    true,
		},
	}

	file := TransportDescriptor{
		Kind:    transportFile,
		Level:   level,
		Enabled: boolDefaultFalse(s.value(envLogFileOutput)),
		Sync:    sync,
		File: FileOptions{
			Folder:         valueOrDefault(s.value(envLogFolder), defaultLogFolder),
			Mkdir:          true,
			Append:         true,
			RotateMaxSize:  defaultRotateMaxSizeMB,
			RotateMaxFiles: defaultRotateMaxFiles,
		},
	}

	return []TransportDescriptor{console, file}
}

// fallbackConsoleDescriptor is the transport of last resort: raw structured
// output on stderr at info.
func fallbackConsoleDescriptor() TransportDescriptor {
	return TransportDescriptor{
		Kind:    transportConsole,
		Level:   zerolog.InfoLevel,
		Enabled: true,
		Sync:    true,
		Console: ConsoleOptions{
			TranslateTime: true,
			SingleLine:    true,
		},
	}
}

// resolveFileTarget computes the descriptor's final path and verifies the
// directory can take it: the directory is created when mkdir is enabled and
// probed for writability through the checker seam. Numeric destinations
// bypass the filesystem entirely.
func resolveFileTarget(d *TransportDescriptor, checker DirectoryChecker) error {
	const op Op = "logging.resolveFileTarget"

	switch d.File.Destination {
	case "1":
		d.File.stream = os.Stdout
		return nil
	case "2":
		d.File.stream = os.Stderr
		return nil
	case emptyString:
		d.File.path = filepath.Join(d.File.Folder, expandFilenameTemplate(d.File.Filename, time.Now()))
	default:
		d.File.path = d.File.Destination
	}

	dir := filepath.Dir(d.File.path)
	if !checker.Exists(dir) {
		if !d.File.Mkdir {
			return newError(op).Msgf("log directory %q does not exist and mkdir is disabled", dir)
		}
		if err := checker.MkdirAll(dir); err != nil {
			return newError(op).Err(err).Msgf("cannot create log directory %q", dir)
		}
	}
	if err := checker.Writable(dir); err != nil {
		return newError(op).Err(err).Msgf("log directory %q is not writable", dir)
	}
	return nil
}

// expandFilenameTemplate substitutes the supported placeholders using the
// given timestamp and statically loaded application metadata. A blank
// template collapses to the default template; every placeholder source is
// guaranteed non-empty, so the result always names a file.
func expandFilenameTemplate(tpl string, now time.Time) string {
	if strings.TrimSpace(tpl) == emptyString {
		tpl = defaultFilenameTpl
	}

	name, version := appMetadata()
	r := strings.NewReplacer(
		"{date}", now.Format("2006-01-02"),
		"{time}", now.Format("15-04-05"),
		"{datetime}", now.Format("2006-01-02_15-04-05"),
		"{app_name}", name,
		"{app_version}", version,
		"{pid}", strconv.Itoa(os.Getpid()),
		"{hostname}", hostName(),
	)
	return r.Replace(tpl)
}

// parseLevelOrDefault degrades unknown level strings to info with a
// diagnostic; an invalid level is never fatal.
func parseLevelOrDefault(raw, key string) zerolog.Level {
	if strings.TrimSpace(raw) == emptyString {
		return zerolog.InfoLevel
	}
	l, err := parseLevel(raw)
	if err != nil {
		diagf("invalid %s value %q, using %s", key, raw, defaultLevelName)
		return zerolog.InfoLevel
	}
	return l
}

// resolveColors implements the tri-state color setting: an explicit value
// wins, otherwise color tracks whether stderr is a terminal.
func resolveColors(explicit bool, raw string) bool {
	if explicit {
		return boolDefaultTrue(raw)
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// splitFieldList parses a comma-separated field name list.
func splitFieldList(raw string) []string {
	if strings.TrimSpace(raw) == emptyString {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != emptyString {
			out = append(out, p)
		}
	}
	return out
}

func valueOrDefault(v, fallback string) string {
	if strings.TrimSpace(v) == emptyString {
		return fallback
	}
	return v
}

func intOrDefault(v string, fallback int) int {
	if strings.TrimSpace(v) == emptyString {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		diagf("invalid numeric value %q, using %d", v, fallback)
		return fallback
	}
	return n
}
