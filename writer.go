package logging

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"gopkg.in/natefinch/lumberjack.v2"
)

// closerFunc releases one transport resource on shutdown.
type closerFunc func() error

// consoleOut is the stream console transports render to. Tests substitute a
// buffer here; production always writes to stderr so structured stdout
// pipelines stay clean.
var consoleOut io.Writer = os.Stderr

const (
	asyncBufferSize   = 1000
	asyncPollInterval = 10 * time.Millisecond
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// buildWriters turns descriptors into per-transport leveled writers. A
// descriptor whose writer cannot be built is dropped with a diagnostic, the
// rest keep working.
func buildWriters(descs []TransportDescriptor) ([]zerolog.LevelWriter, []closerFunc, []TransportDescriptor) {
	writers := make([]zerolog.LevelWriter, 0, len(descs))
	closers := make([]closerFunc, 0, len(descs))
	kept := make([]TransportDescriptor, 0, len(descs))

	for i := range descs {
		d := &descs[i]

		var (
			w   io.Writer
			c   closerFunc
			err error
		)
		switch d.Kind {
		case transportConsole:
			w = buildConsoleWriter(d)
		case transportFile:
			w, c, err = buildFileWriter(d)
		default:
			err = newError("logging.buildWriters").Msgf("unknown transport kind %q", d.Kind)
		}
		if err != nil {
			diagf("transport %d (%s) dropped: %v", i+1, d.Kind, err)
			continue
		}

		if !d.Sync {
			if c == nil {
				// not ours to close: console and stdio streams outlive the sink
				w = keepOpen{w}
			}
			var drain closerFunc
			w, drain = wrapAsync(w)
			// the drain closes the wrapped target itself after the buffer
			// empties; registering c as well would close the file twice
			closers = append(closers, drain)
		} else if c != nil {
			closers = append(closers, c)
		}

		writers = append(writers, leveled(w, d.Level))
		kept = append(kept, *d)
	}
	return writers, closers, kept
}

// buildConsoleWriter renders to the shared console stream, either as raw
// structured lines or through zerolog's ConsoleWriter when pretty output is
// on.
func buildConsoleWriter(d *TransportDescriptor) io.Writer {
	if !d.Console.Pretty {
		return consoleOut
	}
	return consoleWriterFor(consoleOut, d.Console)
}

// buildFileWriter opens the descriptor's target: a stdio stream for numeric
// destinations, a lumberjack logger when rotation is on, or a plain file.
func buildFileWriter(d *TransportDescriptor) (io.Writer, closerFunc, error) {
	const op Op = "logging.buildFileWriter"

	if d.File.stream != nil {
		if d.File.PrettyPrint {
			opts := ConsoleOptions{
				Pretty:        true,
				Colors:        isatty.IsTerminal(d.File.stream.Fd()),
				TranslateTime: true,
				SingleLine:    true,
			}
			return consoleWriterFor(d.File.stream, opts), nil, nil
		}
		return d.File.stream, nil, nil
	}

	if d.File.Rotate {
		lj := &lumberjack.Logger{
			Filename:   d.File.path,
			MaxSize:    d.File.RotateMaxSize,
			MaxBackups: d.File.RotateMaxFiles,
			Compress:   d.File.RotateCompress,
		}
		return lj, lj.Close, nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if d.File.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(d.File.path, flags, 0o644)
	if err != nil {
		return nil, nil, newError(op).Err(err).Msgf("cannot open log file %q", d.File.path)
	}
	return f, f.Close, nil
}

// consoleWriterFor configures zerolog's ConsoleWriter for the given options.
// Field suppression works by blanking the field formatters because the
// writer has no wildcard exclusion; the multi-line form re-renders the
// surviving fields as an indented JSON block below the message.
func consoleWriterFor(out io.Writer, opts ConsoleOptions) zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{
		Out:     out,
		NoColor: !opts.Colors,
	}
	if opts.TranslateTime {
		w.TimeFormat = consoleTimeFormat
	} else {
		w.TimeFormat = time.RFC3339
	}

	exclude := make([]string, 0, len(opts.Ignore)+2)
	exclude = append(exclude, opts.Ignore...)
	if !opts.ShowMetadata {
		exclude = append(exclude, fieldNamePID, fieldNameHostname)
	}
	w.FieldsExclude = exclude

	blankField := func(interface{}) string { return emptyString }
	switch {
	case opts.HideKeys:
		w.FormatFieldName = blankField
		w.FormatFieldValue = blankField
	case !opts.SingleLine:
		w.FormatFieldName = blankField
		w.FormatFieldValue = blankField
		w.FormatExtra = formatExtraJSON(blockExcludedFields(exclude))
	}
	return w
}

// formatExtraJSON appends the event's remaining fields as an indented JSON
// block on the lines below the console message.
func formatExtraJSON(skip map[string]struct{}) func(map[string]interface{}, *bytes.Buffer) error {
	return func(evt map[string]interface{}, buf *bytes.Buffer) error {
		fields := make(map[string]interface{}, len(evt))
		for k, v := range evt {
			if _, drop := skip[k]; drop {
				continue
			}
			fields[k] = v
		}
		if len(fields) == 0 {
			return nil
		}

		out, err := json.MarshalIndent(fields, emptyString, "  ")
		if err != nil {
			return err
		}
		buf.WriteByte('\n')
		buf.Write(out)
		return nil
	}
}

// blockExcludedFields lists the event keys the JSON block must not repeat:
// the parts the console line already shows plus the configured exclusions.
func blockExcludedFields(exclude []string) map[string]struct{} {
	skip := map[string]struct{}{
		zerolog.TimestampFieldName: {},
		zerolog.LevelFieldName:     {},
		zerolog.MessageFieldName:   {},
	}
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	return skip
}

// keepOpen hides a writer's Close method from the drain. The diode closes
// whatever it wraps on shutdown; writers the transport did not open must
// survive it.
type keepOpen struct{ io.Writer }

// wrapAsync puts a non-blocking ring buffer in front of the writer. Records
// that overflow the buffer are dropped and counted rather than blocking the
// caller.
func wrapAsync(w io.Writer) (io.Writer, closerFunc) {
	dw := diode.NewWriter(w, asyncBufferSize, asyncPollInterval, func(missed int) {
		diagf("dropped %d log records under backpressure", missed)
	})
	return dw, dw.Close
}

// leveled applies the descriptor's own threshold in front of a writer so
// each transport filters independently of the base logger level.
func leveled(w io.Writer, level zerolog.Level) zerolog.LevelWriter {
	if lw, ok := w.(zerolog.LevelWriter); ok {
		return &zerolog.FilteredLevelWriter{Writer: lw, Level: level}
	}
	return &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: w},
		Level:  level,
	}
}
