package logging

const emptyString = ""

// Environment keys consumed by the transport resolver. Indexed transport keys
// are built from the TRANSPORT prefix plus a 1-based index and an optional
// field suffix, e.g. TRANSPORT1, TRANSPORT1_LEVEL, TRANSPORT2_FOLDER.
const (
	envDebug            = "DEBUG"
	envLogLevel         = "LOG_LEVEL"
	envLogColorize      = "LOG_COLORIZE"
	envLogFileOutput    = "LOG_FILE_OUTPUT"
	envLogConsoleOutput = "LOG_CONSOLE_OUTPUT"
	envLogFolder        = "LOG_FOLDER"
	envLogSync          = "LOG_SYNC"
	envLogPretty        = "LOG_PRETTY"

	envLogMaxDepth        = "LOG_MAX_DEPTH"
	envLogMaxStringLength = "LOG_MAX_STRING_LENGTH"
	envLogTruncationMark  = "LOG_TRUNCATION_MARKER"

	transportKeyPrefix = "TRANSPORT"
)

// Per-transport field suffixes.
const (
	fieldLevel   = "LEVEL"
	fieldEnabled = "ENABLED"
	fieldSync    = "SYNC"

	fieldColors         = "COLORS"
	fieldTranslateTime  = "TRANSLATE_TIME"
	fieldIgnore         = "IGNORE"
	fieldSingleLine     = "SINGLE_LINE"
	fieldHideObjectKeys = "HIDE_OBJECT_KEYS"
	fieldShowMetadata   = "SHOW_METADATA"

	fieldFolder         = "FOLDER"
	fieldFilename       = "FILENAME"
	fieldDestination    = "DESTINATION"
	fieldMkdir          = "MKDIR"
	fieldAppend         = "APPEND"
	fieldPrettyPrint    = "PRETTY_PRINT"
	fieldRotate         = "ROTATE"
	fieldRotateMaxSize  = "ROTATE_MAX_SIZE"
	fieldRotateMaxFiles = "ROTATE_MAX_FILES"
	fieldRotateCompress = "ROTATE_COMPRESS"
)

const (
	defaultLevelName       = "info"
	defaultLogFolder       = "logs"
	defaultFilenameTpl     = "{app_name}.log"
	defaultMaxDepth        = 8
	defaultMaxStringLen    = 0 // unlimited
	defaultTruncationMark  = "..."
	defaultRotateMaxSizeMB = 100
	defaultRotateMaxFiles  = 5
)

// maxDepthSentinel replaces a keyed container once the depth budget is spent.
const maxDepthSentinel = "[Max Map Depth Reached]"

// Record field names bound by the base sink and referenced by console
// transports when metadata display is disabled.
const (
	fieldNamePID       = "pid"
	fieldNameHostname  = "hostname"
	fieldNameNamespace = "namespace"
	fieldNameErr       = "err"
	fieldNameContext   = "context"
)

const (
	errMsgSinkInit        = "Failed to initialize the logging sink."
	errMsgNilSettings     = "Logging settings are nil."
	errMsgNoTransports    = "No usable transports were resolved."
	errMsgDescriptorUnset = "Transport descriptor is invalid."
)
