package logging

import "io"

// logger is a global reference to a shared Logger (created/initialized with the
// runtime, but separated for general usage)
var logger = newLogger(LogLevelWarning)

// Initialize initializes the global logger with the provided log level
func Initialize(loglevelname string) {
	logger.setLevel(ParseLogLevel(loglevelname))
}

// ParseLogLevel converts a log level name into its numeric level
func ParseLogLevel(loglevelname string) int {
	switch loglevelname {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarning
	// everything else (including invalid log levels) should default to verbose
	default:
		return LogLevelVerbose
	}
}

// SetOutput redirects all log output to w.  Passing nil restores stdout.
func SetOutput(w io.Writer) {
	logger.setOutput(w)
}

// ShouldProceed indicates whether or not the logger has recorded any errors.
func ShouldProceed() bool {
	return logger.ErrorCount() == 0
}

// ErrorCount returns the number of errors logged so far
func ErrorCount() int {
	return logger.ErrorCount()
}

// -----------------------------------------------------------------------------
// NOTE: All log functions will only display if the appropriate log level is
// set.  Most log functions will simply fail silently if below their appropriate
// log level.

// LogModuleError logs an error that prevented a module from being loaded
func LogModuleError(modName, message string) {
	logger.handleMsg(&ModuleMessage{ModName: modName, Message: message, IsError: true})
}

// LogModuleWarning logs a recoverable problem encountered while loading a
// module: the loader continues searching after these.
func LogModuleWarning(modName, message string) {
	logger.handleMsg(&ModuleMessage{ModName: modName, Message: message})
}

// LogConfigError logs an error related to runtime configuration
func LogConfigError(kind, message string) {
	logger.handleMsg(&ConfigError{Kind: kind, Message: message})
}

// LogException logs an uncaught program exception along with its backtrace
func LogException(message string, backtrace []string) {
	logger.handleMsg(&ExceptionMessage{Message: message, Backtrace: backtrace})
}

// LogInfo logs an informational message.  Only shown at verbose level.
func LogInfo(tag, message string) {
	logger.handleMsg(&InfoMessage{Tag: tag, Message: message})
}

// LogDebug logs a preformatted block of debugging text (eg. archive dumps).
// Only shown at verbose level.
func LogDebug(tag, text string) {
	logger.handleMsg(&InfoMessage{Tag: tag, Message: text, Block: true})
}
