package logging

import (
	"io"
	"os"
	"sync"
)

// Logger is a type that is responsible for storing and logging output from the
// runtime as necessary
type Logger struct {
	errorCount int // Total encountered errors
	LogLevel   int

	out io.Writer

	// m is the mutex used to synchonize the printing of messages
	m *sync.Mutex
}

// Enumeration of the different log levels
const (
	LogLevelSilent  = iota // no output at all
	LogLevelError          // only errors and uncaught exceptions
	LogLevelWarning        // errors and warnings (DEFAULT)
	LogLevelVerbose        // errors, warnings, and informational messages
)

// LogMessage is a message that can be displayed by the logger
type LogMessage interface {
	display(w io.Writer)
	isError() bool
	isInfo() bool
}

// newLogger creates a new logger struct
func newLogger(loglevel int) *Logger {
	return &Logger{
		LogLevel: loglevel,
		out:      os.Stdout,
		m:        &sync.Mutex{},
	}
}

func (l *Logger) setLevel(loglevel int) {
	l.m.Lock()
	l.LogLevel = loglevel
	l.m.Unlock()
}

func (l *Logger) setOutput(w io.Writer) {
	l.m.Lock()
	if w == nil {
		w = os.Stdout
	}
	l.out = w
	l.m.Unlock()
}

// ErrorCount returns the number of errors handled by this logger
func (l *Logger) ErrorCount() int {
	l.m.Lock()
	defer l.m.Unlock()
	return l.errorCount
}

// handleMsg prompts to logger to process a message -- this message could be
// coming in concurrently and so we need to make sure we are not printing multiple
// things at the same time so we there is a mutex in place for this function
func (l *Logger) handleMsg(lm LogMessage) {
	l.m.Lock()
	defer l.m.Unlock()

	switch {
	case lm.isError():
		l.errorCount++

		if l.LogLevel >= LogLevelError {
			lm.display(l.out)
		}
	case lm.isInfo():
		if l.LogLevel >= LogLevelVerbose {
			lm.display(l.out)
		}
	default:
		if l.LogLevel >= LogLevelWarning {
			lm.display(l.out)
		}
	}
}
