package util

import (
	"io"
	"log"
	"os"
	"runtime/debug"
)

// PanicSafeLogger tees log output to a file and stderr, and syncs the file
// before a panic takes the process down.
type PanicSafeLogger struct {
	f  *os.File
	mw io.Writer
}

var std *PanicSafeLogger

func NewPanicSafeLogger(f *os.File) *PanicSafeLogger {
	std = &PanicSafeLogger{
		f:  f,
		mw: io.MultiWriter(f, os.Stderr),
	}
	return std
}

// OpenLogFile appends to the log file at path and makes it the destination
// of the standard logger. An empty path leaves logging on stderr.
func OpenLogFile(path string) (l *PanicSafeLogger, err error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}

	l = NewPanicSafeLogger(f)
	log.SetOutput(l)
	return
}

func (l *PanicSafeLogger) Write(p []byte) (n int, err error) {
	return l.mw.Write(p)
}

func (l *PanicSafeLogger) Flush() error {
	return l.f.Sync()
}

func (l *PanicSafeLogger) Close() error {
	if std == l {
		std = nil
		log.SetOutput(os.Stderr)
	}
	return l.f.Close()
}

func FlushLogger() error {
	if std == nil {
		return nil
	}
	return std.Flush()
}

// LogPanic is meant to be deferred as `defer func() { if err := recover(); err != nil { util.LogPanic(err) } }()`.
func LogPanic(err any) {
	log.Printf("paniced with %v\n%s\n", err, string(debug.Stack()))
	_ = FlushLogger()
}
