package util

import (
	"bytes"
	"log"
)

// CommitLogger accumulates writes into one line and hands it to Committer on
// Commit. The slice passed to Committer is reused afterwards.
type CommitLogger struct {
	Committer func(p []byte)
	buf       []byte
}

// NewLogLogger commits each line to the standard logger.
func NewLogLogger() *CommitLogger {
	return &CommitLogger{Committer: func(p []byte) {
		log.Print(string(p))
	}}
}

func (l *CommitLogger) Reserve(n int) {
	if cap(l.buf) >= n {
		return
	}

	newbuf := make([]byte, len(l.buf), n)
	copy(newbuf, l.buf)
	l.buf = newbuf
}

func (l *CommitLogger) Write(p []byte) (n int, err error) {
	l.buf = append(l.buf, p...)
	return len(p), nil
}

func (l *CommitLogger) Commit() {
	if l.Committer != nil {
		l.Committer(bytes.TrimRight(l.buf, "\n"))
	}
	l.Reset()
}

func (l *CommitLogger) Reset() {
	l.buf = l.buf[:0]
}
