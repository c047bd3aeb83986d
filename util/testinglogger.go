package util

import (
	"testing"
)

// NewTestingLogger routes committed lines to tb.Log so they only show for
// failing or verbose tests.
func NewTestingLogger(tb testing.TB) *CommitLogger {
	return &CommitLogger{
		Committer: func(p []byte) {
			tb.Helper()
			tb.Log(string(p))
		},
	}
}
