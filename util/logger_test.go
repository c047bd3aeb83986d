package util

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenLogFile(t *testing.T) {
	l, err := OpenLogFile("")
	if err != nil || l != nil {
		t.Fatalf("OpenLogFile(\"\") = %v, %v", l, err)
	}

	path := filepath.Join(t.TempDir(), "memmapd.log")
	l, err = OpenLogFile(path)
	if err != nil {
		t.Fatal(err)
	}

	log.Printf("registered table\n")
	LogPanic("boom")
	if err = l.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(b)
	if !strings.Contains(text, "registered table") {
		t.Errorf("log file missing entry: %q", text)
	}
	if !strings.Contains(text, "paniced with boom") {
		t.Errorf("log file missing panic: %q", text)
	}
	if FlushLogger() != nil {
		t.Error("FlushLogger after Close should be a no-op")
	}
}

func TestCommitLogger(t *testing.T) {
	var commits []string
	l := &CommitLogger{Committer: func(p []byte) { commits = append(commits, string(p)) }}
	l.Reserve(64)

	_, _ = l.Write([]byte("memory: "))
	_, _ = l.Write([]byte("write"))
	l.Commit()
	l.Commit()

	if len(commits) != 2 || commits[0] != "memory: write" || commits[1] != "" {
		t.Errorf("commits = %q", commits)
	}
}
