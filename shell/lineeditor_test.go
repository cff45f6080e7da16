package shell

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// pipeInput returns a read end that yields content and then EOF.
func pipeInput(t *testing.T, content string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	go func() {
		io.WriteString(w, content)
		w.Close()
	}()
	return r
}

func TestLineEditorNonInteractive(t *testing.T) {
	var prompts bytes.Buffer
	le := NewLineEditor(EditorOptions{
		Input:  pipeInput(t, "pin-read 13\n\nserial-send hi\n"),
		Output: &prompts,
	})
	defer le.Close()

	if le.IsInteractive() {
		t.Fatal("editor on a pipe should be non-interactive")
	}

	for _, want := range []string{"pin-read 13", "", "serial-send hi"} {
		line, err := le.GetLine("> ")
		if err != nil {
			t.Fatalf("GetLine error: %v", err)
		}
		if line != want {
			t.Errorf("GetLine() = %q, want %q", line, want)
		}
	}
	if _, err := le.GetLine("> "); err != io.EOF {
		t.Errorf("GetLine at end = %v, want io.EOF", err)
	}
	if prompts.String() != "> > > > " {
		t.Errorf("prompts = %q", prompts.String())
	}
}

func TestLineEditorCloseIdempotent(t *testing.T) {
	le := NewLineEditor(EditorOptions{Input: pipeInput(t, ""), Output: io.Discard})
	le.Close()
	le.Close()
}

// Close from another goroutine ends a read on a pipe nobody writes to.
func TestLineEditorCloseEndsBlockedRead(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	le := NewLineEditor(EditorOptions{Input: r, Output: io.Discard})

	errc := make(chan error, 1)
	go func() {
		_, err := le.GetLine("ncore> ")
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	le.Close()

	select {
	case err := <-errc:
		if err != io.EOF {
			t.Errorf("GetLine after Close = %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("GetLine still blocked after Close")
	}
}

func TestLineEditorDrivesShell(t *testing.T) {
	le := NewLineEditor(EditorOptions{Input: pipeInput(t, "lamp-on\n.quit\n"), Output: io.Discard})
	defer le.Close()

	s, l, _, _ := newTestShell(t)
	s.reader = le
	if err := s.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !l.on {
		t.Error("lamp-on from piped input was not dispatched")
	}
}

func TestHistoryPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		configured string
		want       string
	}{
		{"", filepath.Join(home, DefaultHistoryFile)},
		{"-", ""},
		{"~/hist", filepath.Join(home, "hist")},
		{"/tmp/ncore.hist", "/tmp/ncore.hist"},
	}
	for _, tt := range tests {
		if got := historyPath(tt.configured); got != tt.want {
			t.Errorf("historyPath(%q) = %q, want %q", tt.configured, got, tt.want)
		}
	}
}
