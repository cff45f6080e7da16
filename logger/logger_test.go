package logger

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/dispatch"
)

// syncBuffer is a bytes.Buffer that tolerates concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T, opts Options) (*Logger, *clock.Virtual, *syncBuffer) {
	t.Helper()
	clk := clock.NewVirtual()
	out := &syncBuffer{}
	opts.Console = out
	l, err := New(clk, opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, clk, out
}

func TestInternalWritesTimestampedLine(t *testing.T) {
	l, clk, out := newTestLogger(t, Options{})
	clk.Advance(1234 * time.Millisecond)

	l.Internal("CORE", "Started")

	got := out.String()
	for _, want := range []string{"time=1.234", "level=INFO", "msg=Started", "category=CORE"} {
		if !strings.Contains(got, want) {
			t.Errorf("console output %q missing %q", got, want)
		}
	}
	if strings.Contains(got, RunKey+"=") {
		t.Errorf("console output %q should not carry the run id", got)
	}
}

func TestHistoryFormat(t *testing.T) {
	l, clk, _ := newTestLogger(t, Options{})
	clk.Advance(2 * time.Second)

	l.Info("PINS", "pin changed", "pin", 13)

	lines := l.History(0)
	if len(lines) != 1 {
		t.Fatalf("History() = %v, want one line", lines)
	}
	if want := "2.000 INFO  PINS pin changed pin=13"; lines[0] != want {
		t.Errorf("History()[0] = %q, want %q", lines[0], want)
	}
}

func TestHistoryRingKeepsNewest(t *testing.T) {
	l, _, _ := newTestLogger(t, Options{History: 3})
	for i := 0; i < 5; i++ {
		l.Info("T", fmt.Sprintf("line %d", i))
	}

	lines := l.History(0)
	if len(lines) != 3 {
		t.Fatalf("History() has %d lines, want 3", len(lines))
	}
	for i, want := range []string{"line 2", "line 3", "line 4"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("History()[%d] = %q, want suffix %q", i, lines[i], want)
		}
	}

	if last := l.History(1); len(last) != 1 || !strings.HasSuffix(last[0], "line 4") {
		t.Errorf("History(1) = %v", last)
	}
}

func TestHistoryDisabled(t *testing.T) {
	l, _, _ := newTestLogger(t, Options{History: -1})
	l.Info("T", "x")
	if got := l.History(0); got != nil {
		t.Errorf("History() = %v, want nil", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	l, _, out := newTestLogger(t, Options{Level: "warn"})

	l.Debug("T", "debug line")
	l.Info("T", "info line")
	l.Warn("T", "warn line")

	got := out.String()
	if strings.Contains(got, "debug line") || strings.Contains(got, "info line") {
		t.Errorf("output %q contains records below warn", got)
	}
	if !strings.Contains(got, "warn line") {
		t.Errorf("output %q missing warn record", got)
	}

	l.SetLevel(slog.LevelDebug)
	l.Debug("T", "now visible")
	if !strings.Contains(out.String(), "now visible") {
		t.Error("debug record dropped after SetLevel(debug)")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(clock.NewVirtual(), Options{Console: &syncBuffer{}, Level: "loud"}); err == nil {
		t.Error("New with level 'loud' succeeded")
	}
}

func TestLogFileCarriesRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncore.log")
	l, _, _ := newTestLogger(t, Options{File: path, RunID: "run-1"})

	l.Error("EEPROM", "save failed")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "msg=\"save failed\"") || !strings.Contains(got, "run=run-1") {
		t.Errorf("log file = %q", got)
	}
}

func TestRunIDDefaultsToUUID(t *testing.T) {
	l, _, _ := newTestLogger(t, Options{})
	if len(l.RunID()) != 36 {
		t.Errorf("RunID() = %q, want a UUID", l.RunID())
	}
}

func TestConcurrentAppendsDoNotInterleave(t *testing.T) {
	l, _, out := newTestLogger(t, Options{History: 1000})

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.Info("T", fmt.Sprintf("writer-%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 400 {
		t.Fatalf("console has %d lines, want 400", len(lines))
	}
	for _, line := range lines {
		if strings.Count(line, "msg=writer-") != 1 {
			t.Fatalf("malformed line %q", line)
		}
	}
	if got := len(l.History(0)); got != 400 {
		t.Errorf("History() has %d lines, want 400", got)
	}
}

func TestCommands(t *testing.T) {
	l, _, _ := newTestLogger(t, Options{})
	d := dispatch.New()
	if err := d.Add(l); err != nil {
		t.Fatalf("Add(logger) error: %v", err)
	}
	d.Seal()

	if _, err := d.Dispatch("log", []string{"hello", "there"}); err != nil {
		t.Fatalf("log error: %v", err)
	}
	hist := l.History(0)
	if len(hist) == 0 || !strings.HasSuffix(hist[len(hist)-1], "USER hello there") {
		t.Errorf("history after log = %v", hist)
	}

	res, err := d.Dispatch("log-level", []string{"debug"})
	if err != nil {
		t.Fatalf("log-level error: %v", err)
	}
	if res.String() != "level debug" {
		t.Errorf("log-level = %q", res.String())
	}

	res, err = d.Dispatch("log-history", []string{"1"})
	if err != nil {
		t.Fatalf("log-history error: %v", err)
	}
	if len(res.Lines) != 1 {
		t.Errorf("log-history 1 returned %d lines", len(res.Lines))
	}

	badArgs := []struct {
		cmd  string
		args []string
	}{
		{"log", nil},
		{"log-level", []string{"loud"}},
		{"log-history", []string{"0"}},
		{"log-history", []string{"1", "2"}},
	}
	for _, tc := range badArgs {
		_, err := d.Dispatch(tc.cmd, tc.args)
		if !errors.Is(err, dispatch.ErrInvalidArgument) {
			t.Errorf("%s %v error = %v, want ErrInvalidArgument", tc.cmd, tc.args, err)
		}
	}
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("logs.span-id"); got != "LOGS_SPAN_ID" {
		t.Errorf("toJournalKey = %q", got)
	}
}
