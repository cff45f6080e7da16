package main

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

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

// isolate keeps config discovery away from the developer's files.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

// pipeInput returns a read end that yields input and then EOF.
func pipeInput(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	go func() {
		w.WriteString(input)
		w.Close()
	}()
	t.Cleanup(func() { r.Close() })
	return r
}

func execute(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &syncBuffer{}, &syncBuffer{}
	root := newRootCmd(streams{in: pipeInput(t, input), out: out, err: errOut})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestBanner(t *testing.T) {
	want := "NCORE: Arduino Native Core\nCopyright (C) 2011 maniacbug@ymail.com GPLv2\n\n"
	if got := banner(); got != want {
		t.Errorf("banner() = %q, want %q", got, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if out != "NCORE v"+version+"\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestSketchesCommand(t *testing.T) {
	out, _, err := execute(t, "", "sketches")
	if err != nil {
		t.Fatalf("sketches error: %v", err)
	}
	for _, name := range []string{"blink", "echo", "counter", "idle"} {
		if !strings.Contains(out, "  "+name) {
			t.Errorf("sketches output missing %s:\n%s", name, out)
		}
	}
}

func TestRunPipedScript(t *testing.T) {
	isolate(t)
	out, errOut, err := execute(t, "pin-write 7 1\npin-read 7\n.quit\n",
		"--eeprom-backend", "memory", "--clock", "virtual")
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.HasPrefix(errOut, banner()) {
		t.Errorf("stderr does not start with the banner:\n%s", errOut)
	}
	if !strings.Contains(out, "ncore> 1\n") {
		t.Errorf("stdout = %q, want pin value after the prompt", out)
	}
	if !strings.Contains(errOut, "msg=Stopped") {
		t.Errorf("shutdown not logged:\n%s", errOut)
	}
}

func TestRunPersistsEEPROM(t *testing.T) {
	isolate(t)
	for boot := 1; boot <= 2; boot++ {
		out, _, err := execute(t, "serial-read\n", "--sketch", "counter", "--eeprom", "board.eep", "--clock", "virtual")
		if err != nil {
			t.Fatalf("boot %d error: %v", boot, err)
		}
		want := "boot count " + string(rune('0'+boot))
		if !strings.Contains(out, want) {
			t.Errorf("boot %d output = %q, want %q", boot, out, want)
		}
	}
	if _, err := os.Stat("board.eep"); err != nil {
		t.Errorf("EEPROM image not written: %v", err)
	}
}

func TestStartupFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown sketch", []string{"--sketch", "tetris"}, "unknown sketch 'tetris'"},
		{"bad log level", []string{"--log-level", "chatty"}, "logging.level"},
		{"bad backend", []string{"--eeprom-backend", "tape"}, "eeprom.backend"},
		{"missing config", []string{"--config", "absent.yaml"}, "absent.yaml"},
		{"stray argument", []string{"blink"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, _, err := execute(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, os.ErrNotExist)
	if got := buf.String(); got != "Error: file does not exist\n" {
		t.Errorf("printError wrote %q", got)
	}
}
