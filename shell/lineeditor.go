// =============================================================================
// lineeditor.go - Line Editor with Dual-Mode Operation
// =============================================================================
//
// The line editor picks its input method from the terminal:
//
//   - Interactive mode: ergochat/readline, with Emacs keybindings,
//     persistent history and Ctrl-R history search.
//   - Non-interactive mode: bufio.Scanner reading line by line, with the
//     prompt printed by hand. Used for piped input and under Emacs. The
//     input is wrapped in a cancelreader so Close can end a blocked read.
//
// =============================================================================

package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ergochat/readline"
	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

const (
	// DefaultHistoryFile is the history file name in the home directory.
	DefaultHistoryFile = ".ncore_history"

	// DefaultHistoryLimit is the number of history entries kept.
	DefaultHistoryLimit = 500
)

// EditorOptions configures a LineEditor.
type EditorOptions struct {
	// Input is read for lines. Nil means os.Stdin.
	Input *os.File

	// Output receives prompts in non-interactive mode. Nil means os.Stdout.
	Output io.Writer

	// HistoryFile is the readline history path. Empty means
	// ~/.ncore_history; "-" disables history persistence.
	HistoryFile string

	// HistoryLimit caps the history. Zero means DefaultHistoryLimit.
	HistoryLimit int

	// Warn receives a message when readline cannot start. Nil means
	// os.Stderr.
	Warn io.Writer
}

// LineEditor reads input lines. It implements LineReader.
type LineEditor struct {
	// interactive is true when the input is a TTY and we are not running
	// under Emacs.
	interactive bool

	// rl is used in interactive mode and is nil otherwise.
	rl *readline.Instance

	// scanner and out are used in non-interactive mode. cr is nil when
	// the input cannot be cancelled, like a regular file.
	scanner *bufio.Scanner
	out     io.Writer
	cr      cancelreader.CancelReader
	release sync.Once

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewLineEditor creates a LineEditor, choosing the mode from the input.
//
// INSIDE_EMACS forces non-interactive mode because Emacs provides its own
// line editing.
func NewLineEditor(opts EditorOptions) *LineEditor {
	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	warn := opts.Warn
	if warn == nil {
		warn = os.Stderr
	}

	isInteractive := term.IsTerminal(int(in.Fd())) &&
		os.Getenv("INSIDE_EMACS") == ""

	if !isInteractive {
		return newScannerEditor(in, out)
	}

	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:  historyPath(opts.HistoryFile),
		HistoryLimit: limit,

		// Only non-empty lines are saved, by GetLine.
		DisableAutoSaveHistory: true,

		Stdin: in,
	})
	if err != nil {
		fmt.Fprintf(warn, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(in, out)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
	}
}

func newScannerEditor(in io.Reader, out io.Writer) *LineEditor {
	le := &LineEditor{out: out}
	if cr, err := cancelreader.NewReader(in); err == nil {
		le.cr = cr
		in = cr
	}
	le.scanner = bufio.NewScanner(in)
	return le
}

// historyPath resolves the configured history file.
func historyPath(configured string) string {
	switch configured {
	case "-":
		return ""
	case "":
		return filepath.Join(homeDir(), DefaultHistoryFile)
	}
	if strings.HasPrefix(configured, "~/") {
		return filepath.Join(homeDir(), configured[2:])
	}
	return configured
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// GetLine reads one line, without its trailing newline, after showing
// prompt. It returns io.EOF on Ctrl-D, Ctrl-C or end of piped input.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.closed.Load() {
		return "", io.EOF
	}
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		le.releaseInput()
		err := le.scanner.Err()
		if err != nil && !errors.Is(err, cancelreader.ErrCanceled) {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// releaseInput frees the cancelreader's descriptors once reading is over.
// The underlying input stays open.
func (le *LineEditor) releaseInput() {
	if le.cr == nil {
		return
	}
	le.release.Do(func() { le.cr.Close() })
}

// Close saves history and releases the terminal. Later GetLine calls
// return io.EOF; a GetLine blocked on input returns io.EOF as well.
// Close may be called more than once and from another goroutine.
func (le *LineEditor) Close() {
	le.closeOnce.Do(func() {
		le.closed.Store(true)
		if le.rl != nil {
			le.rl.Close()
		}
		if le.cr != nil {
			le.cr.Cancel()
		}
	})
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
