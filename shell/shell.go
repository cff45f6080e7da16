// =============================================================================
// shell.go - Interactive Command Shell
// =============================================================================
//
// The shell is the host side of the emulator. It reads a line, tokenizes
// it, and either handles it locally (dot-commands such as .help and .quit)
// or hands it to the dispatcher, which routes it to the peripheral that
// registered the command name.
//
// Every recoverable failure (unknown command, bad syntax, bad argument,
// storage trouble, even a panicking handler) is printed as "Error: ..."
// and the loop carries on. Only end of input, .quit or a broken reader
// ends it.
//
// =============================================================================

package shell

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/dispatch"
	"github.com/sangpham88/ncore/logger"
	"github.com/sangpham88/ncore/parser"
)

// DefaultPrompt is shown before each line when none is configured.
const DefaultPrompt = "ncore> "

const category = "SHELL"

// LineReader supplies input lines. GetLine returns io.EOF at end of input.
type LineReader interface {
	GetLine(prompt string) (string, error)
}

// Parser tokenizes a line into an invocation.
type Parser interface {
	Parse(line string) (parser.Invocation, error)
}

// Dispatcher routes invocations to command handlers.
type Dispatcher interface {
	Dispatch(name string, args []string) (dispatch.Result, error)
	Commands() iter.Seq[dispatch.Entry]
	Lookup(name string) (dispatch.Entry, bool)
}

// State is the position of the shell in its read/parse/dispatch cycle.
type State int32

const (
	// StateAwaitingInput means the shell is blocked reading a line.
	StateAwaitingInput State = iota
	// StateParsing means a line is being tokenized.
	StateParsing
	// StateDispatching means a command is running.
	StateDispatching
	// StateExiting means the loop has ended.
	StateExiting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting-input"
	case StateParsing:
		return "parsing"
	case StateDispatching:
		return "dispatching"
	case StateExiting:
		return "exiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Shell. Reader and Dispatcher are required.
type Options struct {
	Reader     LineReader
	Parser     Parser      // Nil means parser.New()
	Dispatcher Dispatcher
	Clock      clock.Clock // Used by .time; nil disables it
	Out        io.Writer   // Nil means os.Stdout
	Err        io.Writer   // Nil means os.Stderr
	Prompt     string      // Empty means DefaultPrompt
	Log        *logger.Logger

	// Color prints errors in red when the terminal supports it.
	Color bool
}

// Shell is the interactive command loop. Run it on one goroutine.
type Shell struct {
	reader     LineReader
	parser     Parser
	dispatcher Dispatcher
	clock      clock.Clock
	out        io.Writer
	err        io.Writer
	prompt     string
	log        *logger.Logger
	errColor   *color.Color
	state      atomic.Int32
}

// New creates a shell.
func New(opts Options) *Shell {
	s := &Shell{
		reader:     opts.Reader,
		parser:     opts.Parser,
		dispatcher: opts.Dispatcher,
		clock:      opts.Clock,
		out:        opts.Out,
		err:        opts.Err,
		prompt:     opts.Prompt,
		log:        opts.Log,
		errColor:   color.New(color.FgRed),
	}
	if s.parser == nil {
		s.parser = parser.New()
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.err == nil {
		s.err = os.Stderr
	}
	if s.prompt == "" {
		s.prompt = DefaultPrompt
	}
	if !opts.Color {
		s.errColor.DisableColor()
	}
	return s
}

// State returns the current state.
func (s *Shell) State() State {
	return State(s.state.Load())
}

func (s *Shell) setState(st State) {
	s.state.Store(int32(st))
}

// Run reads and executes lines until end of input or .quit. It returns
// nil on a normal exit and the read error otherwise.
func (s *Shell) Run() error {
	defer s.setState(StateExiting)

	for {
		s.setState(StateAwaitingInput)
		line, err := s.reader.GetLine(s.prompt)
		if errors.Is(err, io.EOF) {
			s.log.Debug(category, "end of input")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		if quit := s.execute(line); quit {
			return nil
		}
	}
}

// execute handles one line and reports whether the shell should exit.
func (s *Shell) execute(line string) (quit bool) {
	s.setState(StateParsing)
	inv, err := s.parser.Parse(line)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) && pe.Kind == parser.ErrKindEmpty {
			return false
		}
		s.printError(err)
		return false
	}

	if strings.HasPrefix(inv.Name, ".") {
		return s.local(inv)
	}

	s.setState(StateDispatching)
	res, err := s.dispatch(inv)
	if err != nil {
		s.printError(err)
		return false
	}
	for _, l := range res.Lines {
		fmt.Fprintln(s.out, l)
	}
	return false
}

// dispatch runs one command, turning a handler panic into an error.
func (s *Shell) dispatch(inv parser.Invocation) (res dispatch.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error(category, "command panicked", "command", inv.Name, "panic", fmt.Sprint(p))
			err = fmt.Errorf("command '%s' failed: %v", inv.Name, p)
		}
	}()
	s.log.Debug(category, "dispatch", "command", inv.String())
	return s.dispatcher.Dispatch(inv.Name, inv.Args)
}

func (s *Shell) printError(err error) {
	s.errColor.Fprintf(s.err, "Error: %v\n", err)
}

// local handles a dot-command.
func (s *Shell) local(inv parser.Invocation) (quit bool) {
	switch inv.Name {
	case ".quit", ".exit":
		return true
	case ".help":
		topic := ""
		if len(inv.Args) > 0 {
			topic = inv.Args[0]
		}
		if err := s.printHelp(topic); err != nil {
			s.printError(err)
		}
	case ".time":
		if s.clock == nil {
			s.printError(errors.New("no clock"))
			return false
		}
		fmt.Fprintf(s.out, "%d ms\n", clock.Millis(s.clock))
	default:
		s.printError(fmt.Errorf("unknown command '%s' (type .help for a list)", inv.Name))
	}
	return false
}
