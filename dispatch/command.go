package dispatch

import "strings"

// Handler runs one command. It receives the argument tokens that
// followed the command name and returns the lines to show the user.
// A handler must return promptly: it runs on whichever goroutine
// called Dispatch.
type Handler func(args []string) (Result, error)

// Command is one named operation a component exposes.
type Command struct {
	Name        string  // Unique lower-case name, e.g. "pin-read"
	Usage       string  // Argument synopsis, e.g. "<pin>"
	Description string  // One-line help text
	Handler     Handler // Bound to the declaring component
}

// Dispatchable is implemented by any component that exposes commands.
//
// Commands is called once, during registration. The returned set must
// not change for the lifetime of the component.
type Dispatchable interface {
	Name() string
	Commands() []Command
}

// Entry describes a registered command for listing and help.
type Entry struct {
	Name        string
	Usage       string
	Description string
	Owner       string // Name() of the registering component
}

// Synopsis returns the name followed by the usage string.
func (e Entry) Synopsis() string {
	if e.Usage == "" {
		return e.Name
	}
	return e.Name + " " + e.Usage
}

// Result is the output of a successful command.
type Result struct {
	Lines []string
}

// OK creates a result from zero or more output lines.
func OK(lines ...string) Result {
	return Result{Lines: lines}
}

// Empty reports whether the result has nothing to print.
func (r Result) Empty() bool {
	return len(r.Lines) == 0
}

// String joins the lines with newlines.
func (r Result) String() string {
	return strings.Join(r.Lines, "\n")
}
