// =============================================================================
// help.go - Help System
// =============================================================================
//
//   - ".help"         lists the dot-commands and every registered command
//   - ".help <topic>" shows detailed help for one command
//
// Dot-command help lives here. Everything else comes from the Usage and
// Description each peripheral declared when it registered.
//
// =============================================================================

package shell

import (
	"fmt"
	"strings"
)

// localHelp describes the commands the shell handles itself.
var localHelp = []struct {
	name string
	text string
}{
	{".help", ".help [command]\n  Show all commands, or details for one command."},
	{".time", ".time\n  Show milliseconds since the core started."},
	{".quit", ".quit\n  Stop the sketch and exit. End of input (Ctrl-D) does the same."},
	{".exit", ".exit\n  Same as .quit."},
}

func (s *Shell) printHelp(topic string) error {
	if topic == "" {
		s.printHelpOverview()
		return nil
	}

	key := strings.ToLower(topic)
	for _, h := range localHelp {
		if key == h.name || "."+key == h.name {
			fmt.Fprintln(s.out, h.text)
			return nil
		}
	}

	e, ok := s.dispatcher.Lookup(key)
	if !ok {
		return fmt.Errorf("no help for '%s'", topic)
	}
	fmt.Fprintln(s.out, e.Synopsis())
	if e.Description != "" {
		fmt.Fprintf(s.out, "  %s\n", e.Description)
	}
	fmt.Fprintf(s.out, "  (provided by %s)\n", e.Owner)
	return nil
}

func (s *Shell) printHelpOverview() {
	fmt.Fprintln(s.out, "Shell commands:")
	for _, h := range localHelp {
		synopsis, _, _ := strings.Cut(h.text, "\n")
		fmt.Fprintf(s.out, "  %s\n", synopsis)
	}

	owner := ""
	for e := range s.dispatcher.Commands() {
		if e.Owner != owner {
			owner = e.Owner
			fmt.Fprintf(s.out, "\n%s commands:\n", title(owner))
		}
		fmt.Fprintf(s.out, "  %-32s %s\n", e.Synopsis(), e.Description)
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Type .help <command> for details.")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
