// Package dispatch routes textual commands to the components that own
// them.
//
// Components implement Dispatchable and are added to a Dispatcher during
// startup. Once every component is added the Dispatcher is sealed, and
// from then on it is only read:
//
//	d := dispatch.New()
//	if err := d.Add(pins); err != nil {
//	    return err // *DuplicateCommandError is fatal at startup
//	}
//	d.Seal()
//
//	res, err := d.Dispatch("pin-read", []string{"13"})
//
// # Thread Safety
//
// The table is not locked. Add and Seal must run on one goroutine before
// any goroutine that calls Dispatch is started; starting a goroutine
// after Seal orders every table write before its reads. Dispatch itself
// may then be called from any number of goroutines. Handlers guard the
// state of their own component.
package dispatch

import (
	"iter"
	"sync/atomic"
)

type entry struct {
	Entry
	handler Handler
}

// Dispatcher owns the command table.
type Dispatcher struct {
	table  map[string]*entry
	order  []*entry
	sealed atomic.Bool
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{table: make(map[string]*entry)}
}

// Add registers every command declared by c. The whole declaration is
// validated before anything is inserted, so a failed Add leaves the
// table as it was.
func (d *Dispatcher) Add(c Dispatchable) error {
	if d.sealed.Load() {
		return ErrSealed
	}
	if c == nil {
		return &RegistrationError{Message: "component is nil"}
	}

	owner := c.Name()
	commands := c.Commands()
	pending := make(map[string]bool, len(commands))

	for _, cmd := range commands {
		if cmd.Name == "" {
			return &RegistrationError{Component: owner, Message: "command name is empty"}
		}
		if cmd.Handler == nil {
			return &RegistrationError{Component: owner, Message: "command '" + cmd.Name + "' has no handler"}
		}
		if existing, ok := d.table[cmd.Name]; ok {
			return &DuplicateCommandError{Name: cmd.Name, Existing: existing.Owner, Incoming: owner}
		}
		if pending[cmd.Name] {
			return &DuplicateCommandError{Name: cmd.Name, Existing: owner, Incoming: owner}
		}
		pending[cmd.Name] = true
	}

	for _, cmd := range commands {
		e := &entry{
			Entry: Entry{
				Name:        cmd.Name,
				Usage:       cmd.Usage,
				Description: cmd.Description,
				Owner:       owner,
			},
			handler: cmd.Handler,
		}
		d.table[cmd.Name] = e
		d.order = append(d.order, e)
	}
	return nil
}

// GO CONCEPT: Publishing Data by Starting a Goroutine
// ---------------------------------------------------
// The command table is a plain map with no lock around it. That is safe
// because of a rule in the Go memory model: the "go" statement that
// starts a goroutine happens-before that goroutine begins. So:
//
//   d.Add(...)          -> startup goroutine writes the map
//   d.Seal()            -> no writes from here on
//   go runner.run(...)  -> the sketch goroutine sees every write above
//
// Seal is the promise that nothing writes after that point; the atomic
// flag turns a broken promise into ErrSealed instead of a data race.

// Seal ends registration. Later calls to Add fail with ErrSealed.
func (d *Dispatcher) Seal() {
	d.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (d *Dispatcher) Sealed() bool {
	return d.sealed.Load()
}

// Dispatch runs the handler registered under name. The arguments are
// passed through untouched.
func (d *Dispatcher) Dispatch(name string, args []string) (Result, error) {
	e, ok := d.table[name]
	if !ok {
		return Result{}, &UnknownCommandError{Name: name}
	}
	return e.handler(args)
}

// Lookup returns the entry registered under name.
func (d *Dispatcher) Lookup(name string) (Entry, bool) {
	e, ok := d.table[name]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Commands returns the registered commands in registration order.
// The sequence can be ranged over any number of times.
func (d *Dispatcher) Commands() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range d.order {
			if !yield(e.Entry) {
				return
			}
		}
	}
}

// Len returns the number of registered commands.
func (d *Dispatcher) Len() int {
	return len(d.order)
}
