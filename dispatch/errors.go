package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for command registration and dispatch.
var (
	// ErrDuplicateCommand indicates two commands were registered under one name.
	ErrDuplicateCommand = errors.New("duplicate command")

	// ErrUnknownCommand indicates no handler is registered for a name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidArgument indicates a handler rejected its arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSealed indicates a registration was attempted after Seal.
	ErrSealed = errors.New("dispatcher is sealed")
)

// DuplicateCommandError reports a command name declared twice.
type DuplicateCommandError struct {
	Name     string
	Existing string // Component that registered the name first
	Incoming string // Component that tried to register it again
}

// Error implements the error interface.
func (e *DuplicateCommandError) Error() string {
	if e.Existing == e.Incoming {
		return fmt.Sprintf("command '%s' declared twice by %s", e.Name, e.Incoming)
	}
	return fmt.Sprintf("command '%s' from %s already registered by %s", e.Name, e.Incoming, e.Existing)
}

// Is reports whether target is ErrDuplicateCommand.
func (e *DuplicateCommandError) Is(target error) bool {
	return target == ErrDuplicateCommand
}

// UnknownCommandError reports a dispatch to an unregistered name.
type UnknownCommandError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command '%s'", e.Name)
}

// Is reports whether target is ErrUnknownCommand.
func (e *UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// RegistrationError reports a malformed component or command declaration.
type RegistrationError struct {
	Component string
	Message   string
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("registration failed: %s", e.Message)
	}
	return fmt.Sprintf("registration of %s failed: %s", e.Component, e.Message)
}

// ArgumentError is returned by a handler that rejects its arguments.
// The peripheral that returns it has not changed any state.
type ArgumentError struct {
	Arg     string // Argument name, e.g. "pin"
	Value   string // The invalid value, empty when missing
	Message string // Additional context
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	switch {
	case e.Message != "" && e.Value != "":
		return fmt.Sprintf("invalid %s '%s': %s", e.Arg, e.Value, e.Message)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("invalid %s '%s'", e.Arg, e.Value)
	}
}

// Is reports whether target is ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NewArgumentError creates an ArgumentError for a bad value.
func NewArgumentError(arg, value, message string) error {
	return &ArgumentError{Arg: arg, Value: value, Message: message}
}

// Usagef creates an ArgumentError carrying only a usage message.
func Usagef(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}
