package parser

import "fmt"

// ParseError reports a line that could not be tokenized.
type ParseError struct {
	Kind    ParseErrorKind
	Value   string // The offending input
	Message string // Additional context
}

// ParseErrorKind categorizes parse errors.
type ParseErrorKind int

const (
	// ErrKindEmpty indicates a line with no command.
	ErrKindEmpty ParseErrorKind = iota
	// ErrKindUnterminatedQuote indicates a quote without its closing pair.
	ErrKindUnterminatedQuote
	// ErrKindDanglingEscape indicates a backslash at end of line.
	ErrKindDanglingEscape
	// ErrKindInvalidName indicates a command name with illegal characters.
	ErrKindInvalidName
	// ErrKindLineTooLong indicates a line longer than MaxLineLength.
	ErrKindLineTooLong
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrKindEmpty:
		return "empty command"
	case ErrKindUnterminatedQuote:
		return fmt.Sprintf("unterminated quote in '%s'", e.Value)
	case ErrKindDanglingEscape:
		return fmt.Sprintf("dangling escape in '%s'", e.Value)
	case ErrKindInvalidName:
		return fmt.Sprintf("invalid command name '%s'", e.Value)
	case ErrKindLineTooLong:
		return e.Message
	default:
		return fmt.Sprintf("parse error: %s", e.Value)
	}
}

func newEmptyError() error {
	return &ParseError{Kind: ErrKindEmpty}
}

func newUnterminatedQuoteError(line string) error {
	return &ParseError{Kind: ErrKindUnterminatedQuote, Value: line}
}

func newDanglingEscapeError(line string) error {
	return &ParseError{Kind: ErrKindDanglingEscape, Value: line}
}

func newInvalidNameError(name string) error {
	return &ParseError{Kind: ErrKindInvalidName, Value: name}
}

func newLineTooLongError(n int) error {
	return &ParseError{
		Kind:    ErrKindLineTooLong,
		Message: fmt.Sprintf("line too long (%d > %d characters)", n, MaxLineLength),
	}
}
