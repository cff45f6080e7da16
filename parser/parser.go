// Package parser turns one line of shell input into a command
// invocation.
//
// A line is a command name followed by zero or more arguments separated
// by whitespace:
//
//	pin-write 13 high
//	serial-send "hello world"
//	log it\'s alive   # trailing comment
//
// Double and single quotes group words into one argument. A backslash
// escapes a character the tokenizer would otherwise act on: whitespace,
// quotes, # and backslash itself outside quotes, " and backslash inside
// double quotes. Any other backslash is kept, so sequences such as \n
// reach the command for it to expand. Inside single quotes everything
// is literal. An unquoted # starts a
// comment. Command names are lower-cased; arguments are not.
package parser

import (
	"strings"
	"unicode"
)

// MaxLineLength is the longest line Parse accepts.
const MaxLineLength = 4096

// Invocation is a parsed command line.
type Invocation struct {
	Name string
	Args []string
}

// String re-joins the invocation with single spaces.
func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Name
	}
	return inv.Name + " " + strings.Join(inv.Args, " ")
}

// Parser tokenizes command lines.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// Parse splits line into a command name and arguments.
func (p *Parser) Parse(line string) (Invocation, error) {
	if len(line) > MaxLineLength {
		return Invocation{}, newLineTooLongError(len(line))
	}

	tokens, err := tokenize(line)
	if err != nil {
		return Invocation{}, err
	}
	if len(tokens) == 0 {
		return Invocation{}, newEmptyError()
	}

	name := strings.ToLower(tokens[0])
	if !validName(name) {
		return Invocation{}, newInvalidNameError(tokens[0])
	}

	return Invocation{Name: name, Args: tokens[1:]}, nil
}

// validName accepts letters, digits, '-', '_' and a leading '.'.
func validName(name string) bool {
	for i, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
		case r == '.' && i == 0:
		default:
			return false
		}
	}
	return name != "" && name != "."
}

func tokenize(line string) ([]string, error) {
	const (
		plain = iota
		double
		single
	)

	var (
		tokens  []string
		current strings.Builder
		inToken bool
		state   = plain
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch state {
		case single:
			if r == '\'' {
				state = plain
				continue
			}
			current.WriteRune(r)

		case double:
			switch r {
			case '"':
				state = plain
			case '\\':
				if i+1 >= len(runes) {
					return nil, newDanglingEscapeError(line)
				}
				if next := runes[i+1]; next == '"' || next == '\\' {
					i++
					r = next
				}
				current.WriteRune(r)
			default:
				current.WriteRune(r)
			}

		default:
			switch {
			case r == '#' && !inToken:
				i = len(runes)
			case unicode.IsSpace(r):
				if inToken {
					tokens = append(tokens, current.String())
					current.Reset()
					inToken = false
				}
			case r == '"':
				state = double
				inToken = true
			case r == '\'':
				state = single
				inToken = true
			case r == '\\':
				if i+1 >= len(runes) {
					return nil, newDanglingEscapeError(line)
				}
				if next := runes[i+1]; escapable(next) {
					i++
					r = next
				}
				current.WriteRune(r)
				inToken = true
			default:
				current.WriteRune(r)
				inToken = true
			}
		}
	}

	if state != plain {
		return nil, newUnterminatedQuoteError(line)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// escapable reports whether an unquoted backslash escapes r.
func escapable(r rune) bool {
	return unicode.IsSpace(r) || r == '"' || r == '\'' || r == '#' || r == '\\'
}

// ExpandEscapes processes \n, \t, \r, \s, \e and \\ sequences in s.
// Unknown sequences are kept as written.
func ExpandEscapes(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			i++
			switch runes[i] {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 'r':
				result.WriteRune('\r')
			case 's':
				result.WriteRune(' ')
			case 'e':
				result.WriteRune('\x1B')
			case '\\':
				result.WriteRune('\\')
			default:
				result.WriteRune('\\')
				result.WriteRune(runes[i])
			}
		} else {
			result.WriteRune(runes[i])
		}
	}
	return result.String()
}
