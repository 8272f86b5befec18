package shadowjson

import "fmt"

// A Kind classifies the errors reported by a Parser.
type Kind int

// Constants defining the valid Kind values a Parser can report.
// Loader-only kinds live in package loader.
const (
	UnexpectedEndOfInput Kind = iota
	Malformed // generic grammar violation
	BadToken
	MissingKey
	MissingQuotes
	MissingComma
	MissingColon
	MissingDigits
	JunkAfterInput
	BadUnicodeEscape
	Utf8CannotEncodeSurrogateHalf
	OutOfMemory
)

var kindStr = [...]string{
	UnexpectedEndOfInput:          "unexpected end of input",
	Malformed:                     "syntax error",
	BadToken:                      "bad token",
	MissingKey:                    "missing key",
	MissingQuotes:                 "missing quotes",
	MissingComma:                  "missing comma",
	MissingColon:                  "missing colon",
	MissingDigits:                 "missing digits",
	JunkAfterInput:                "junk after input",
	BadUnicodeEscape:              "bad unicode escape",
	Utf8CannotEncodeSurrogateHalf: "cannot encode surrogate half as utf-8",
	OutOfMemory:                   "out of memory",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindStr) {
		return "unknown error kind"
	}
	return kindStr[k]
}

// A SyntaxError reports a lexical or grammatical defect in the input to a
// Parser. The concrete type is returned by Parser.Parse, Parser.ParseMulti,
// and their Owned variants.
type SyntaxError struct {
	Kind     Kind
	Location LineCol
	Message  string

	err error
}

// Error satisfies the error interface.
func (e *SyntaxError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("at %s: %s", e.Location, e.Kind)
	}
	return fmt.Sprintf("at %s: %s: %s", e.Location, e.Kind, e.Message)
}

// Unwrap supports error wrapping.
func (e *SyntaxError) Unwrap() error { return e.err }

func newSyntaxError(kind Kind, loc LineCol, msg string, args ...any) *SyntaxError {
	return &SyntaxError{Kind: kind, Location: loc, Message: fmt.Sprintf(msg, args...)}
}

// restartParser is the internal sentinel error that drives the
// growth-restart protocol. It never escapes a public entry point.
type restartParser struct{}

func (restartParser) Error() string { return "internal: assembly buffer relocated, restart" }
