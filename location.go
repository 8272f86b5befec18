package shadowjson

import "fmt"

// A Span describes a contiguous span of a source input, or of the assembly
// buffer produced by a Parser. For array and object Nodes, Pos and End index
// the owning Parser's assembly buffer rather than the source text.
type Span struct {
	Pos int // the start offset, 0-based
	End int // the end offset, 0-based (noninclusive)
}

// Len reports the number of elements spanned.
func (s Span) Len() int { return s.End - s.Pos }

// A LineCol describes the line number and column offset of a location in
// source text.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 0-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// A Location describes the complete location of a range of source text,
// including line and column offsets.
type Location struct {
	Span
	First, Last LineCol
}
