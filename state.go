package shadowjson

import "go4.org/mem"

// A ParserState is a byte cursor over a JSON source. All operations are
// infallible except by precondition; position monotonically increases.
// ParserState never buffers input: the whole source is resident in src and
// every string/number Node it recognises borrows directly from that slice,
// giving the parser its zero-copy property.
type ParserState struct {
	src  []byte
	pos  int
	mark int // -1 when no mark is set

	line      int // 0-based
	lineStart int // offset of the start of the current line
}

const noMark = -1

// newParserState wraps src for a single parse.
func newParserState(src []byte) *ParserState {
	return &ParserState{src: src, mark: noMark}
}

// Eof reports whether the cursor has reached the end of the input.
func (s *ParserState) Eof() bool { return s.pos >= len(s.src) }

// Peek returns the byte at the cursor without advancing, and false at EOF.
func (s *ParserState) Peek() (byte, bool) {
	if s.Eof() {
		return 0, false
	}
	return s.src[s.pos], true
}

// Next returns the byte at the cursor and advances past it, or false at
// EOF. Advancing past a line feed updates line/lineStart bookkeeping.
func (s *ParserState) Next() (byte, bool) {
	b, ok := s.Peek()
	if !ok {
		return 0, false
	}
	s.pos++
	if b == '\n' {
		s.line++
		s.lineStart = s.pos
	}
	return b, true
}

// View returns the remaining unconsumed input.
func (s *ParserState) View() []byte { return s.src[s.pos:] }

// Pos returns the current byte offset.
func (s *ParserState) Pos() int { return s.pos }

// SetMark records the current position for a subsequent TakeMarked. Setting
// a mark while one is already outstanding is a programming error: only one
// mark can be outstanding at a time.
func (s *ParserState) SetMark() {
	if s.mark != noMark {
		panic("shadowjson: SetMark called with a mark already outstanding")
	}
	s.mark = s.pos
}

// TakeMarked returns the slice from the most recent SetMark to the current
// position (exclusive) and clears the mark. Calling TakeMarked with no
// mark set is a programming error.
func (s *ParserState) TakeMarked() []byte {
	if s.mark == noMark {
		panic("shadowjson: TakeMarked called with no mark set")
	}
	span := s.src[s.mark:s.pos]
	s.mark = noMark
	return span
}

// SkipSpace advances past ASCII whitespace (space, tab, CR, LF), updating
// line bookkeeping on each LF.
func (s *ParserState) SkipSpace() {
	for !s.Eof() {
		b := s.src[s.pos]
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return
		}
		s.Next()
	}
}

// SkipDigits advances past ASCII digits and reports how many were
// consumed.
func (s *ParserState) SkipDigits() int {
	n := 0
	for !s.Eof() && isASCIIDigit(s.src[s.pos]) {
		s.pos++
		n++
	}
	return n
}

// CheckLiteral reports whether the remaining input begins with lit; if so
// it advances past it and returns true. Otherwise the cursor is left
// unchanged. The comparison borrows the candidate span as a mem.RO view
// rather than allocating a string, so checking a true/false/null literal
// costs no heap allocation.
func (s *ParserState) CheckLiteral(lit string) bool {
	if len(s.src)-s.pos < len(lit) {
		return false
	}
	if !mem.B(s.src[s.pos : s.pos+len(lit)]).Equal(mem.S(lit)) {
		return false
	}
	for range lit {
		s.Next()
	}
	return true
}

// Line returns the current 0-based line number.
func (s *ParserState) Line() int { return s.line }

// Col returns the current 0-based column offset within the current line.
func (s *ParserState) Col() int { return s.pos - s.lineStart }

// LineCol returns the current position as a 1-based line, 0-based column
// pair, for use in diagnostics.
func (s *ParserState) LineCol() LineCol { return LineCol{Line: s.line + 1, Column: s.Col()} }

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
