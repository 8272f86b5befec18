package shadowjson

// A Parser is a reusable recursive-descent JSON parser producing a tree of
// Nodes stored in a contiguous assembly buffer. A Parser instance is
// single-owner: its ShadowTrie, assembly buffer, and scratch stacks are
// mutated exclusively through that instance, and concurrent or reentrant
// calls to Parse/ParseMulti are a programming error.
type Parser struct {
	workAlloc     Allocator
	assemblyAlloc Allocator

	shadow *ShadowTrie
	state  *ParserState

	assembly    []Node
	assemblyCap int
	scratch     [][]Node

	parsing      bool
	restartCount int
}

// New constructs a Parser using workAlloc for both scratch/trie bookkeeping
// and the assembly buffer itself.
func New(workAlloc Allocator) *Parser {
	return NewCustom(workAlloc, workAlloc)
}

// NewCustom constructs a Parser with independent allocators for transient
// work (workAlloc) and the assembly buffer (assemblyAlloc).
func NewCustom(workAlloc, assemblyAlloc Allocator) *Parser {
	if workAlloc == nil {
		workAlloc = DefaultAllocator
	}
	if assemblyAlloc == nil {
		assemblyAlloc = DefaultAllocator
	}
	return &Parser{
		workAlloc:     workAlloc,
		assemblyAlloc: assemblyAlloc,
		shadow:        newShadowTrie(),
	}
}

// Close releases the Parser's assembly buffer back to its allocator. A
// closed Parser must not be reused.
func (p *Parser) Close() {
	if p.assembly != nil {
		p.assemblyAlloc.Free(p.assembly)
		p.assembly = nil
	}
}

// State returns the ParserState of the most recently started parse, for
// diagnostic use: Line, Col, View.
func (p *Parser) State() *ParserState { return p.state }

// RestartCount reports how many times the growth-restart protocol has fired
// over the Parser's lifetime. It never contributes to parse results and
// exists purely for diagnostics (surfaced by the CLI's bench subcommand).
func (p *Parser) RestartCount() int { return p.restartCount }

// Assembly returns the Parser's current assembly buffer, with the most
// recently parsed root Node at index 0. The returned slice is owned by the
// Parser and is only valid until the next Parse/ParseMulti call or Close.
func (p *Parser) Assembly() []Node { return p.assembly }

// TakeAssembly relinquishes the current assembly buffer to the caller and
// resets the Parser's own assembly to empty.
func (p *Parser) TakeAssembly() []Node {
	out := p.assembly
	p.assembly = nil
	p.assemblyCap = 0
	return out
}

// SetAssemblyAllocator destroys the current assembly buffer and adopts a
// new allocator for the next parse.
func (p *Parser) SetAssemblyAllocator(alloc Allocator) {
	if p.assembly != nil {
		p.assemblyAlloc.Free(p.assembly)
	}
	p.assembly = nil
	p.assemblyCap = 0
	p.assemblyAlloc = alloc
}

// Parse parses a single JSON value from src, leaving the resulting tree in
// the Parser's assembly buffer with the root Node at index 0.
func (p *Parser) Parse(src []byte) (Node, error) {
	return p.parseUsing(src, false)
}

// ParseMulti parses a sequence of comma- or whitespace-separated top-level
// values from src, a non-standard extension for log-stream inputs,
// returning a synthesized Multi Node.
func (p *Parser) ParseMulti(src []byte) (Node, error) {
	return p.parseUsing(src, true)
}

// ParseOwned parses src exactly as Parse does, but builds the assembly
// buffer on alloc and returns ownership of it to the caller; the Parser's
// own assembly buffer is left untouched.
func (p *Parser) ParseOwned(alloc Allocator, src []byte) ([]Node, Node, error) {
	return p.parseOwnedUsing(alloc, src, false)
}

// ParseMultiOwned is the ParseMulti analogue of ParseOwned.
func (p *Parser) ParseMultiOwned(alloc Allocator, src []byte) ([]Node, Node, error) {
	return p.parseOwnedUsing(alloc, src, true)
}

func (p *Parser) parseOwnedUsing(alloc Allocator, src []byte, multi bool) ([]Node, Node, error) {
	savedAlloc, savedBuf, savedCap := p.assemblyAlloc, p.assembly, p.assemblyCap
	p.assemblyAlloc, p.assembly, p.assemblyCap = alloc, nil, 0

	root, err := p.parseUsing(src, multi)
	owned := p.assembly

	p.assemblyAlloc, p.assembly, p.assemblyCap = savedAlloc, savedBuf, savedCap

	if err != nil {
		alloc.Free(owned)
		return nil, Node{}, err
	}
	return owned, root, nil
}

// parseUsing drives the growth-restart protocol: each iteration reserves an
// assembly buffer with at least assemblyCap headroom, runs the recursive
// descent, and if the descent panicked with a restartParser (because a
// mid-parse grow replaced the backing array), loops and retries from byte
// zero.
// No other error triggers a retry.
func (p *Parser) parseUsing(src []byte, multi bool) (Node, error) {
	if p.parsing {
		panic("shadowjson: Parse/ParseMulti called reentrantly on the same Parser")
	}
	for {
		p.reserveAssembly()
		p.state = newParserState(src)
		p.parsing = true
		restarted, root, err := p.attemptParse(multi)
		p.parsing = false
		if restarted {
			p.restartCount++
			continue
		}
		return root, err
	}
}

func (p *Parser) attemptParse(multi bool) (restarted bool, root Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case restartParser:
				restarted = true
			case *SyntaxError:
				err = e
			default:
				panic(r)
			}
		}
	}()
	if multi {
		root = p.parseTopMulti()
	} else {
		root = p.parseTopSingle()
	}
	p.assembly[0] = root
	return false, root, nil
}

// reserveAssembly ensures at least assemblyCap entries of headroom, then
// pushes a sentinel null Node at index 0 to reserve the root slot.
func (p *Parser) reserveAssembly() {
	if cap(p.assembly) < p.assemblyCap {
		if p.assembly != nil {
			p.assemblyAlloc.Free(p.assembly)
		}
		p.assembly = p.assemblyAlloc.Alloc(p.assemblyCap)[:0]
	} else {
		p.assembly = p.assembly[:0]
	}
	p.assembly = append(p.assembly, Node{}) // KindNull zero value reserves index 0
}

// ensureAssemblyCapacity grows the assembly buffer to at least 4x the
// required size when the next append would exceed capacity, and reports
// whether the backing storage moved.
func (p *Parser) ensureAssemblyCapacity(additional int) (moved bool) {
	required := len(p.assembly) + additional
	if required <= cap(p.assembly) {
		return false
	}
	newCap := required * 4
	newBuf := p.assemblyAlloc.Alloc(newCap)[:len(p.assembly)]
	copy(newBuf, p.assembly)
	p.assemblyAlloc.Free(p.assembly)
	p.assembly = newBuf
	p.assemblyCap = newCap
	return true
}

// commitSpan appends values to the assembly buffer in one block and
// returns the resulting span, for array and multi Nodes.
func (p *Parser) commitSpan(values []Node) Span {
	pos := len(p.assembly)
	if p.ensureAssemblyCapacity(len(values)) {
		panic(restartParser{})
	}
	p.assembly = append(p.assembly, values...)
	return Span{Pos: pos, End: len(p.assembly)}
}

// commitObjectSpan appends a class Node followed by values in one block, so
// that span[0] always holds the object's class.
func (p *Parser) commitObjectSpan(class *ObjectClass, values []Node) Span {
	pos := len(p.assembly)
	if p.ensureAssemblyCapacity(1 + len(values)) {
		panic(restartParser{})
	}
	p.assembly = append(p.assembly, ClassRef(class))
	p.assembly = append(p.assembly, values...)
	return Span{Pos: pos, End: len(p.assembly)}
}

// beginScratch returns the (truncated, capacity-retained) scratch vector
// for depth, extending the scratch stack lazily to cover it.
func (p *Parser) beginScratch(depth int) []Node {
	for depth >= len(p.scratch) {
		p.scratch = append(p.scratch, nil)
	}
	return p.scratch[depth][:0]
}

// endScratch stores s back so its backing capacity is retained the next
// time depth is visited.
func (p *Parser) endScratch(depth int, s []Node) { p.scratch[depth] = s }

func (p *Parser) fail(kind Kind, format string, args ...any) {
	panic(newSyntaxError(kind, p.state.LineCol(), format, args...))
}

// --- grammar ---

func (p *Parser) parseTopSingle() Node {
	p.state.SkipSpace()
	v := p.parseValue(1)
	p.state.SkipSpace()
	if !p.state.Eof() {
		p.fail(JunkAfterInput, "unexpected content after top-level value")
	}
	return v
}

// parseTopMulti implements the non-standard multi-value grammar: top-level
// values may be separated by whitespace, commas, or both, and a leading or
// trailing comma is tolerated.
func (p *Parser) parseTopMulti() Node {
	scratch := p.beginScratch(0)
	for {
		p.state.SkipSpace()
		if p.state.Eof() {
			break
		}
		if b, _ := p.state.Peek(); b == ',' {
			p.state.Next()
			continue
		}
		v := p.parseValue(1)
		scratch = append(scratch, v)
		p.state.SkipSpace()
	}
	p.endScratch(0, scratch)
	span := p.commitSpan(scratch)
	return Multi(span.Pos, span.End)
}

func (p *Parser) parseValue(depth int) Node {
	p.state.SkipSpace()
	b, ok := p.state.Peek()
	if !ok {
		p.fail(UnexpectedEndOfInput, "unexpected end of input")
	}
	switch {
	case b == 'n':
		p.expectLiteral("null")
		return Null()
	case b == 't':
		p.expectLiteral("true")
		return Bool(true)
	case b == 'f':
		p.expectLiteral("false")
		return Bool(false)
	case b == '"':
		return p.parseStringNode()
	case b == '-' || isASCIIDigit(b):
		return p.parseNumber()
	case b == '[':
		return p.parseArray(depth)
	case b == '{':
		return p.parseObject(depth)
	default:
		p.fail(Malformed, "unexpected byte %q", b)
		panic("unreachable")
	}
}

func (p *Parser) expectLiteral(lit string) {
	if !p.state.CheckLiteral(lit) {
		p.fail(BadToken, "expected literal %q", lit)
	}
}

// parseStringNode consumes a JSON string, classifying it safe_string or
// json_string.
func (p *Parser) parseStringNode() Node {
	raw, safe := p.scanStringBody()
	if safe {
		return SafeString(raw)
	}
	return JSONString(raw)
}

// scanStringBody consumes a quoted string and returns its raw content
// (quotes stripped) and whether it contains no backslash escapes.
func (p *Parser) scanStringBody() ([]byte, bool) {
	p.state.Next() // consume opening quote
	p.state.SetMark()
	safe := true
	for {
		b, ok := p.state.Peek()
		if !ok {
			p.fail(MissingQuotes, "unterminated string")
		}
		if b == '"' {
			break
		}
		p.state.Next()
		if b == '\\' {
			safe = false
			if _, ok := p.state.Next(); !ok {
				p.fail(MissingQuotes, "unterminated escape sequence")
			}
		}
	}
	raw := p.state.TakeMarked()
	p.state.Next() // consume closing quote
	return raw, safe
}

func (p *Parser) parseNumber() Node {
	p.state.SetMark()
	if b, ok := p.state.Peek(); ok && b == '-' {
		p.state.Next()
	}
	if p.state.SkipDigits() == 0 {
		p.fail(MissingDigits, "expected at least one digit")
	}
	if b, ok := p.state.Peek(); ok && b == '.' {
		p.state.Next()
		if p.state.SkipDigits() == 0 {
			p.fail(MissingDigits, "expected digits after decimal point")
		}
	}
	if b, ok := p.state.Peek(); ok && (b == 'e' || b == 'E') {
		p.state.Next()
		if b2, ok := p.state.Peek(); ok && (b2 == '+' || b2 == '-') {
			p.state.Next()
		}
		if p.state.SkipDigits() == 0 {
			p.fail(MissingDigits, "expected exponent digits")
		}
	}
	return NumberText(p.state.TakeMarked())
}

func (p *Parser) parseArray(depth int) Node {
	p.state.Next() // consume '['
	p.state.SkipSpace()
	if b, ok := p.state.Peek(); ok && b == ']' {
		p.state.Next()
		span := p.commitSpan(nil)
		return Array(span.Pos, span.End)
	}

	scratch := p.beginScratch(depth)
	for {
		v := p.parseValue(depth + 1)
		scratch = append(scratch, v)
		p.state.SkipSpace()
		b, ok := p.state.Peek()
		if !ok {
			p.fail(UnexpectedEndOfInput, "unexpected end of input in array")
		}
		if b == ']' {
			p.state.Next()
			break
		}
		if b != ',' {
			p.fail(MissingComma, "expected , or ] in array")
		}
		p.state.Next()
		p.state.SkipSpace()
	}
	p.endScratch(depth, scratch)
	span := p.commitSpan(scratch)
	return Array(span.Pos, span.End)
}

func (p *Parser) parseObject(depth int) Node {
	p.state.Next() // consume '{'
	p.state.SkipSpace()

	cur := p.shadow.startWalk()

	if b, ok := p.state.Peek(); ok && b == '}' {
		p.state.Next()
		class := getClass(cur)
		span := p.commitObjectSpan(class, nil)
		return Object(span.Pos, span.End)
	}

	scratch := p.beginScratch(depth)
	for {
		p.state.SkipSpace()
		b, ok := p.state.Peek()
		if !ok {
			p.fail(UnexpectedEndOfInput, "unexpected end of input in object")
		}
		if b != '"' {
			p.fail(MissingKey, "expected string key")
		}
		keyRaw, _ := p.scanStringBody()
		cur = getNext(cur, keyRaw)

		p.state.SkipSpace()
		b2, ok := p.state.Peek()
		if !ok || b2 != ':' {
			p.fail(MissingColon, "expected : after object key")
		}
		p.state.Next()

		v := p.parseValue(depth + 1)
		scratch = append(scratch, v)

		p.state.SkipSpace()
		b3, ok := p.state.Peek()
		if !ok {
			p.fail(UnexpectedEndOfInput, "unexpected end of input in object")
		}
		if b3 == '}' {
			p.state.Next()
			break
		}
		if b3 != ',' {
			p.fail(MissingComma, "expected , or } in object")
		}
		p.state.Next()
	}
	p.endScratch(depth, scratch)
	class := getClass(cur)
	span := p.commitObjectSpan(class, scratch)
	return Object(span.Pos, span.End)
}
