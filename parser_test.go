// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package shadowjson_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gauntlet-dev/shadowjson"
)

func mustParse(t *testing.T, src string) (shadowjson.Node, []shadowjson.Node, *shadowjson.Parser) {
	t.Helper()
	p := shadowjson.New(nil)
	root, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", src, err)
	}
	return root, p.Assembly(), p
}

func TestParseScalars(t *testing.T) {
	tests := []struct {
		src  string
		kind shadowjson.NodeKind
	}{
		{"null", shadowjson.KindNull},
		{"true", shadowjson.KindBool},
		{"false", shadowjson.KindBool},
		{"0", shadowjson.KindNumber},
		{"-12.5e+3", shadowjson.KindNumber},
		{`"plain"`, shadowjson.KindSafeString},
		{`"esc\n"`, shadowjson.KindJSONString},
	}
	for _, test := range tests {
		root, _, _ := mustParse(t, test.src)
		if root.Kind() != test.kind {
			t.Errorf("Parse(%q).Kind() = %v, want %v", test.src, root.Kind(), test.kind)
		}
	}
}

func TestParseEmptyComposites(t *testing.T) {
	root, assembly, _ := mustParse(t, `[]`)
	if root.Kind() != shadowjson.KindArray {
		t.Fatalf("Kind = %v, want array", root.Kind())
	}
	if els := shadowjson.Elements(root, assembly); len(els) != 0 {
		t.Errorf("Elements = %v, want empty", els)
	}

	root, assembly, _ = mustParse(t, `{}`)
	if root.Kind() != shadowjson.KindObject {
		t.Fatalf("Kind = %v, want object", root.Kind())
	}
	class := shadowjson.ClassOf(root, assembly)
	if class.Len() != 0 {
		t.Errorf("class.Len() = %d, want 0", class.Len())
	}
}

func TestParseNested(t *testing.T) {
	const src = `{"a":1,"b":[1,2,{"c":3}],"d":null}`
	root, assembly, _ := mustParse(t, src)

	class := shadowjson.ClassOf(root, assembly)
	if class.Len() != 3 {
		t.Fatalf("class.Len() = %d, want 3", class.Len())
	}
	values := shadowjson.ObjectValues(root, assembly)
	if values[0].Kind() != shadowjson.KindNumber || string(values[0].Text()) != "1" {
		t.Errorf("a = %v, want number 1", values[0])
	}
	if values[2].Kind() != shadowjson.KindNull {
		t.Errorf("d = %v, want null", values[2])
	}

	bEls := shadowjson.Elements(values[1], assembly)
	if len(bEls) != 3 {
		t.Fatalf("len(b) = %d, want 3", len(bEls))
	}
	innerClass := shadowjson.ClassOf(bEls[2], assembly)
	if innerClass.Len() != 1 {
		t.Errorf("inner class.Len() = %d, want 1", innerClass.Len())
	}
}

// TestClassSharing exercises the trie's defining property: two objects
// with the same key sequence, in the same document, share one *ObjectClass
// pointer.
func TestClassSharing(t *testing.T) {
	const src = `[{"x":1,"y":2},{"x":3,"y":4}]`
	root, assembly, _ := mustParse(t, src)

	els := shadowjson.Elements(root, assembly)
	c1 := shadowjson.ClassOf(els[0], assembly)
	c2 := shadowjson.ClassOf(els[1], assembly)
	if c1 != c2 {
		t.Errorf("expected shared ObjectClass, got distinct pointers %p != %p", c1, c2)
	}
}

// TestClassSharingAcrossParses exercises class sharing across successive
// Parse calls on the same Parser, since the ShadowTrie is owned by the
// Parser rather than by a single parse.
func TestClassSharingAcrossParses(t *testing.T) {
	p := shadowjson.New(nil)
	root1, err := p.Parse([]byte(`{"x":1,"y":2}`))
	if err != nil {
		t.Fatalf("Parse 1: %v", err)
	}
	c1 := shadowjson.ClassOf(root1, p.Assembly())

	root2, err := p.Parse([]byte(`{"x":9,"y":8}`))
	if err != nil {
		t.Fatalf("Parse 2: %v", err)
	}
	c2 := shadowjson.ClassOf(root2, p.Assembly())

	if c1 != c2 {
		t.Errorf("expected class shared across parses, got distinct pointers %p != %p", c1, c2)
	}
}

func TestParseMulti(t *testing.T) {
	const src = `{"a":1} {"a":2}, {"a":3},`
	p := shadowjson.New(nil)
	root, err := p.ParseMulti([]byte(src))
	if err != nil {
		t.Fatalf("ParseMulti: %v", err)
	}
	els := shadowjson.Elements(root, p.Assembly())
	if len(els) != 3 {
		t.Fatalf("len(elements) = %d, want 3", len(els))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind shadowjson.Kind
	}{
		{"UnclosedObject", `{`, shadowjson.UnexpectedEndOfInput},
		{"UnclosedArray", `[1,2,`, shadowjson.UnexpectedEndOfInput},
		{"JunkAfterInput", `{"a":1} junk`, shadowjson.JunkAfterInput},
		{"UnterminatedString", `"abc`, shadowjson.MissingQuotes},
		{"BadLiteral", `nul`, shadowjson.BadToken},
		{"MissingColon", `{"a" 1}`, shadowjson.MissingColon},
		{"MissingComma", `[1 2]`, shadowjson.MissingComma},
		{"MissingKey", `{1:2}`, shadowjson.MissingKey},
		{"NoDigits", `-`, shadowjson.MissingDigits},
		{"BadByte", `#`, shadowjson.Malformed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := shadowjson.New(nil)
			_, err := p.Parse([]byte(test.src))
			if err == nil {
				t.Fatalf("Parse(%q): got nil error, want one", test.src)
			}
			se, ok := err.(*shadowjson.SyntaxError)
			if !ok {
				t.Fatalf("Parse(%q): error type %T, want *SyntaxError", test.src, err)
			}
			if se.Kind != test.kind {
				t.Errorf("Parse(%q): Kind = %v, want %v", test.src, se.Kind, test.kind)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	tests := []string{
		`null`, `true`, `false`, `0`, `-12.5e+3`,
		`"plain"`, `"esc\n"`,
		`[]`, `{}`,
		`{"a":1,"b":[1,2,3],"c":{"d":null}}`,
	}
	for _, src := range tests {
		root, assembly, _ := mustParse(t, src)
		var buf bytes.Buffer
		if err := shadowjson.Format(&buf, root, assembly); err != nil {
			t.Fatalf("Format(%q): %v", src, err)
		}
		if got := buf.String(); got != src {
			t.Errorf("Format(%q) = %q, want unchanged", src, got)
		}
	}
}

// countingAllocator wraps the heap while recording how many times it was
// asked to Alloc or Free, so tests can confirm a caller-supplied Allocator
// was actually exercised rather than silently ignored.
type countingAllocator struct {
	allocs, frees int
}

func (a *countingAllocator) Alloc(n int) []shadowjson.Node {
	a.allocs++
	return make([]shadowjson.Node, n)
}

func (a *countingAllocator) Free([]shadowjson.Node) { a.frees++ }

func TestParseOwned(t *testing.T) {
	p := shadowjson.New(nil)
	ownRoot, err := p.Parse([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ownLen := len(p.Assembly())

	alloc := &countingAllocator{}
	owned, root, err := p.ParseOwned(alloc, []byte(`[1,2,3]`))
	if err != nil {
		t.Fatalf("ParseOwned: %v", err)
	}
	if root.Kind() != shadowjson.KindArray {
		t.Errorf("ParseOwned root.Kind() = %v, want KindArray", root.Kind())
	}
	if got, want := len(shadowjson.Elements(root, owned)), 3; got != want {
		t.Errorf("ParseOwned element count = %d, want %d", got, want)
	}
	if alloc.allocs == 0 {
		t.Error("ParseOwned never called the supplied Allocator")
	}

	// The Parser's own assembly must be untouched by ParseOwned.
	if got := len(p.Assembly()); got != ownLen {
		t.Errorf("Parser's own assembly changed size: got %d, want %d", got, ownLen)
	}
	if p.Assembly()[0].Kind() != ownRoot.Kind() {
		t.Errorf("Parser's own assembly root kind changed to %v", p.Assembly()[0].Kind())
	}
	if &owned[0] == &p.Assembly()[0] {
		t.Error("ParseOwned's buffer aliases the Parser's own assembly")
	}
}

func TestParseMultiOwned(t *testing.T) {
	p := shadowjson.New(nil)
	alloc := &countingAllocator{}
	owned, root, err := p.ParseMultiOwned(alloc, []byte(`{"a":1} {"a":2}`))
	if err != nil {
		t.Fatalf("ParseMultiOwned: %v", err)
	}
	if root.Kind() != shadowjson.KindMulti {
		t.Errorf("ParseMultiOwned root.Kind() = %v, want KindMulti", root.Kind())
	}
	if got, want := len(shadowjson.Elements(root, owned)), 2; got != want {
		t.Errorf("ParseMultiOwned element count = %d, want %d", got, want)
	}
	if alloc.allocs == 0 {
		t.Error("ParseMultiOwned never called the supplied Allocator")
	}
	// The Parser has done no Parse/ParseMulti of its own, so its assembly
	// must remain empty.
	if p.Assembly() != nil {
		t.Errorf("Parser's own assembly is non-nil after only an Owned parse: %v", p.Assembly())
	}
}

func TestTakeAssembly(t *testing.T) {
	p := shadowjson.New(nil)
	if _, err := p.Parse([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := len(p.Assembly())
	if n == 0 {
		t.Fatal("expected a non-empty assembly after Parse")
	}

	taken := p.TakeAssembly()
	if len(taken) != n {
		t.Errorf("TakeAssembly returned %d nodes, want %d", len(taken), n)
	}
	if p.Assembly() != nil {
		t.Errorf("Parser's assembly not cleared after TakeAssembly: %v", p.Assembly())
	}

	// The Parser must still be usable after TakeAssembly, building a fresh
	// assembly from scratch.
	root, err := p.Parse([]byte(`[1,2]`))
	if err != nil {
		t.Fatalf("Parse after TakeAssembly: %v", err)
	}
	if root.Kind() != shadowjson.KindArray {
		t.Errorf("Parse after TakeAssembly: Kind() = %v, want KindArray", root.Kind())
	}
}

func TestSetAssemblyAllocator(t *testing.T) {
	first := &countingAllocator{}
	p := shadowjson.NewCustom(nil, first)
	if _, err := p.Parse([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if first.allocs == 0 {
		t.Error("initial allocator was never used")
	}

	second := &countingAllocator{}
	p.SetAssemblyAllocator(second)
	if first.frees == 0 {
		t.Error("SetAssemblyAllocator did not free the previous assembly buffer")
	}
	if p.Assembly() != nil {
		t.Errorf("assembly not cleared by SetAssemblyAllocator: %v", p.Assembly())
	}

	root, err := p.Parse([]byte(`[1,2,3]`))
	if err != nil {
		t.Fatalf("Parse after SetAssemblyAllocator: %v", err)
	}
	if root.Kind() != shadowjson.KindArray {
		t.Errorf("Parse after SetAssemblyAllocator: Kind() = %v, want KindArray", root.Kind())
	}
	if second.allocs == 0 {
		t.Error("new allocator was never used for the next parse")
	}
}

func TestRestartProtocol(t *testing.T) {
	// A fresh Parser starts with no assembly headroom, so the growth-restart
	// protocol fires at least once for any non-trivial document.
	p := shadowjson.NewCustom(shadowjson.DefaultAllocator, shadowjson.DefaultAllocator)
	src := []byte(strings.Repeat(`{"a":1},`, 50))
	if _, err := p.ParseMulti(src); err != nil {
		t.Fatalf("ParseMulti: %v", err)
	}
	// Reparsing the same shape after warm-up should not need to restart
	// again once the assembly buffer's high-water mark has been learned.
	count := p.RestartCount()
	if _, err := p.ParseMulti(src); err != nil {
		t.Fatalf("ParseMulti (warm): %v", err)
	}
	if p.RestartCount() != count {
		t.Errorf("RestartCount grew from %d to %d on a repeat parse of the same size", count, p.RestartCount())
	}
}
