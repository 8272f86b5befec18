package shadowjson

import (
	"fmt"
	"io"

	"github.com/gauntlet-dev/shadowjson/internal/escape"

	"go4.org/mem"
)

// NodeKind identifies the variant a Node holds.
type NodeKind uint8

// Constants defining the valid NodeKind values of a Node.
const (
	KindNull NodeKind = iota
	KindBool
	KindNumber
	KindSafeString
	KindJSONString
	KindWildString
	KindArray
	KindObject
	KindClass
	KindMulti
)

var kindNames = [...]string{
	KindNull:       "null",
	KindBool:       "bool",
	KindNumber:     "number",
	KindSafeString: "safe_string",
	KindJSONString: "json_string",
	KindWildString: "wild_string",
	KindArray:      "array",
	KindObject:     "object",
	KindClass:      "class",
	KindMulti:      "multi",
}

func (k NodeKind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// A Node is a single element of a Parser's assembly buffer. It is a closed
// tagged variant: callers switch on Kind and use the accessor appropriate
// to that kind.
//
// Node values borrow from the input byte slice (for number and string
// kinds) and from a Parser's ShadowTrie (for class and object kinds), so
// they are valid only as long as their owning Parser's buffers are.
type Node struct {
	kind  NodeKind
	boolv bool
	text  []byte // number/safe_string/json_string/wild_string payload, quotes stripped
	span  Span   // array/object/multi: span into the owning assembly buffer
	class *ObjectClass
}

// Null returns the null Node.
func Null() Node { return Node{kind: KindNull} }

// Bool returns a boolean Node with the given value.
func Bool(v bool) Node { return Node{kind: KindBool, boolv: v} }

// NumberText returns a number Node whose payload is the raw JSON number
// text (no surrounding quotes). The caller is responsible for the slice
// satisfying the JSON number grammar; NumberText itself does not validate.
func NumberText(raw []byte) Node { return Node{kind: KindNumber, text: raw} }

// SafeString returns a string Node whose payload contains no backslash
// escapes and can be emitted verbatim.
func SafeString(raw []byte) Node { return Node{kind: KindSafeString, text: raw} }

// JSONString returns a string Node whose payload contains at least one
// backslash escape and must be unescaped before use.
func JSONString(raw []byte) Node { return Node{kind: KindJSONString, text: raw} }

// WildString returns a string Node built from arbitrary caller-supplied
// bytes that may need JSON escaping on output.
func WildString(raw []byte) Node { return Node{kind: KindWildString, text: raw} }

// Array returns an array Node spanning [pos,end) of the owning assembly
// buffer.
func Array(pos, end int) Node { return Node{kind: KindArray, span: Span{Pos: pos, End: end}} }

// Object returns an object Node spanning [pos,end) of the owning assembly
// buffer. assembly[pos] must be a class Node, and end-pos must equal
// class.names+1.
func Object(pos, end int) Node { return Node{kind: KindObject, span: Span{Pos: pos, End: end}} }

// ClassRef returns a class Node borrowing the given ObjectClass. A class
// Node only ever appears as the first element of an object's span.
func ClassRef(c *ObjectClass) Node { return Node{kind: KindClass, class: c} }

// Multi returns a multi Node spanning [pos,end) of the owning assembly
// buffer, one top-level value per element.
func Multi(pos, end int) Node { return Node{kind: KindMulti, span: Span{Pos: pos, End: end}} }

// Kind reports which variant n holds.
func (n Node) Kind() NodeKind { return n.kind }

// BoolValue returns the boolean payload of a KindBool Node. It panics if n
// is not a KindBool Node.
func (n Node) BoolValue() bool {
	if n.kind != KindBool {
		panic(fmt.Sprintf("shadowjson: BoolValue on %v Node", n.kind))
	}
	return n.boolv
}

// Text returns the raw payload of a number or string Node (quotes
// stripped, escapes not yet decoded for json_string). It panics for any
// other kind.
func (n Node) Text() []byte {
	switch n.kind {
	case KindNumber, KindSafeString, KindJSONString, KindWildString:
		return n.text
	default:
		panic(fmt.Sprintf("shadowjson: Text on %v Node", n.kind))
	}
}

// Span returns the assembly-buffer span of an array, object, or multi
// Node. It panics for any other kind.
func (n Node) Span() Span {
	switch n.kind {
	case KindArray, KindObject, KindMulti:
		return n.span
	default:
		panic(fmt.Sprintf("shadowjson: Span on %v Node", n.kind))
	}
}

// Class returns the ObjectClass referenced by a class Node. It panics for
// any other kind.
func (n Node) Class() *ObjectClass {
	if n.kind != KindClass {
		panic(fmt.Sprintf("shadowjson: Class on %v Node", n.kind))
	}
	return n.class
}

// ClassOf returns the ObjectClass of an object Node by reading the
// class Node stored at the first slot of its span in assembly.
func ClassOf(n Node, assembly []Node) *ObjectClass {
	if n.kind != KindObject {
		panic(fmt.Sprintf("shadowjson: ClassOf on %v Node", n.kind))
	}
	if n.span.Len() < 1 {
		panic("shadowjson: object span has no class slot")
	}
	head := assembly[n.span.Pos]
	if head.kind != KindClass {
		panic("shadowjson: object span[0] is not a class Node")
	}
	return head.class
}

// ObjectValues returns the field-value Nodes of an object Node, in class
// order, i.e. assembly[span.Pos+1 : span.End].
func ObjectValues(n Node, assembly []Node) []Node {
	if n.kind != KindObject {
		panic(fmt.Sprintf("shadowjson: ObjectValues on %v Node", n.kind))
	}
	return assembly[n.span.Pos+1 : n.span.End]
}

// Elements returns the element Nodes of an array or multi Node, i.e.
// assembly[span.Pos:span.End].
func Elements(n Node, assembly []Node) []Node {
	switch n.kind {
	case KindArray, KindMulti:
		return assembly[n.span.Pos:n.span.End]
	default:
		panic(fmt.Sprintf("shadowjson: Elements on %v Node", n.kind))
	}
}

// Format writes the canonical JSON rendering of n to w. A class Node must
// never be formatted directly except as the implicit first element of its
// owning object, which Format skips automatically.
func Format(w io.Writer, n Node, assembly []Node) error {
	fw := &formatWriter{w: w}
	formatNode(fw, n, assembly)
	return fw.err
}

type formatWriter struct {
	w   io.Writer
	err error
}

func (fw *formatWriter) writeString(s string) {
	if fw.err != nil {
		return
	}
	_, fw.err = io.WriteString(fw.w, s)
}

func (fw *formatWriter) writeBytes(b []byte) {
	if fw.err != nil {
		return
	}
	_, fw.err = fw.w.Write(b)
}

func formatNode(fw *formatWriter, n Node, assembly []Node) {
	if fw.err != nil {
		return
	}
	switch n.kind {
	case KindNull:
		fw.writeString("null")
	case KindBool:
		if n.boolv {
			fw.writeString("true")
		} else {
			fw.writeString("false")
		}
	case KindNumber:
		fw.writeBytes(n.text)
	case KindSafeString, KindJSONString:
		fw.writeString(`"`)
		fw.writeBytes(n.text)
		fw.writeString(`"`)
	case KindWildString:
		fw.writeString(`"`)
		if fw.err == nil {
			fw.err = escape.WriteEscaped(fw.w, mem.B(n.text))
		}
		fw.writeString(`"`)
	case KindArray:
		fw.writeString("[")
		for i, el := range Elements(n, assembly) {
			if i > 0 {
				fw.writeString(",")
			}
			formatNode(fw, el, assembly)
		}
		fw.writeString("]")
	case KindObject:
		class := ClassOf(n, assembly)
		values := ObjectValues(n, assembly)
		fw.writeString("{")
		for i, name := range class.names {
			if i > 0 {
				fw.writeString(",")
			}
			fw.writeString(`"`)
			fw.writeBytes(name)
			fw.writeString(`":`)
			formatNode(fw, values[i], assembly)
		}
		fw.writeString("}")
	case KindMulti:
		for i, el := range Elements(n, assembly) {
			if i > 0 {
				fw.writeString("\n")
			}
			formatNode(fw, el, assembly)
		}
	case KindClass:
		panic("shadowjson: cannot format a class Node directly")
	default:
		panic(fmt.Sprintf("shadowjson: format of unknown kind %v", n.kind))
	}
}
