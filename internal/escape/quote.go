// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape implements JSON string safety classification, and
// buffer/writer-based escaping and unescaping shared between the parser
// (canonical formatting of wild_string Nodes) and the loader (string
// decoding of json_string Nodes).
package escape

import (
	"unicode/utf8"

	"go4.org/mem"
)

var controlEsc = [...]byte{
	'\b': 'b',
	'\f': 'f',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	' ':  ' ', // sentinel: no control byte maps to space
}

var hexDigit = []byte("0123456789abcdef")

// NeedsEscape reports whether s contains any byte a JSON string literal
// must escape: a control byte (<0x20), DEL (0x7F), or a backslash.
func NeedsEscape(s mem.RO) bool {
	for i := 0; i < s.Len(); i++ {
		b := s.At(i)
		if b < 0x20 || b == 0x7F || b == '\\' {
			return true
		}
	}
	return false
}

// Quote encodes src (unquoted) as the body of a JSON string, escaping
// bytes that JSON string literals must not contain raw. It is a
// convenience wrapper over Quoter for callers that want a single allocated
// result rather than a writer.
func Quote(src mem.RO) []byte {
	q := &Quoter{}
	q.write(src)
	return q.buf
}

// A Quoter accumulates the escaped form of one or more byte slices. It
// exists so WriteEscaped and Quote can share the same scan-and-escape loop.
type Quoter struct{ buf []byte }

func (q *Quoter) putByte(bs ...byte) { q.buf = append(q.buf, bs...) }

func (q *Quoter) write(src mem.RO) {
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		if n == 0 {
			n = 1
		}
		if r < utf8.RuneSelf {
			switch {
			case r < ' ':
				if b := controlEsc[r]; b != 0 {
					q.putByte('\\', b)
				} else {
					q.putByte('\\', 'u', '0', '0', hexDigit[int(r>>4)], hexDigit[int(r&15)])
				}
			case r == 0x7F:
				q.putByte('\\', 'u', '0', '0', '7', 'f')
			case r == '\\' || r == '"':
				q.putByte('\\', byte(r))
			default:
				q.putByte(byte(r))
			}
			src = src.SliceFrom(n)
			continue
		}

		switch r {
		case '�': // replacement rune
			q.buf = append(q.buf, "\\ufffd"...)
		default:
			var rbuf [6]byte
			nn := utf8.EncodeRune(rbuf[:], r)
			q.buf = append(q.buf, rbuf[:nn]...)
		}
		src = src.SliceFrom(n)
	}
}

// WriteEscaped writes the escaped body of s (without surrounding quotes)
// to w. It is used to canonically format wild_string Nodes, which may
// contain characters that need escaping on output.
func WriteEscaped(w byteWriter, s mem.RO) error {
	q := &Quoter{}
	q.write(s)
	_, err := w.Write(q.buf)
	return err
}

// byteWriter is the minimal io.Writer surface WriteEscaped needs; declared
// locally to avoid importing io into this leaf package for a single method.
type byteWriter interface {
	Write([]byte) (int, error)
}
