// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package escape

import (
	"errors"
	"unicode/utf8"

	"go4.org/mem"
)

// Errors returned by UnescapedLength and UnescapeToBuffer. Callers in
// package shadowjson and package loader map these onto their own Kind
// taxonomies.
var (
	ErrIncompleteEscape = errors.New("incomplete escape sequence")
	ErrBadUnicodeEscape = errors.New("invalid unicode escape")
	ErrSurrogateHalf    = errors.New("cannot encode surrogate half as utf-8")
)

// UnescapedLength scans s (already stripped of surrounding quotes) and
// returns the number of decoded UTF-8 bytes the unescaped form will
// occupy. It fails with ErrBadUnicodeEscape on a truncated or malformed \u
// sequence, and ErrSurrogateHalf on an isolated low surrogate or a high
// surrogate not immediately followed by \u<low>.
func UnescapedLength(s mem.RO) (int, error) {
	n := 0
	err := scanUnescape(s, func(r mem.RO) { n += r.Len() })
	return n, err
}

// UnescapeToBuffer writes the decoded bytes of s into buf, returning the
// number of bytes written. buf must have capacity at least
// UnescapedLength(s); UnescapeToBuffer does not itself size buf.
func UnescapeToBuffer(s mem.RO, buf []byte) (int, error) {
	dst := buf[:0]
	err := scanUnescape(s, func(r mem.RO) { dst = mem.Append(dst, r) })
	return len(dst), err
}

// Unquote is a convenience that combines UnescapedLength and
// UnescapeToBuffer into a single allocation, for callers (such as
// ObjectClass construction) that don't already own a sized buffer.
func Unquote(s mem.RO) ([]byte, error) {
	n, err := UnescapedLength(s)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := UnescapeToBuffer(s, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// scanUnescape walks s once, calling emit with each successive chunk of
// decoded output. Both UnescapedLength and UnescapeToBuffer share this
// single decoding pass so the escape grammar is defined exactly once.
func scanUnescape(s mem.RO, emit func(mem.RO)) error {
	for s.Len() != 0 {
		i := mem.IndexByte(s, '\\')
		if i < 0 {
			emit(s)
			return nil
		}
		emit(s.SliceTo(i))
		s = s.SliceFrom(i + 1)
		if s.Len() == 0 {
			return ErrIncompleteEscape
		}
		switch s.At(0) {
		case '"', '\\', '/':
			emit(s.SliceTo(1))
			s = s.SliceFrom(1)
		case 'b':
			emit(mem.S("\b"))
			s = s.SliceFrom(1)
		case 'f':
			emit(mem.S("\f"))
			s = s.SliceFrom(1)
		case 'n':
			emit(mem.S("\n"))
			s = s.SliceFrom(1)
		case 'r':
			emit(mem.S("\r"))
			s = s.SliceFrom(1)
		case 't':
			emit(mem.S("\t"))
			s = s.SliceFrom(1)
		case 'u':
			s = s.SliceFrom(1)
			hi, err := parseHex4(s)
			if err != nil {
				return err
			}
			s = s.SliceFrom(4)

			switch {
			case isHighSurrogate(hi):
				if s.Len() < 6 || s.At(0) != '\\' || s.At(1) != 'u' {
					return ErrSurrogateHalf
				}
				lo, err := parseHex4(s.SliceFrom(2))
				if err != nil {
					return err
				}
				if !isLowSurrogate(lo) {
					return ErrSurrogateHalf
				}
				s = s.SliceFrom(6)
				r := (rune(hi&0x3FF)<<10 | rune(lo&0x3FF)) + 0x10000
				emit(mem.B(encodeRune(r)))
			case isLowSurrogate(hi):
				return ErrSurrogateHalf
			default:
				emit(mem.B(encodeRune(rune(hi))))
			}
		default:
			return ErrBadUnicodeEscape
		}
	}
	return nil
}

func isHighSurrogate(v uint16) bool { return v >= 0xD800 && v <= 0xDBFF }
func isLowSurrogate(v uint16) bool  { return v >= 0xDC00 && v <= 0xDFFF }

func encodeRune(r rune) []byte {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return append([]byte(nil), buf[:n]...)
}

// parseHex4 parses the 4 hex digits at the front of s via manual
// digit-by-digit accumulation over a borrowed mem.RO view, avoiding a
// string conversion.
func parseHex4(s mem.RO) (uint16, error) {
	if s.Len() < 4 {
		return 0, ErrBadUnicodeEscape
	}
	var v uint16
	for i := 0; i < 4; i++ {
		b := s.At(i)
		v <<= 4
		switch {
		case '0' <= b && b <= '9':
			v += uint16(b - '0')
		case 'a' <= b && b <= 'f':
			v += uint16(b - 'a' + 10)
		case 'A' <= b && b <= 'F':
			v += uint16(b - 'A' + 10)
		default:
			return 0, ErrBadUnicodeEscape
		}
	}
	return v, nil
}
