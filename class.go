package shadowjson

import (
	"github.com/cespare/xxhash/v2"

	"github.com/gauntlet-dev/shadowjson/internal/escape"

	"go4.org/mem"
)

// An ObjectClass is the shared, indexed descriptor for an ordered key
// sequence of a JSON object. It is immutable after construction and is safe
// to share by pointer across every object in a document (and across
// successive parses by the same Parser) that has the same key sequence.
type ObjectClass struct {
	names          [][]byte // raw, possibly-escaped key text, in first-encounter order
	unescapedNames [][]byte // decoded UTF-8 form of each name, parallel to names
	indexMap       map[string]uint32

	digest    uint64
	digestSet bool
}

// Len reports the number of keys in the class.
func (c *ObjectClass) Len() int { return len(c.names) }

// Name returns the raw (possibly escaped) text of the i'th key.
func (c *ObjectClass) Name(i int) []byte { return c.names[i] }

// UnescapedName returns the decoded UTF-8 text of the i'th key.
func (c *ObjectClass) UnescapedName(i int) []byte { return c.unescapedNames[i] }

// Index returns the ordinal position of name within the class, and whether
// it was found. Lookup is O(1) via the class's index map.
func (c *ObjectClass) Index(name string) (int, bool) {
	i, ok := c.indexMap[name]
	return int(i), ok
}

// Digest returns a cheap 64-bit content fingerprint of the class's key
// sequence, computed lazily and cached. It is a diagnostic/caching aid
// only: class identity is always pointer equality, never digest equality,
// since two distinct classes could in principle collide.
func (c *ObjectClass) Digest() uint64 {
	if c.digestSet {
		return c.digest
	}
	h := xxhash.New()
	for _, name := range c.unescapedNames {
		h.Write(name)
		h.Write([]byte{0}) // separator so {"ab","c"} and {"a","bc"} don't collide
	}
	c.digest = h.Sum64()
	c.digestSet = true
	return c.digest
}

// buildClass materialises the ObjectClass for the key sequence ending at
// trie node t: walk parent links back to the root, then decode each raw
// name to build unescapedNames and the index map.
func buildClass(t *trieNode) *ObjectClass {
	n := t.size()
	c := &ObjectClass{
		names:          make([][]byte, n),
		unescapedNames: make([][]byte, n),
		indexMap:       make(map[string]uint32, n),
	}
	for cur := t; cur.parent != nil; cur = cur.parent {
		c.names[cur.index] = cur.name
	}
	for i, raw := range c.names {
		dec, err := escape.Unquote(mem.B(raw))
		if err != nil {
			// The scanner only recognises string structure (quotes and
			// backslashes), so a key with an invalid escape can reach the
			// trie; fall back to the raw bytes rather than losing the key.
			dec = append([]byte(nil), raw...)
		}
		c.unescapedNames[i] = dec
		c.indexMap[string(dec)] = uint32(i)
	}
	return c
}
