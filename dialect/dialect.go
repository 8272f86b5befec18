// Package dialect normalizes JSON-with-Comments-and-Commas (JWCC) input
// down to the strict grammar shadowjson.Parser accepts, so that config
// files and other human-edited documents can be parsed by the same
// zero-copy pipeline as machine-generated JSON.
package dialect

import (
	"github.com/tailscale/hujson"

	"github.com/gauntlet-dev/shadowjson"
)

// Standardize parses src as JWCC and re-serializes it with comments and
// trailing commas removed, returning strict JSON bytes ready for
// shadowjson.Parser.
func Standardize(src []byte) ([]byte, error) {
	v, err := hujson.Parse(src)
	if err != nil {
		return nil, err
	}
	v.Standardize()
	return v.Pack(), nil
}

// Parse standardizes src and parses it with p: a permissive front end
// feeding the strict parser.
func Parse(p *shadowjson.Parser, src []byte) (shadowjson.Node, error) {
	clean, err := Standardize(src)
	if err != nil {
		return shadowjson.Node{}, err
	}
	return p.Parse(clean)
}

// ParseMulti is the ParseMulti analogue of Parse.
func ParseMulti(p *shadowjson.Parser, src []byte) (shadowjson.Node, error) {
	clean, err := Standardize(src)
	if err != nil {
		return shadowjson.Node{}, err
	}
	return p.ParseMulti(clean)
}
