// Package loader implements a schema-driven projection from a shadowjson
// Node tree onto native Go values. Each target type is handled by
// reflecting over its shape once per call; struct field resolution against
// an object's ObjectClass is O(1) per field because it reuses the class's
// index map rather than scanning members.
package loader

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/creachadair/mds/mapset"

	"github.com/gauntlet-dev/shadowjson"
	"github.com/gauntlet-dev/shadowjson/internal/escape"

	"go4.org/mem"
)

// A Kind classifies the errors a Load can report. Parser error kinds live
// in the root package; these are loader-only.
type Kind int

const (
	TypeMismatch Kind = iota
	ArraySizeMismatch
	TupleSizeMismatch
	MissingField
	UnknownEnumValue
	Overflow
	InvalidCharacter
)

var kindStr = [...]string{
	TypeMismatch:      "type mismatch",
	ArraySizeMismatch: "array size mismatch",
	TupleSizeMismatch: "tuple size mismatch",
	MissingField:      "missing field",
	UnknownEnumValue:  "unknown enum value",
	Overflow:          "integer overflow",
	InvalidCharacter:  "invalid character in number",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindStr) {
		return "unknown loader error kind"
	}
	return kindStr[k]
}

// A LoaderError reports why a Node could not be projected onto a target
// Go type.
type LoaderError struct {
	Kind    Kind
	Type    reflect.Type
	Field   string // set when the error occurred while resolving a struct field
	Message string

	err error
}

func (e *LoaderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("load %s.%s: %s: %s", e.Type, e.Field, e.Kind, e.Message)
	}
	return fmt.Sprintf("load %s: %s: %s", e.Type, e.Kind, e.Message)
}

func (e *LoaderError) Unwrap() error { return e.err }

func fail(kind Kind, typ reflect.Type, format string, args ...any) *LoaderError {
	return &LoaderError{Kind: kind, Type: typ, Message: fmt.Sprintf(format, args...)}
}

// EnumSet maps the string form of an enum value to its underlying value.
// A caller building a loadable enum type registers one via RegisterEnum.
type EnumSet struct {
	names map[string]int64
}

// NewEnumSet builds an EnumSet from a precomputed static name→value table.
func NewEnumSet(names map[string]int64) *EnumSet { return &EnumSet{names: names} }

var enumRegistry = map[reflect.Type]*EnumSet{}

// RegisterEnum associates set with the reflect.Type of zero, so that
// Load can resolve string Nodes destined for that type. Typically called
// from an init function alongside the enum's declaration.
func RegisterEnum(zero any, set *EnumSet) {
	enumRegistry[reflect.TypeOf(zero)] = set
}

// Load projects n (from the given assembly buffer) onto a freshly
// allocated value of type T.
func Load[T any](n shadowjson.Node, assembly []shadowjson.Node) (T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	if err := load(v, n, assembly); err != nil {
		return out, err
	}
	return out, nil
}

func load(v reflect.Value, n shadowjson.Node, assembly []shadowjson.Node) error {
	t := v.Type()

	// optional ?U: a pointer or an interface is treated as absent on null,
	// otherwise indirected into and recursed.
	if t.Kind() == reflect.Pointer {
		if n.Kind() == shadowjson.KindNull {
			v.Set(reflect.Zero(t))
			return nil
		}
		elem := reflect.New(t.Elem())
		if err := load(elem.Elem(), n, assembly); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	}

	if set, ok := enumRegistry[t]; ok {
		return loadEnum(v, t, set, n)
	}

	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		val, err := loadAny(n, assembly)
		if err != nil {
			return err
		}
		if val == nil {
			v.Set(reflect.Zero(t))
		} else {
			v.Set(reflect.ValueOf(val))
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		if n.Kind() != shadowjson.KindBool {
			return fail(TypeMismatch, t, "expected bool, got %v", n.Kind())
		}
		v.SetBool(n.BoolValue())
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		text, err := numberText(n, t)
		if err != nil {
			return err
		}
		i, err := strconv.ParseInt(string(text), 10, 64)
		if err != nil {
			return numError(t, err)
		}
		if v.OverflowInt(i) {
			return fail(Overflow, t, "value %d overflows %s", i, t)
		}
		v.SetInt(i)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		text, err := numberText(n, t)
		if err != nil {
			return err
		}
		u, err := strconv.ParseUint(string(text), 10, 64)
		if err != nil {
			return numError(t, err)
		}
		if v.OverflowUint(u) {
			return fail(Overflow, t, "value %d overflows %s", u, t)
		}
		v.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		text, err := numberText(n, t)
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(string(text), 64)
		if err != nil {
			return numError(t, err)
		}
		v.SetFloat(f)
		return nil

	case reflect.String:
		s, err := stringBytes(n, t)
		if err != nil {
			return err
		}
		v.SetString(string(s))
		return nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			b, err := stringBytes(n, t)
			if err == nil {
				v.SetBytes(b)
				return nil
			}
			// fall through: not a string-shaped node, try array-of-byte below
		}
		return loadSlice(v, t, n, assembly)

	case reflect.Array:
		return loadArray(v, t, n, assembly)

	case reflect.Struct:
		return loadStruct(v, t, n, assembly)

	case reflect.Map:
		return loadMap(v, t, n, assembly)

	default:
		return fail(TypeMismatch, t, "unsupported target kind %s", t.Kind())
	}
}

// loadAny is the schema-free counterpart used when the target type is
// `any`/`interface{}`, for callers (chiefly the CLI's load subcommand) that
// want a generic view of a document rather than a concrete Go type.
func loadAny(n shadowjson.Node, assembly []shadowjson.Node) (any, error) {
	switch n.Kind() {
	case shadowjson.KindNull:
		return nil, nil
	case shadowjson.KindBool:
		return n.BoolValue(), nil
	case shadowjson.KindNumber:
		f, err := strconv.ParseFloat(string(n.Text()), 64)
		if err != nil {
			return nil, numError(reflect.TypeFor[float64](), err)
		}
		return f, nil
	case shadowjson.KindSafeString, shadowjson.KindJSONString, shadowjson.KindWildString:
		s, err := stringBytes(n, reflect.TypeFor[string]())
		if err != nil {
			return nil, err
		}
		return string(s), nil
	case shadowjson.KindArray, shadowjson.KindMulti:
		els := shadowjson.Elements(n, assembly)
		out := make([]any, len(els))
		for i, el := range els {
			v, err := loadAny(el, assembly)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case shadowjson.KindObject:
		class := shadowjson.ClassOf(n, assembly)
		values := shadowjson.ObjectValues(n, assembly)
		out := make(map[string]any, class.Len())
		for i := 0; i < class.Len(); i++ {
			v, err := loadAny(values[i], assembly)
			if err != nil {
				return nil, err
			}
			out[string(class.UnescapedName(i))] = v
		}
		return out, nil
	default:
		return nil, fail(TypeMismatch, reflect.TypeFor[any](), "cannot represent %v generically", n.Kind())
	}
}

// loadMap fills a map[K]V target from an object Node, decoding each key
// through K (typically string) and each value through V.
func loadMap(v reflect.Value, t reflect.Type, n shadowjson.Node, assembly []shadowjson.Node) error {
	if n.Kind() != shadowjson.KindObject {
		return fail(TypeMismatch, t, "expected object, got %v", n.Kind())
	}
	if t.Key().Kind() != reflect.String {
		return fail(TypeMismatch, t, "map key type %s is not string-based", t.Key())
	}
	class := shadowjson.ClassOf(n, assembly)
	values := shadowjson.ObjectValues(n, assembly)
	out := reflect.MakeMapWithSize(t, class.Len())
	for i := 0; i < class.Len(); i++ {
		elem := reflect.New(t.Elem()).Elem()
		if err := load(elem, values[i], assembly); err != nil {
			return err
		}
		key := reflect.New(t.Key()).Elem()
		key.SetString(string(class.UnescapedName(i)))
		out.SetMapIndex(key, elem)
	}
	v.Set(out)
	return nil
}

func numError(t reflect.Type, err error) *LoaderError {
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return fail(Overflow, t, "%v", err)
	}
	return fail(InvalidCharacter, t, "%v", err)
}

// numberText returns the decimal text of a number-shaped Node, decoding
// json_string payloads first.
func numberText(n shadowjson.Node, t reflect.Type) ([]byte, error) {
	switch n.Kind() {
	case shadowjson.KindNumber, shadowjson.KindSafeString, shadowjson.KindWildString:
		return n.Text(), nil
	case shadowjson.KindJSONString:
		dec, err := escape.Unquote(mem.B(n.Text()))
		if err != nil {
			return nil, fail(InvalidCharacter, t, "%v", err)
		}
		return dec, nil
	default:
		return nil, fail(TypeMismatch, t, "expected number, got %v", n.Kind())
	}
}

// stringBytes returns the decoded content of a string-shaped Node.
func stringBytes(n shadowjson.Node, t reflect.Type) ([]byte, error) {
	switch n.Kind() {
	case shadowjson.KindSafeString, shadowjson.KindWildString:
		return n.Text(), nil
	case shadowjson.KindJSONString:
		dec, err := escape.Unquote(mem.B(n.Text()))
		if err != nil {
			return nil, fail(InvalidCharacter, t, "%v", err)
		}
		return dec, nil
	default:
		return nil, fail(TypeMismatch, t, "expected string, got %v", n.Kind())
	}
}

func loadEnum(v reflect.Value, t reflect.Type, set *EnumSet, n shadowjson.Node) error {
	s, err := stringBytes(n, t)
	if err != nil {
		return err
	}
	val, ok := set.names[string(s)]
	if !ok {
		return fail(UnknownEnumValue, t, "unrecognised enum value %q", s)
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(string(s))
	default:
		v.SetInt(val)
	}
	return nil
}

func elementsOf(n shadowjson.Node, t reflect.Type) ([]shadowjson.Node, []shadowjson.Node, error) {
	switch n.Kind() {
	case shadowjson.KindArray, shadowjson.KindMulti:
		return nil, nil, nil // handled by caller via shadowjson.Elements
	default:
		return nil, nil, fail(TypeMismatch, t, "expected array, got %v", n.Kind())
	}
}

func loadSlice(v reflect.Value, t reflect.Type, n shadowjson.Node, assembly []shadowjson.Node) error {
	if _, _, err := elementsOf(n, t); err != nil {
		return err
	}
	els := shadowjson.Elements(n, assembly)
	out := reflect.MakeSlice(t, len(els), len(els))
	for i, el := range els {
		if err := load(out.Index(i), el, assembly); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

func loadArray(v reflect.Value, t reflect.Type, n shadowjson.Node, assembly []shadowjson.Node) error {
	if _, _, err := elementsOf(n, t); err != nil {
		return err
	}
	els := shadowjson.Elements(n, assembly)
	if len(els) != t.Len() {
		return fail(ArraySizeMismatch, t, "expected %d elements, got %d", t.Len(), len(els))
	}
	for i, el := range els {
		if err := load(v.Index(i), el, assembly); err != nil {
			return err
		}
	}
	return nil
}

// fieldInfo captures the loader-relevant facts about one exported struct
// field, decided via reflection by structFields. A field is optional either
// because its Go type is a pointer, or because its tag declares a default
// value with `,default=<json>`; a declared default is parsed when the
// fieldInfo is built and replayed against the field whenever the
// corresponding key or tuple slot is absent.
type fieldInfo struct {
	index           int
	name            string
	optional        bool
	hasDefault      bool
	defaultNode     shadowjson.Node
	defaultAssembly []shadowjson.Node
}

// structFields derives the loader-relevant shape of t. It is called on
// every loadStruct call and its result is not cached, so the reflection,
// the alias check and any default parsing are repeated for each struct
// value loaded. It rejects struct types whose field tags alias the same
// object key, since that would make class-index resolution ambiguous.
func structFields(t reflect.Type) []fieldInfo {
	var out []fieldInfo
	seen := mapset.New[string]()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		optional := sf.Type.Kind() == reflect.Pointer
		hasDefault := false
		defaultSrc := ""
		if tag, ok := sf.Tag.Lookup("json"); ok && tag != "" {
			var tagName string
			tagName, defaultSrc, hasDefault = parseFieldTag(tag)
			if tagName != "" {
				name = tagName
			}
		}
		if seen.Has(name) {
			panic(fmt.Sprintf("shadowjson/loader: %s has two fields mapping to key %q", t, name))
		}
		seen.Add(name)
		fi := fieldInfo{index: i, name: name, optional: optional || hasDefault, hasDefault: hasDefault}
		if hasDefault {
			p := shadowjson.New(nil)
			root, err := p.Parse([]byte(defaultSrc))
			if err != nil {
				panic(fmt.Sprintf("shadowjson/loader: %s field %s: invalid default %q: %v", t, name, defaultSrc, err))
			}
			fi.defaultNode = root
			fi.defaultAssembly = p.Assembly()
		}
		out = append(out, fi)
	}
	return out
}

// parseFieldTag splits a `json:"..."` tag into its key name and, if
// present, a `default=<json>` option, in the style of the standard
// library's own json tag syntax.
func parseFieldTag(tag string) (name, defaultSrc string, hasDefault bool) {
	name, rest := splitComma(tag)
	for rest != "" {
		var part string
		part, rest = splitComma(rest)
		if v, ok := cutPrefix(part, "default="); ok {
			defaultSrc, hasDefault = v, true
		}
	}
	return name, defaultSrc, hasDefault
}

func splitComma(s string) (head, tail string) {
	if i := indexByte(s, ','); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// loadStruct implements the object/tuple duality of struct targets: an
// object Node resolves fields against the class index map in O(1) per
// field; an array/multi Node is treated as a positional tuple over the
// same field order. A field absent from the input is filled from its
// declared default (if any), left at its Go zero value if optional, or
// else reported as MissingField/TupleSizeMismatch.
func loadStruct(v reflect.Value, t reflect.Type, n shadowjson.Node, assembly []shadowjson.Node) error {
	fields := structFields(t)

	switch n.Kind() {
	case shadowjson.KindObject:
		class := shadowjson.ClassOf(n, assembly)
		values := shadowjson.ObjectValues(n, assembly)
		for _, f := range fields {
			idx, ok := class.Index(f.name)
			if !ok {
				if f.hasDefault {
					if err := load(v.Field(f.index), f.defaultNode, f.defaultAssembly); err != nil {
						return err
					}
					continue
				}
				if f.optional {
					continue
				}
				return &LoaderError{Kind: MissingField, Type: t, Field: f.name,
					Message: fmt.Sprintf("object has no key %q", f.name)}
			}
			if err := load(v.Field(f.index), values[idx], assembly); err != nil {
				if le, ok := err.(*LoaderError); ok && le.Field == "" {
					le.Field = f.name
				}
				return err
			}
		}
		return nil

	case shadowjson.KindArray, shadowjson.KindMulti:
		els := shadowjson.Elements(n, assembly)
		required := 0
		for _, f := range fields {
			if !f.optional {
				required++
			}
		}
		if len(els) < required {
			return fail(TupleSizeMismatch, t, "expected at least %d elements, got %d", required, len(els))
		}
		for i, f := range fields {
			if i >= len(els) {
				if f.hasDefault {
					if err := load(v.Field(f.index), f.defaultNode, f.defaultAssembly); err != nil {
						return err
					}
					continue
				}
				if f.optional {
					continue
				}
				return fail(TupleSizeMismatch, t, "missing tuple element %d for field %s", i, f.name)
			}
			if err := load(v.Field(f.index), els[i], assembly); err != nil {
				return err
			}
		}
		return nil

	default:
		return fail(TypeMismatch, t, "expected object or array, got %v", n.Kind())
	}
}
