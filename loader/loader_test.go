package loader_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gauntlet-dev/shadowjson"
	"github.com/gauntlet-dev/shadowjson/loader"
)

type record struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags"`
	Parent *record  `json:"parent"`
}

func parse(t *testing.T, src string) (shadowjson.Node, []shadowjson.Node) {
	t.Helper()
	p := shadowjson.New(nil)
	root, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return root, p.Assembly()
}

func TestLoadStruct(t *testing.T) {
	root, assembly := parse(t, `{"id":1,"name":"a","tags":["x","y"],"parent":null}`)
	got, err := loader.Load[record](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := record{ID: 1, Name: "a", Tags: []string{"x", "y"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadStructNested(t *testing.T) {
	root, assembly := parse(t, `{"id":2,"name":"b","tags":[],"parent":{"id":1,"name":"a","tags":[],"parent":null}}`)
	got, err := loader.Load[record](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Parent == nil || got.Parent.ID != 1 {
		t.Fatalf("Load: parent not loaded: %+v", got)
	}
}

func TestLoadMissingField(t *testing.T) {
	root, assembly := parse(t, `{"id":1}`)
	_, err := loader.Load[record](root, assembly)
	le, ok := err.(*loader.LoaderError)
	if !ok {
		t.Fatalf("Load: expected *LoaderError, got %v (%T)", err, err)
	}
	if le.Kind != loader.MissingField {
		t.Errorf("Load: got Kind %v, want MissingField", le.Kind)
	}
}

func TestLoadFieldDefault(t *testing.T) {
	type withDefaults struct {
		X int32    `json:"x"`
		Y int32    `json:"y,default=0"`
		Z string   `json:"z,default=\"unset\""`
		W []string `json:"w,default=[]"`
	}
	root, assembly := parse(t, `{"x":5}`)
	got, err := loader.Load[withDefaults](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := withDefaults{X: 5, Y: 0, Z: "unset", W: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFieldDefaultOverridden(t *testing.T) {
	type withDefault struct {
		Z string `json:"z,default=\"unset\""`
	}
	root, assembly := parse(t, `{"z":"present"}`)
	got, err := loader.Load[withDefault](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Z != "present" {
		t.Errorf("Load: Z = %q, want %q (key present, default should not apply)", got.Z, "present")
	}
}

func TestLoadTupleDefault(t *testing.T) {
	type pairWithDefault struct {
		A int32  `json:"a"`
		B string `json:"b,default=\"none\""`
	}
	root, assembly := parse(t, `[1]`)
	got, err := loader.Load[pairWithDefault](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := pairWithDefault{A: 1, B: "none"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTuple(t *testing.T) {
	type pair struct {
		X int
		Y int
	}
	root, assembly := parse(t, `[1,2]`)
	got, err := loader.Load[pair](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != (pair{1, 2}) {
		t.Errorf("Load: got %+v, want {1 2}", got)
	}
}

func TestLoadScalars(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{`true`, true},
		{`false`, false},
		{`42`, int64(42)},
		{`3.5`, 3.5},
		{`"hi"`, "hi"},
		{`"a\nb"`, "a\nb"},
	}
	for _, test := range tests {
		root, assembly := parse(t, test.src)
		switch test.want.(type) {
		case bool:
			got, err := loader.Load[bool](root, assembly)
			if err != nil || got != test.want {
				t.Errorf("Load(%q) = %v, %v; want %v", test.src, got, err, test.want)
			}
		case int64:
			got, err := loader.Load[int64](root, assembly)
			if err != nil || got != test.want {
				t.Errorf("Load(%q) = %v, %v; want %v", test.src, got, err, test.want)
			}
		case float64:
			got, err := loader.Load[float64](root, assembly)
			if err != nil || got != test.want {
				t.Errorf("Load(%q) = %v, %v; want %v", test.src, got, err, test.want)
			}
		case string:
			got, err := loader.Load[string](root, assembly)
			if err != nil || got != test.want {
				t.Errorf("Load(%q) = %v, %v; want %v", test.src, got, err, test.want)
			}
		}
	}
}

func TestLoadEnum(t *testing.T) {
	type color string
	loader.RegisterEnum(color(""), loader.NewEnumSet(map[string]int64{"red": 0, "green": 1, "blue": 2}))

	root, assembly := parse(t, `"green"`)
	got, err := loader.Load[color](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "green" {
		t.Errorf("Load: got %q, want green", got)
	}

	root, assembly = parse(t, `"purple"`)
	_, err = loader.Load[color](root, assembly)
	le, ok := err.(*loader.LoaderError)
	if !ok || le.Kind != loader.UnknownEnumValue {
		t.Errorf("Load(purple): got %v, want UnknownEnumValue", err)
	}
}

func TestLoadEnumInt(t *testing.T) {
	type priority int64
	loader.RegisterEnum(priority(0), loader.NewEnumSet(map[string]int64{"low": 0, "medium": 1, "high": 2}))

	root, assembly := parse(t, `"high"`)
	got, err := loader.Load[priority](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != priority(2) {
		t.Errorf("Load: got %d, want 2", got)
	}
}

func TestLoadArraySizeMismatch(t *testing.T) {
	root, assembly := parse(t, `[1,2,3]`)
	_, err := loader.Load[[2]int](root, assembly)
	le, ok := err.(*loader.LoaderError)
	if !ok || le.Kind != loader.ArraySizeMismatch {
		t.Errorf("Load: got %v, want ArraySizeMismatch", err)
	}
}

func TestLoadAny(t *testing.T) {
	root, assembly := parse(t, `{"a":1,"b":[true,null,"s"]}`)
	got, err := loader.Load[any](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": []any{true, nil, "s"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load[any] mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMap(t *testing.T) {
	root, assembly := parse(t, `{"a":1,"b":2}`)
	got, err := loader.Load[map[string]int](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := map[string]int{"a": 1, "b": 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load[map[string]int] mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBytes(t *testing.T) {
	root, assembly := parse(t, `"aGVsbG8="`)
	got, err := loader.Load[[]byte](root, assembly)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "aGVsbG8=" {
		t.Errorf("Load: got %q", got)
	}
}
