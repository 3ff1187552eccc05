package jsonvalue

import (
	"reflect"
	"testing"
)

func TestDecodeKeepsKeyOrder(t *testing.T) {
	v, err := Decode([]byte(`{"zeta": 1, "alpha": {"b": true, "a": null}, "10": "x", "2": "y"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v)
	}
	want := []string{"2", "10", "zeta", "alpha"}
	if got := obj.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	inner, _ := obj.Get("alpha")
	if got := inner.(*Object).Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("inner keys = %v", got)
	}
}

func TestDecodeDuplicateKeyKeepsFirstPosition(t *testing.T) {
	v, err := Decode([]byte(`{"a": 1, "b": 2, "a": 3}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	obj := v.(*Object)
	if got := obj.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("keys = %v", got)
	}
	if a, _ := obj.Get("a"); a != float64(3) {
		t.Fatalf("a = %v, want 3", a)
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	if _, err := Decode([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing document")
	}
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestIndentPreservesOrderAndHTML(t *testing.T) {
	v, err := Decode([]byte(`{"b":"<tag>","a":[1,2]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := Indent(v)
	if err != nil {
		t.Fatalf("indent: %v", err)
	}
	want := "{\n  \"b\": \"<tag>\",\n  \"a\": [\n    1,\n    2\n  ]\n}"
	if got != want {
		t.Fatalf("indent =\n%s\nwant\n%s", got, want)
	}
	empty, _ := Indent(NewObject())
	if empty != "{}" {
		t.Fatalf("empty object = %q", empty)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:       "0",
		42:      "42",
		1.5:     "1.5",
		-3.25:   "-3.25",
		1e21:    "1e+21",
		1.5e-7:  "1.5e-7",
		0.00001: "0.00001",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestPlainRoundTrip(t *testing.T) {
	plain := map[string]any{"b": []any{"x", 2}, "a": map[string]any{"c": true}}
	ordered := FromPlain(plain).(*Object)
	if got := ordered.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("keys = %v", got)
	}
	back := ToPlain(ordered).(map[string]any)
	if back["b"].([]any)[1] != float64(2) {
		t.Fatalf("number not converted: %#v", back["b"])
	}
}
