package pipeline

import (
	"testing"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue(`{"b": 1, "a": [true, null, "x", 2.5], "c": {"d": -3}}`)
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	if v.Kind != KindObject {
		t.Fatalf("Kind = %v, want object", v.Kind)
	}

	keys := []string{}
	for _, m := range v.Members {
		keys = append(keys, m.Key)
	}
	if len(keys) != 3 || keys[0] != "b" || keys[1] != "a" || keys[2] != "c" {
		t.Errorf("keys = %v, want source order [b a c]", keys)
	}

	arr, _ := v.Get("a")
	if len(arr.Items) != 4 {
		t.Fatalf("array len = %d, want 4", len(arr.Items))
	}
	wantKinds := []Kind{KindBool, KindNull, KindString, KindNumber}
	for i, k := range wantKinds {
		if arr.Items[i].Kind != k {
			t.Errorf("item %d kind = %v, want %v", i, arr.Items[i].Kind, k)
		}
	}
	if arr.Items[3].Number != 2.5 {
		t.Errorf("number = %v, want 2.5", arr.Items[3].Number)
	}

	c, _ := v.Get("c")
	d, ok := c.Get("d")
	if !ok || d.Number != -3 {
		t.Errorf("c.d = %+v, want -3", d)
	}
}

func TestParseValue_DuplicateKeyLastWins(t *testing.T) {
	v, err := ParseValue(`{"k": 1, "k": 2}`)
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	got, _ := v.Get("k")
	if got.Number != 2 {
		t.Errorf("k = %v, want 2", got.Number)
	}
}

func TestParseValue_OutOfRangeNumberIsNull(t *testing.T) {
	v, err := ParseValue(`{"total_amount": 1e400, "tax": -1e999, "subtotal": 4.5}`)
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	for _, key := range []string{"total_amount", "tax"} {
		got, ok := v.Get(key)
		if !ok || got.Kind != KindNull {
			t.Errorf("%s = %+v, want null", key, got)
		}
	}
	if sub, _ := v.Get("subtotal"); sub.Number != 4.5 {
		t.Errorf("subtotal = %v, want 4.5", sub.Number)
	}
}

func TestParseValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated object", `{"a": 1`},
		{"trailing comma", `{"a": 1,}`},
		{"trailing data", `{"a": 1} extra`},
		{"two documents", `{} {}`},
		{"bare word", `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseValue(tt.input); err == nil {
				t.Errorf("ParseValue(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestParseValue_EmptyArrayIsNotNil(t *testing.T) {
	v, err := ParseValue(`[]`)
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}
	if v.Kind != KindArray || v.Items == nil || len(v.Items) != 0 {
		t.Errorf("got %+v, want empty array", v)
	}
}

func TestValue_GetOnNonObject(t *testing.T) {
	if _, ok := Arr().Get("x"); ok {
		t.Error("Get on array must report false")
	}
}
