package condition

import (
	"testing"
)

// mockStore implements Getter for tests.
type mockStore map[string]interface{}

func (m mockStore) Get(name string) (interface{}, bool) {
	v, ok := m[name]
	return v, ok
}

func TestEvaluate(t *testing.T) {
	st := mockStore{
		"hp":      float64(120),
		"status":  "fighting",
		"busy":    true,
		"target":  nil,
		"counter": 3, // un-normalized int
	}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		// eq / not
		{"eq string true", Condition{"status", OpEq, "fighting"}, true},
		{"eq string false", Condition{"status", OpEq, "idle"}, false},
		{"eq number int vs float", Condition{"hp", OpEq, 120}, true},
		{"eq int state vs float literal", Condition{"counter", OpEq, 3.0}, true},
		{"eq bool", Condition{"busy", OpEq, true}, true},
		{"eq bool vs string", Condition{"busy", OpEq, "true"}, false},
		{"eq number vs string", Condition{"hp", OpEq, "120"}, false},
		{"eq absent vs value", Condition{"missing", OpEq, "x"}, false},
		{"eq absent vs null", Condition{"missing", OpEq, nil}, true},
		{"eq stored absent vs null", Condition{"target", OpEq, nil}, true},
		{"not string", Condition{"status", OpNot, "idle"}, true},
		{"not same", Condition{"status", OpNot, "fighting"}, false},
		{"not absent vs value", Condition{"missing", OpNot, 1}, true},

		// gt / lt
		{"gt true", Condition{"hp", OpGt, 100}, true},
		{"gt false", Condition{"hp", OpGt, 200}, false},
		{"gt equal", Condition{"hp", OpGt, 120}, false},
		{"lt true", Condition{"hp", OpLt, 200.5}, true},
		{"lt false", Condition{"hp", OpLt, 50}, false},
		{"gt non-numeric state", Condition{"status", OpGt, 1}, false},
		{"lt non-numeric literal", Condition{"hp", OpLt, "500"}, false},
		{"gt absent", Condition{"missing", OpGt, -1}, false},
		{"lt absent", Condition{"missing", OpLt, 1}, false},

		{"unknown op", Condition{"hp", Operator("ge"), 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.cond, st); got != tc.want {
				t.Errorf("Evaluate(%v) = %v, want %v", tc.cond, got, tc.want)
			}
		})
	}
}

func TestAllAny(t *testing.T) {
	st := mockStore{"hp": float64(10), "status": "idle"}
	yes := Condition{"hp", OpLt, 50}
	no := Condition{"status", OpEq, "fighting"}

	if !All(nil, st) {
		t.Error("All(empty) should be true")
	}
	if Any(nil, st) {
		t.Error("Any(empty) should be false")
	}
	if All([]Condition{yes, no}, st) {
		t.Error("All with a false conjunct should be false")
	}
	if !All([]Condition{yes, yes}, st) {
		t.Error("All with only true conjuncts should be true")
	}
	if !Any([]Condition{no, yes}, st) {
		t.Error("Any with one true condition should be true")
	}
	if Any([]Condition{no, no}, st) {
		t.Error("Any with only false conditions should be false")
	}
}

func TestParseOp(t *testing.T) {
	for _, s := range []string{"eq", "not", "gt", "lt", " EQ "} {
		if _, err := ParseOp(s); err != nil {
			t.Errorf("ParseOp(%q) error: %v", s, err)
		}
	}
	for _, s := range []string{"", "==", "ne", "contains"} {
		if _, err := ParseOp(s); err == nil {
			t.Errorf("ParseOp(%q) expected error", s)
		}
	}
}
