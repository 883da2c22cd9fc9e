package core

import (
	"errors"
	"testing"
)

func TestGenerateNextCode(t *testing.T) {
	cases := []struct {
		codes  []string
		letter string
		want   string
	}{
		{[]string{"F1", "F3", "M2"}, "F", "F4"},
		{[]string{"F1", "F3", "M2"}, "m", "M3"},
		{[]string{"F1"}, "A", "A1"},
		{nil, "Z", "Z1"},
		{[]string{"M4", "M32", "M9"}, "M", "M33"},
		{[]string{"É2"}, "é", "É3"},
	}
	for _, tc := range cases {
		got, err := GenerateNextCode(tc.codes, tc.letter)
		if err != nil {
			t.Fatalf("%v/%s: unexpected error %v", tc.codes, tc.letter, err)
		}
		if got != tc.want {
			t.Errorf("%v/%s: got %s, want %s", tc.codes, tc.letter, got, tc.want)
		}
	}
}

func TestGenerateNextCodeInvalidSuffix(t *testing.T) {
	_, err := GenerateNextCode([]string{"F1", "Fx"}, "F")
	if !errors.Is(err, ErrInvalidCodeFormat) {
		t.Fatalf("expected ErrInvalidCodeFormat, got %v", err)
	}
	// malformed codes under other letters do not matter
	if got, err := GenerateNextCode([]string{"F1", "Mx"}, "F"); err != nil || got != "F2" {
		t.Fatalf("got %q err=%v", got, err)
	}
}

func TestSortClientsByCode(t *testing.T) {
	in := []Client{{Code: "M4"}, {Code: "F2"}, {Code: "A1"}, {Code: "F1"}}
	out := SortClientsByCode(in)

	want := []string{"A1", "F1", "F2", "M4"}
	for i, c := range out {
		if c.Code != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, c.Code, want[i])
		}
	}
	if in[0].Code != "M4" {
		t.Fatalf("input was mutated: %v", in)
	}
}

func TestSortClientsByCodeNumeric(t *testing.T) {
	out := SortClientsByCode([]Client{{Code: "M32"}, {Code: "M4"}, {Code: "M10"}})
	if out[0].Code != "M4" || out[1].Code != "M10" || out[2].Code != "M32" {
		t.Fatalf("unexpected order %v", out)
	}
}

func TestCodeLetter(t *testing.T) {
	if got := CodeLetter("  francisco"); got != "F" {
		t.Fatalf("got %q", got)
	}
	if got := CodeLetter("ângela"); got != "Â" {
		t.Fatalf("got %q", got)
	}
	if got := CodeLetter(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
