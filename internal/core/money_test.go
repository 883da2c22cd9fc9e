package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"3500", 350000, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		m    Money
		json string
	}{
		{Kz(3500), "3500"},
		{Money{Cents: 1750}, "17.50"},
		{Money{Cents: 5}, "0.05"},
		{Money{}, "0"},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.m)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.m, err)
		}
		if string(b) != tc.json {
			t.Errorf("marshal %d cents: got %s, want %s", tc.m.Cents, b, tc.json)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte("18000"), &m); err != nil || m != Kz(18000) {
		t.Fatalf("unmarshal 18000: got %v err=%v", m, err)
	}
	if err := json.Unmarshal([]byte("17.5"), &m); err != nil || m.Cents != 1750 {
		t.Fatalf("unmarshal 17.5: got %v err=%v", m, err)
	}
	if err := json.Unmarshal([]byte(`"x"`), &m); err == nil {
		t.Fatalf("expected error for non numeric amount")
	}
}

func TestMoneyClampZero(t *testing.T) {
	if got := Kz(100).Sub(Kz(250)).ClampZero(); !got.IsZero() {
		t.Fatalf("expected zero, got %v", got)
	}
	if got := Kz(300).Sub(Kz(100)).ClampZero(); got != Kz(200) {
		t.Fatalf("expected 200, got %v", got)
	}
}

func TestFormatKz(t *testing.T) {
	if got := FormatKz(Kz(3500)); got != "3.500 Kz" {
		t.Fatalf("got %q", got)
	}
	if got := FormatKz(Kz(500)); got != "500 Kz" {
		t.Fatalf("got %q", got)
	}
}
