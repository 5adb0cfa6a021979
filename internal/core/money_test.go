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
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"100.00", 10000, true},
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

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{1250, "12.50"},
		{8750, "87.50"},
		{-250, "-2.50"},
		{10000, "100.00"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.in); got != tc.out {
			t.Fatalf("FormatCents(%d) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Budget{ID: 1, Name: "Groceries", Allocated: Money{Cents: 10000}, Remaining: Money{Cents: 8750}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":1,"nombre":"Groceries","monto":100.00,"restante":87.50}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}

	var m Money
	if err := json.Unmarshal([]byte(`12.5`), &m); err != nil || m.Cents != 1250 {
		t.Fatalf("number unmarshal: cents=%d err=%v", m.Cents, err)
	}
	if err := json.Unmarshal([]byte(`"12,50"`), &m); err != nil || m.Cents != 1250 {
		t.Fatalf("string unmarshal: cents=%d err=%v", m.Cents, err)
	}
	if err := json.Unmarshal([]byte(`-3`), &m); err == nil {
		t.Fatal("negative amount should not unmarshal")
	}
}
