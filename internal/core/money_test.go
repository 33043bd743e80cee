package core

import (
	"testing"

	"github.com/shopspring/decimal"
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
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"٣", 0, false},
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

func TestParseSignedDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"-3200", -320000, true},
		{"-32,5", -3250, true},
		{"+7800.00", 780000, true},
		{"0", 0, true},
		{".5", 50, true},
		{"-", 0, false},
		{".", 0, false},
		{"1-2", 0, false},
		{"1.٣", 0, false},
		{"١٢", 0, false},
		{"1.５", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSignedDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.out) {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1330000}
	b := Money{Cents: 2940000}
	if got := a.Sub(b); got.Cents != -1610000 {
		t.Fatalf("Sub got %d", got.Cents)
	}
	if got := a.Sub(b).Abs(); got.Cents != 1610000 {
		t.Fatalf("Abs got %d", got.Cents)
	}
	if got := a.Add(b); got.Cents != 4270000 {
		t.Fatalf("Add got %d", got.Cents)
	}
	if !a.Decimal().Equal(decimal.RequireFromString("13300")) {
		t.Fatalf("Decimal got %s", a.Decimal())
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, whole int64
		places      int32
		want        string
		ok          bool
	}{
		{2500000, 7142857, 2, "35", true},
		{-200000, 4000000, 2, "-5", true},
		{1, 3, 2, "33.33", true},
		{2, 3, 2, "66.67", true},
		{100, 0, 2, "0", false},
	}
	for _, tc := range cases {
		got, ok := Percent(Money{Cents: tc.part}, Money{Cents: tc.whole}, tc.places)
		if ok != tc.ok {
			t.Fatalf("Percent(%d,%d) ok=%v want %v", tc.part, tc.whole, ok, tc.ok)
		}
		if ok && !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("Percent(%d,%d) = %s, want %s", tc.part, tc.whole, got, tc.want)
		}
	}
}

func TestPercentChange(t *testing.T) {
	got, ok := PercentChange(Money{Cents: 11250}, Money{Cents: 10000}, 1)
	if !ok || !got.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("PercentChange got %s ok=%v", got, ok)
	}
	got, ok = PercentChange(Money{Cents: -5000}, Money{Cents: -10000}, 1)
	if !ok || !got.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("PercentChange from negative prior got %s ok=%v", got, ok)
	}
	if _, ok := PercentChange(Money{Cents: 5}, Money{}, 1); ok {
		t.Fatalf("expected !ok for zero prior")
	}
}
