package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half away from zero
		{"1.004", "1", true},
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"3.", "3", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{".", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountReportsField(t *testing.T) {
	_, err := ParseAmount("x")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Field != "amount" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":       "0.00",
		"12.5":    "12.50",
		"-35":     "-35.00",
		"0.125":   "0.13",
		"1000000": "1000000.00",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAmount(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestSumIsExact(t *testing.T) {
	tenth := decimal.RequireFromString("0.1")
	var parts []decimal.Decimal
	for i := 0; i < 10; i++ {
		parts = append(parts, tenth)
	}
	if got := Sum(parts...); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected exactly 1, got %s", got)
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"whole", "65", "65", true},
		{"two decimals", "33.33", "33.33", true},
		{"four decimals", "12.3456", "12.3456", true},
		{"zero", "0", "0", true},
		{"hundred", "100", "100", true},
		{"padded", " 50 ", "50", true},
		{"too many decimals", "12.34567", "", false},
		{"over hundred", "100.01", "", false},
		{"thousand", "1000", "", false},
		{"negative", "-1", "", false},
		{"tiny exponent", "1e-1000000", "", false},
		{"large exponent", "1e9", "", false},
		{"upper exponent", "5E1", "", false},
		{"trailing dot", "50.", "", false},
		{"leading dot", ".5", "", false},
		{"empty", "", "", false},
		{"garbage", "abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePercent("selfPercent", tt.in)
			if !tt.ok {
				ve, isVE := err.(*ValidationError)
				if !isVE || ve.Field != "selfPercent" {
					t.Fatalf("ParsePercent(%q) error = %v, want selfPercent validation error", tt.in, err)
				}
				if len(ve.Message) > 200 {
					t.Errorf("message is %d bytes long", len(ve.Message))
				}
				return
			}
			if err != nil || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("ParsePercent(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
			}
		})
	}
}
