// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals end to end. Rounding to cents happens only
// where a value is persisted or rendered.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept at persist/report boundaries.
const MoneyPlaces = 2

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to cents. Signs, exponents and grouping are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Invalid("amount", "is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, Invalid("amount", "malformed number %q", s)
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, Invalid("amount", "must be a positive decimal number")
		}
	}
	if s == "." {
		return decimal.Zero, Invalid("amount", "malformed number %q", s)
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid("amount", "malformed number %q", s)
	}
	return RoundMoney(d), nil
}

// PercentPlaces is the finest precision accepted for split percentages.
const PercentPlaces = 4

// ParsePercent parses a plain decimal percentage in [0, 100] with at most
// PercentPlaces decimals. Signs and exponents are rejected.
func ParsePercent(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Invalid(field, "is required")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(whole) > 3 || len(frac) > PercentPlaces || strings.HasSuffix(s, ".") {
		return decimal.Zero, Invalid(field, "must be a number between 0 and 100 with at most %d decimals", PercentPlaces)
	}
	for _, r := range whole + frac {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return decimal.Zero, Invalid(field, "must be a number between 0 and 100 with at most %d decimals", PercentPlaces)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid(field, "must be a number")
	}
	if d.GreaterThan(hundred) {
		return decimal.Zero, Invalid(field, "must be between 0 and 100")
	}
	return d, nil
}

// RoundMoney rounds to cents. Use only at persist or report boundaries.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
