package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Limits bounds what the ledger accepts.
type Limits struct {
	MaxAmount      decimal.Decimal
	DescriptionMax int
	NotesMax       int
	MaxPast        time.Duration
	MaxFuture      time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxAmount:      decimal.NewFromInt(1_000_000),
		DescriptionMax: 200,
		NotesMax:       1000,
		MaxPast:        10 * 365 * 24 * time.Hour,
		MaxFuture:      365 * 24 * time.Hour,
	}
}

func (l Limits) ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return Invalid("amount", "must be greater than zero")
	}
	if a.GreaterThan(l.MaxAmount) {
		return Invalid("amount", "must not exceed %s", FormatAmount(l.MaxAmount))
	}
	return nil
}

func (l Limits) ValidateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return Invalid("description", "cannot be empty")
	}
	if utf8.RuneCountInString(desc) > l.DescriptionMax {
		return Invalid("description", "too long (max %d characters)", l.DescriptionMax)
	}
	return nil
}

func (l Limits) ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > l.NotesMax {
		return Invalid("notes", "too long (max %d characters)", l.NotesMax)
	}
	return nil
}

// ValidateDate checks d against the allowed window around today.
func (l Limits) ValidateDate(d Date, today Date) error {
	if err := d.Validate(); err != nil {
		return err
	}
	earliest := DateOf(today.Add(-l.MaxPast))
	latest := DateOf(today.Add(l.MaxFuture))
	if d.Before(earliest.Time) {
		return Invalid("date", "must not be before %s", earliest)
	}
	if d.After(latest.Time) {
		return Invalid("date", "must not be after %s", latest)
	}
	return nil
}

// ValidateExpense checks every field of e, including the date window, and
// the recurrence invariants.
func (l Limits) ValidateExpense(e Expense, today Date) error {
	if err := l.ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := l.ValidateDescription(e.Description); err != nil {
		return err
	}
	if err := l.ValidateDate(e.Date, today); err != nil {
		return err
	}
	return l.ValidateExpenseFields(e)
}

// ValidateExpenseFields is ValidateExpense without the date window. Updates
// that leave the date untouched use it so old rows stay editable.
func (l Limits) ValidateExpenseFields(e Expense) error {
	if err := l.ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := l.ValidateDescription(e.Description); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.PaidFrom.Valid() {
		return Invalid("paidFrom", "must be one of SELF, PARTNER, JOINT")
	}
	if err := ValidateCurrency(e.Currency); err != nil {
		return err
	}
	if err := l.ValidateNotes(e.Notes); err != nil {
		return err
	}
	if e.IsRecurring && !e.Frequency.Valid() {
		return Invalid("frequency", "is required for recurring expenses")
	}
	if !e.IsRecurring && e.Frequency != "" {
		return Invalid("frequency", "only recurring expenses have a frequency")
	}
	if e.IsAutoGenerated && e.IsRecurring {
		return Invalid("isRecurring", "auto-generated expenses cannot recur")
	}
	return nil
}
