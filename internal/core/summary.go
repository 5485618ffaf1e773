package core

import "github.com/shopspring/decimal"

// PaidFromTotals partitions a set of expenses by funding source.
type PaidFromTotals struct {
	Self    decimal.Decimal
	Partner decimal.Decimal
	Joint   decimal.Decimal
}

// Add accumulates e into the bucket of its paid-from account.
func (t *PaidFromTotals) Add(e Expense) {
	switch e.PaidFrom {
	case PaidFromSelf:
		t.Self = t.Self.Add(e.Amount)
	case PaidFromPartner:
		t.Partner = t.Partner.Add(e.Amount)
	case PaidFromJoint:
		t.Joint = t.Joint.Add(e.Amount)
	}
}

func (t PaidFromTotals) Total() decimal.Decimal {
	return t.Self.Add(t.Partner).Add(t.Joint)
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     decimal.Decimal
}
