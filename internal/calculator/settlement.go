// Package calculator holds the pure settlement arithmetic for a two-party
// split. It never touches storage.
package calculator

import (
	"github.com/shopspring/decimal"

	"splitledger/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of settling one month.
//
// Amount is positive when self owes partner and negative when partner owes
// self. Values are exact; call Rounded before persisting or rendering.
type Result struct {
	Totals           core.PaidFromTotals
	SplitTotal       decimal.Decimal // self + partner, joint excluded
	SelfShouldPay    decimal.Decimal
	PartnerShouldPay decimal.Decimal
	Amount           decimal.Decimal
}

// ComputeSettlement settles expenses under cfg.
//
// Algorithm:
// - Partition by paid-from account; JOINT is pre-shared and not split
// - splitTotal = self + partner; zero short-circuits every share to zero
// - selfShouldPay = splitTotal * selfPercent / 100 (same for partner)
// - amount = selfShouldPay - totalSelf
func ComputeSettlement(expenses []core.Expense, cfg core.SplitConfig) Result {
	var r Result
	for _, e := range expenses {
		r.Totals.Add(e)
	}

	r.SplitTotal = r.Totals.Self.Add(r.Totals.Partner)
	if r.SplitTotal.IsZero() {
		r.SelfShouldPay = decimal.Zero
		r.PartnerShouldPay = decimal.Zero
		r.Amount = decimal.Zero
		return r
	}

	// Multiply before dividing so exact inputs stay exact.
	r.SelfShouldPay = r.SplitTotal.Mul(cfg.SelfPercent).Div(hundred)
	r.PartnerShouldPay = r.SplitTotal.Mul(cfg.PartnerPercent).Div(hundred)
	r.Amount = r.SelfShouldPay.Sub(r.Totals.Self)
	return r
}

// Rounded returns r with every money value rounded to cents.
func (r Result) Rounded() Result {
	return Result{
		Totals: core.PaidFromTotals{
			Self:    core.RoundMoney(r.Totals.Self),
			Partner: core.RoundMoney(r.Totals.Partner),
			Joint:   core.RoundMoney(r.Totals.Joint),
		},
		SplitTotal:       core.RoundMoney(r.SplitTotal),
		SelfShouldPay:    core.RoundMoney(r.SelfShouldPay),
		PartnerShouldPay: core.RoundMoney(r.PartnerShouldPay),
		Amount:           core.RoundMoney(r.Amount),
	}
}
