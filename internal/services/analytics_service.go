package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"splitledger/internal/core"
)

const (
	maxMonthsBack  = 60
	topCategoryMax = 5
	// Month-over-month changes within this many percent are "stable".
	trendThreshold = 5
)

var hundred = decimal.NewFromInt(100)

// AnalyticsService aggregates the ledger into read-only reports.
type AnalyticsService struct {
	deps Deps
}

func NewAnalyticsService(deps Deps) *AnalyticsService {
	return &AnalyticsService{deps: deps}
}

// MonthTotals is one bucket of a monthly trend.
type MonthTotals struct {
	Month  core.Month
	Totals core.PaidFromTotals
	Total  decimal.Decimal
}

// CategorySpend is spend against budget for one category in a month.
type CategorySpend struct {
	Name   string
	Spent  decimal.Decimal
	Budget *decimal.Decimal
}

// WeekdaySpend is one bucket of the day-of-week histogram.
type WeekdaySpend struct {
	Weekday time.Weekday
	Total   decimal.Decimal
	Count   int
	Average decimal.Decimal
}

type Insights struct {
	CurrentMonth   core.Month
	CurrentTotal   decimal.Decimal
	PreviousTotal  decimal.Decimal
	PercentChange  decimal.Decimal
	Trend          string // up, down or stable
	TopCategories  []core.CategoryAmount
	ByWeekday      [7]WeekdaySpend
	Largest        *core.Expense
	AverageExpense decimal.Decimal
	ExpenseCount   int
}

func validateMonthsBack(n int) error {
	if n < 1 || n > maxMonthsBack {
		return core.Invalid("monthsBack", "must be between 1 and %d", maxMonthsBack)
	}
	return nil
}

// window returns the first month of an n-month window ending with the current month.
func (s *AnalyticsService) window(monthsBack int) (core.Month, core.Month) {
	current := core.MonthOf(s.deps.now())
	return current.AddMonths(-(monthsBack - 1)), current
}

// MonthlyTrend buckets the last monthsBack months, current month included,
// by paid-from account. Months without expenses appear with zero totals.
func (s *AnalyticsService) MonthlyTrend(ctx context.Context, ownerID string, monthsBack int) ([]MonthTotals, error) {
	if err := validateMonthsBack(monthsBack); err != nil {
		return nil, err
	}
	first, last := s.window(monthsBack)
	expenses, err := s.deps.Store.Queries().ListExpensesBetween(ctx, ownerID, first.Start(), last.End())
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*core.PaidFromTotals, monthsBack)
	for _, e := range expenses {
		key := core.MonthOf(e.Date.Time).String()
		b, ok := buckets[key]
		if !ok {
			b = &core.PaidFromTotals{}
			buckets[key] = b
		}
		b.Add(e)
	}

	out := make([]MonthTotals, 0, monthsBack)
	for m := first; !last.Before(m); m = m.AddMonths(1) {
		var t core.PaidFromTotals
		if b, ok := buckets[m.String()]; ok {
			t = *b
		}
		t = core.PaidFromTotals{
			Self:    core.RoundMoney(t.Self),
			Partner: core.RoundMoney(t.Partner),
			Joint:   core.RoundMoney(t.Joint),
		}
		out = append(out, MonthTotals{Month: m, Totals: t, Total: t.Total()})
	}
	return out, nil
}

// CategorySpending maps every category of the owner to its spend in month.
func (s *AnalyticsService) CategorySpending(ctx context.Context, ownerID string, month core.Month) (map[int64]CategorySpend, error) {
	var (
		categories []core.Category
		expenses   []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.deps.Store.Queries().ListCategories(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.deps.Store.Queries().ListExpensesBetween(gctx, ownerID, month.Start(), month.End())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	spent := spentByCategory(expenses)
	out := make(map[int64]CategorySpend, len(categories))
	for _, c := range categories {
		out[c.ID] = CategorySpend{Name: c.Name, Spent: core.RoundMoney(spent[c.ID]), Budget: c.MonthlyBudget}
	}
	return out, nil
}

// SpendingInsights compares the current month with the previous one and
// summarizes the last monthsBack months.
func (s *AnalyticsService) SpendingInsights(ctx context.Context, ownerID string, monthsBack int) (Insights, error) {
	if err := validateMonthsBack(monthsBack); err != nil {
		return Insights{}, err
	}
	first, current := s.window(monthsBack)
	previous := current.Prev()
	from := first
	if previous.Before(from) {
		from = previous
	}

	var (
		categories []core.Category
		expenses   []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.deps.Store.Queries().ListCategories(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.deps.Store.Queries().ListExpensesBetween(gctx, ownerID, from.Start(), current.End())
		return err
	})
	if err := g.Wait(); err != nil {
		return Insights{}, err
	}

	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	in := Insights{CurrentMonth: current}
	byCategory := make(map[int64]decimal.Decimal)
	windowTotal := decimal.Zero
	for i := range in.ByWeekday {
		in.ByWeekday[i].Weekday = time.Weekday(i)
	}

	for i := range expenses {
		e := expenses[i]
		m := core.MonthOf(e.Date.Time)

		switch m {
		case current:
			in.CurrentTotal = in.CurrentTotal.Add(e.Amount)
			if e.CategoryID != nil {
				byCategory[*e.CategoryID] = byCategory[*e.CategoryID].Add(e.Amount)
			}
			if in.Largest == nil || e.Amount.GreaterThan(in.Largest.Amount) {
				in.Largest = &expenses[i]
			}
		case previous:
			in.PreviousTotal = in.PreviousTotal.Add(e.Amount)
		}

		if m.Before(first) {
			continue
		}
		wd := &in.ByWeekday[e.Date.Weekday()]
		wd.Total = wd.Total.Add(e.Amount)
		wd.Count++
		windowTotal = windowTotal.Add(e.Amount)
		in.ExpenseCount++
	}

	in.PercentChange = percentChange(in.PreviousTotal, in.CurrentTotal)
	in.Trend = trendLabel(in.PercentChange)
	in.TopCategories = topCategories(byCategory, names, topCategoryMax)

	for i := range in.ByWeekday {
		wd := &in.ByWeekday[i]
		if wd.Count > 0 {
			wd.Average = core.RoundMoney(wd.Total.Div(decimal.NewFromInt(int64(wd.Count))))
		}
		wd.Total = core.RoundMoney(wd.Total)
	}
	if in.ExpenseCount > 0 {
		in.AverageExpense = core.RoundMoney(windowTotal.Div(decimal.NewFromInt(int64(in.ExpenseCount))))
	}
	in.CurrentTotal = core.RoundMoney(in.CurrentTotal)
	in.PreviousTotal = core.RoundMoney(in.PreviousTotal)
	return in, nil
}

// percentChange is (cur-prev)/prev*100 rounded to cents, and zero when prev
// is zero.
func percentChange(prev, cur decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(prev).Mul(hundred).Div(prev).Round(2)
}

func trendLabel(change decimal.Decimal) string {
	threshold := decimal.NewFromInt(trendThreshold)
	switch {
	case change.GreaterThan(threshold):
		return "up"
	case change.LessThan(threshold.Neg()):
		return "down"
	default:
		return "stable"
	}
}

func topCategories(spent map[int64]decimal.Decimal, names map[int64]string, n int) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(spent))
	for id, amount := range spent {
		out = append(out, core.CategoryAmount{CategoryID: id, Name: names[id], Amount: core.RoundMoney(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
