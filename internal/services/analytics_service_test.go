package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
)

func TestAnalyticsService_MonthlyTrend(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	env.add(t, "10", core.NewDate(2026, 1, 4), core.PaidFromSelf)
	env.add(t, "5.50", core.NewDate(2026, 1, 20), core.PaidFromJoint)
	env.add(t, "30", core.NewDate(2026, 3, 2), core.PaidFromPartner)
	env.add(t, "70", core.NewDate(2025, 12, 31), core.PaidFromSelf)

	trend, err := env.analytics.MonthlyTrend(ctx, owner, 3)
	if err != nil {
		t.Fatalf("MonthlyTrend: %v", err)
	}
	want := []struct {
		month string
		total string
	}{
		{"2026-01", "15.50"},
		{"2026-02", "0.00"},
		{"2026-03", "30.00"},
	}
	if len(trend) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(trend), len(want))
	}
	for i, w := range want {
		if trend[i].Month.String() != w.month || core.FormatAmount(trend[i].Total) != w.total {
			t.Errorf("bucket %d = %s %s, want %s %s", i,
				trend[i].Month, core.FormatAmount(trend[i].Total), w.month, w.total)
		}
	}
	if core.FormatAmount(trend[0].Totals.Joint) != "5.50" || core.FormatAmount(trend[2].Totals.Partner) != "30.00" {
		t.Errorf("paid-from split wrong: %+v %+v", trend[0].Totals, trend[2].Totals)
	}

	for _, n := range []int{0, 61} {
		if _, err := env.analytics.MonthlyTrend(ctx, owner, n); !core.IsValidation(err) {
			t.Errorf("MonthlyTrend(%d): expected validation error, got %v", n, err)
		}
	}
}

func TestAnalyticsService_CategorySpending(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	food, _ := env.category.Create(ctx, owner, CategoryInput{Name: "Food"})
	env.category.Create(ctx, owner, CategoryInput{Name: "Idle"})
	_, err := env.expenses.Create(ctx, owner, NewExpense{
		Amount: dec("12.30"), Description: "lunch", Date: core.NewDate(2026, 3, 4),
		PaidFrom: core.PaidFromSelf, CategoryID: &food.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	env.add(t, "99", core.NewDate(2026, 3, 4), core.PaidFromSelf) // uncategorized

	got, err := env.analytics.CategorySpending(ctx, owner, mar)
	if err != nil {
		t.Fatalf("CategorySpending: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected every category, got %d", len(got))
	}
	if core.FormatAmount(got[food.ID].Spent) != "12.30" {
		t.Errorf("food spent = %s", core.FormatAmount(got[food.ID].Spent))
	}
}

func TestAnalyticsService_SpendingInsights(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	food, _ := env.category.Create(ctx, owner, CategoryInput{Name: "Food"})
	rent, _ := env.category.Create(ctx, owner, CategoryInput{Name: "Rent"})

	add := func(amount string, d core.Date, cat *int64) {
		t.Helper()
		_, err := env.expenses.Create(ctx, owner, NewExpense{
			Amount: dec(amount), Description: "x", Date: d, PaidFrom: core.PaidFromJoint, CategoryID: cat,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	// 2026-02-02 and 2026-03-02 are Mondays.
	add("100", core.NewDate(2026, 2, 2), &food.ID)
	add("20", core.NewDate(2026, 3, 2), &food.ID)
	add("800", core.NewDate(2026, 3, 1), &rent.ID)
	add("30", core.NewDate(2026, 3, 7), nil)

	in, err := env.analytics.SpendingInsights(ctx, owner, 2)
	if err != nil {
		t.Fatalf("SpendingInsights: %v", err)
	}

	if core.FormatAmount(in.CurrentTotal) != "850.00" || core.FormatAmount(in.PreviousTotal) != "100.00" {
		t.Errorf("totals = %s / %s", core.FormatAmount(in.CurrentTotal), core.FormatAmount(in.PreviousTotal))
	}
	if !in.PercentChange.Equal(decimal.NewFromInt(750)) || in.Trend != "up" {
		t.Errorf("change = %s %s, want 750 up", in.PercentChange, in.Trend)
	}
	if len(in.TopCategories) != 2 || in.TopCategories[0].Name != "Rent" || in.TopCategories[1].Name != "Food" {
		t.Errorf("top categories = %+v", in.TopCategories)
	}
	if in.Largest == nil || core.FormatAmount(in.Largest.Amount) != "800.00" {
		t.Errorf("largest = %+v", in.Largest)
	}
	if in.ExpenseCount != 4 || core.FormatAmount(in.AverageExpense) != "237.50" {
		t.Errorf("count %d average %s, want 4 237.50", in.ExpenseCount, core.FormatAmount(in.AverageExpense))
	}
	mon := in.ByWeekday[time.Monday]
	if mon.Count != 2 || core.FormatAmount(mon.Total) != "120.00" || core.FormatAmount(mon.Average) != "60.00" {
		t.Errorf("monday = %+v", mon)
	}
}

func TestAnalyticsService_ZeroPreviousMonth(t *testing.T) {
	env := newTestEnv(t, march15)
	env.add(t, "40", core.NewDate(2026, 3, 3), core.PaidFromSelf)

	in, err := env.analytics.SpendingInsights(context.Background(), owner, 1)
	if err != nil {
		t.Fatalf("SpendingInsights: %v", err)
	}
	if !in.PercentChange.IsZero() || in.Trend != "stable" {
		t.Errorf("change = %s %s, want 0 stable", in.PercentChange, in.Trend)
	}
	if !in.PreviousTotal.IsZero() {
		t.Errorf("previous = %s", in.PreviousTotal)
	}
}

func TestTrendLabel(t *testing.T) {
	tests := []struct {
		change string
		want   string
	}{
		{"5", "stable"},
		{"5.01", "up"},
		{"-5", "stable"},
		{"-12.5", "down"},
		{"0", "stable"},
	}
	for _, tt := range tests {
		t.Run(tt.change, func(t *testing.T) {
			if got := trendLabel(dec(tt.change)); got != tt.want {
				t.Errorf("trendLabel(%s) = %s, want %s", tt.change, got, tt.want)
			}
		})
	}
}
