package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"splitledger/internal/core"
)

func TestRecurringService_GenerateMonthEnd(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	tpl := env.addTemplate(t, "1200", core.NewDate(2026, 1, 31), core.Monthly)

	on := core.NewDate(2026, 1, 31)
	instance, updated, err := env.recurring.Generate(ctx, owner, tpl.ID, &on)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if instance.Date.String() != "2026-01-31" {
		t.Errorf("instance date = %s", instance.Date)
	}
	if !instance.IsAutoGenerated || instance.IsRecurring || instance.NextDueDate != nil {
		t.Errorf("instance must be a plain auto-generated expense: %+v", instance)
	}
	if !instance.Amount.Equal(tpl.Amount) || instance.PaidFrom != tpl.PaidFrom || instance.Description != tpl.Description {
		t.Errorf("instance does not copy the template: %+v", instance)
	}
	if updated.NextDueDate == nil || updated.NextDueDate.String() != "2026-02-28" {
		t.Fatalf("template next due = %v, want 2026-02-28", updated.NextDueDate)
	}

	// Without an explicit date the template's due date is used.
	instance, updated, err = env.recurring.Generate(ctx, owner, tpl.ID, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if instance.Date.String() != "2026-02-28" {
		t.Errorf("instance date = %s, want 2026-02-28", instance.Date)
	}
	if updated.NextDueDate.String() != "2026-03-28" {
		t.Errorf("template next due = %s, want 2026-03-28", updated.NextDueDate)
	}
}

func TestRecurringService_GenerateRejectsNonTemplates(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	plain := env.add(t, "10", core.NewDate(2026, 3, 1), core.PaidFromSelf)
	if _, _, err := env.recurring.Generate(ctx, owner, plain.ID, nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("plain expense: expected ErrNotFound, got %v", err)
	}

	tpl := env.addTemplate(t, "10", core.NewDate(2026, 3, 1), core.Weekly)
	instance, _, err := env.recurring.Generate(ctx, owner, tpl.ID, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, _, err := env.recurring.Generate(ctx, owner, instance.ID, nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("generated instance: expected ErrNotFound, got %v", err)
	}
	if _, _, err := env.recurring.Generate(ctx, "someone-else", tpl.ID, nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other owner: expected ErrNotFound, got %v", err)
	}
}

func TestRecurringService_SkipAdvancesWithoutWriting(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()
	tpl := env.addTemplate(t, "40", core.NewDate(2026, 3, 1), core.Biweekly)

	before, err := env.expenses.Query(ctx, owner, ExpenseQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	skipped, err := env.recurring.Skip(ctx, owner, tpl.ID)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if got := skipped.NextDueDate.String(); got != "2026-03-29" {
		t.Errorf("next due = %s, want 2026-03-29", got)
	}

	after, err := env.expenses.Query(ctx, owner, ExpenseQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(after.Items) != len(before.Items) {
		t.Errorf("skip created rows: before %d after %d", len(before.Items), len(after.Items))
	}
}

func TestRecurringService_PauseResume(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()
	tpl := env.addTemplate(t, "40", core.NewDate(2026, 3, 1), core.Weekly)

	paused, err := env.recurring.Pause(ctx, owner, tpl.ID)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if paused.NextDueDate != nil {
		t.Fatalf("paused template still has a due date: %v", paused.NextDueDate)
	}

	due, err := env.recurring.Due(ctx, core.NewDate(2030, 1, 1))
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("paused template reported as due: %+v", due)
	}

	if _, err := env.recurring.Skip(ctx, owner, tpl.ID); !core.IsValidation(err) {
		t.Errorf("Skip on paused template: expected validation error, got %v", err)
	}

	resumed, err := env.recurring.Resume(ctx, owner, tpl.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.NextDueDate == nil || resumed.NextDueDate.String() != "2026-03-22" {
		t.Errorf("resumed next due = %v, want 2026-03-22", resumed.NextDueDate)
	}
}

func TestRecurringService_Upcoming(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	// Due 03-19, 04-01, 2027-03-01 and 03-21 (paused).
	weekly := env.addTemplate(t, "10", core.NewDate(2026, 3, 12), core.Weekly)
	monthly := env.addTemplate(t, "20", core.NewDate(2026, 3, 1), core.Monthly)
	env.addTemplate(t, "30", core.NewDate(2026, 3, 1), core.Yearly)
	paused := env.addTemplate(t, "40", core.NewDate(2026, 3, 14), core.Weekly)
	if _, err := env.recurring.Pause(ctx, owner, paused.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	got, err := env.recurring.Upcoming(ctx, owner, 30)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming templates, got %d", len(got))
	}
	if got[0].Template.ID != weekly.ID || got[0].DaysUntilDue != 4 {
		t.Errorf("first = %d in %d days, want %d in 4", got[0].Template.ID, got[0].DaysUntilDue, weekly.ID)
	}
	if got[1].Template.ID != monthly.ID || got[1].DaysUntilDue != 17 {
		t.Errorf("second = %d in %d days, want %d in 17", got[1].Template.ID, got[1].DaysUntilDue, monthly.ID)
	}

	for _, days := range []int{-1, 367} {
		if _, err := env.recurring.Upcoming(ctx, owner, days); !core.IsValidation(err) {
			t.Errorf("Upcoming(%d): expected validation error, got %v", days, err)
		}
	}
}

func TestRecurringService_ProcessDue(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	env.addTemplate(t, "10", core.NewDate(2026, 3, 1), core.Weekly)   // due 03-08
	env.addTemplate(t, "20", core.NewDate(2026, 3, 10), core.Monthly) // due 04-10

	n, err := env.recurring.ProcessDue(ctx, env.deps.today())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("generated %d, want 1", n)
	}

	// The weekly template moved to 03-15, which is today, so it is due once more.
	n, err = env.recurring.ProcessDue(ctx, env.deps.today())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("second run generated %d, want 1", n)
	}

	n, err = env.recurring.ProcessDue(ctx, env.deps.today())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 0 {
		t.Errorf("third run generated %d, want 0", n)
	}
}
