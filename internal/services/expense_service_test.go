package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/storage"
)

var march15 = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func TestExpenseService_CreateValidation(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    NewExpense
		field string
	}{
		{
			name:  "zero amount",
			in:    NewExpense{Amount: dec("0"), Description: "x", Date: core.NewDate(2026, 3, 1), PaidFrom: core.PaidFromSelf},
			field: "amount",
		},
		{
			name:  "blank description",
			in:    NewExpense{Amount: dec("1"), Description: "   ", Date: core.NewDate(2026, 3, 1), PaidFrom: core.PaidFromSelf},
			field: "description",
		},
		{
			name:  "date too far ahead",
			in:    NewExpense{Amount: dec("1"), Description: "x", Date: core.NewDate(2028, 1, 1), PaidFrom: core.PaidFromSelf},
			field: "date",
		},
		{
			name:  "unknown paid from",
			in:    NewExpense{Amount: dec("1"), Description: "x", Date: core.NewDate(2026, 3, 1), PaidFrom: "BANK"},
			field: "paidFrom",
		},
		{
			name:  "bad currency",
			in:    NewExpense{Amount: dec("1"), Description: "x", Date: core.NewDate(2026, 3, 1), PaidFrom: core.PaidFromSelf, Currency: "EURO"},
			field: "currency",
		},
		{
			name:  "unknown frequency",
			in:    NewExpense{Amount: dec("1"), Description: "x", Date: core.NewDate(2026, 3, 1), PaidFrom: core.PaidFromSelf, Frequency: "DAILY"},
			field: "frequency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.Create(ctx, owner, tt.in)
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	page, err := env.expenses.Query(ctx, owner, ExpenseQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("rejected creates must not write, found %d rows", len(page.Items))
	}
}

func TestExpenseService_CreateDefaults(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	if _, err := env.split.Update(ctx, owner, dec("50"), dec("50"), "EUR"); err != nil {
		t.Fatalf("split Update: %v", err)
	}

	e, err := env.expenses.Create(ctx, owner, NewExpense{
		Amount:      dec("12.345"),
		Description: "  groceries ",
		Date:        core.NewDate(2026, 3, 10),
		PaidFrom:    core.PaidFromSelf,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Currency != "EUR" {
		t.Errorf("currency = %s, want EUR from split config", e.Currency)
	}
	if e.Description != "groceries" {
		t.Errorf("description = %q, want trimmed", e.Description)
	}
	if core.FormatAmount(e.Amount) != "12.35" {
		t.Errorf("amount = %s, want 12.35", core.FormatAmount(e.Amount))
	}
	if e.IsRecurring || e.NextDueDate != nil {
		t.Errorf("plain expense must not be recurring: %+v", e)
	}

	tpl := env.addTemplate(t, "900", core.NewDate(2026, 1, 31), core.Monthly)
	if !tpl.IsRecurring || tpl.NextDueDate == nil || tpl.NextDueDate.String() != "2026-02-28" {
		t.Errorf("template next due = %v, want 2026-02-28", tpl.NextDueDate)
	}
}

func TestExpenseService_CreateUnknownCategory(t *testing.T) {
	env := newTestEnv(t, march15)
	id := int64(42)
	_, err := env.expenses.Create(context.Background(), owner, NewExpense{
		Amount: dec("1"), Description: "x", Date: core.NewDate(2026, 3, 1),
		PaidFrom: core.PaidFromSelf, CategoryID: &id,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpenseService_Update(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()
	e := env.add(t, "10", core.NewDate(2026, 3, 1), core.PaidFromSelf)

	t.Run("amount and paid from", func(t *testing.T) {
		amount := dec("20.50")
		pf := core.PaidFromPartner
		got, err := env.expenses.Update(ctx, owner, e.ID, ExpensePatch{Amount: &amount, PaidFrom: &pf})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if core.FormatAmount(got.Amount) != "20.50" || got.PaidFrom != core.PaidFromPartner {
			t.Errorf("unexpected update result: %+v", got)
		}
		stored, _ := env.expenses.Get(ctx, owner, e.ID)
		if core.FormatAmount(stored.Amount) != "20.50" {
			t.Errorf("stored amount = %s", core.FormatAmount(stored.Amount))
		}
	})

	t.Run("invalid patch leaves row untouched", func(t *testing.T) {
		empty := ""
		_, err := env.expenses.Update(ctx, owner, e.ID, ExpensePatch{Description: &empty})
		if !core.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		stored, _ := env.expenses.Get(ctx, owner, e.ID)
		if stored.Description == "" {
			t.Error("description was cleared")
		}
	})

	t.Run("turn recurring on and off", func(t *testing.T) {
		on, freq := true, core.Weekly
		got, err := env.expenses.Update(ctx, owner, e.ID, ExpensePatch{IsRecurring: &on, Frequency: &freq})
		if err != nil {
			t.Fatalf("Update on: %v", err)
		}
		if got.NextDueDate == nil || got.NextDueDate.String() != "2026-03-08" {
			t.Errorf("next due = %v, want 2026-03-08", got.NextDueDate)
		}

		off := false
		got, err = env.expenses.Update(ctx, owner, e.ID, ExpensePatch{IsRecurring: &off})
		if err != nil {
			t.Fatalf("Update off: %v", err)
		}
		if got.IsRecurring || got.Frequency != "" || got.NextDueDate != nil {
			t.Errorf("recurrence not cleared: %+v", got)
		}
	})

	t.Run("recurring without frequency", func(t *testing.T) {
		on := true
		_, err := env.expenses.Update(ctx, owner, e.ID, ExpensePatch{IsRecurring: &on})
		if !core.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("other owner", func(t *testing.T) {
		amount := dec("1")
		_, err := env.expenses.Update(ctx, "someone-else", e.ID, ExpensePatch{Amount: &amount})
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestExpenseService_UpdateTemplateDateRecomputesDue(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()
	tpl := env.addTemplate(t, "50", core.NewDate(2026, 3, 1), core.Monthly)

	d := core.NewDate(2026, 3, 10)
	got, err := env.expenses.Update(ctx, owner, tpl.ID, ExpensePatch{Date: &d})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.NextDueDate == nil || got.NextDueDate.String() != "2026-04-10" {
		t.Errorf("next due = %v, want 2026-04-10", got.NextDueDate)
	}

	// A paused template stays paused whatever changes.
	if _, err := env.recurring.Pause(ctx, owner, tpl.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	freq := core.Weekly
	got, err = env.expenses.Update(ctx, owner, tpl.ID, ExpensePatch{Frequency: &freq})
	if err != nil {
		t.Fatalf("Update frequency: %v", err)
	}
	if got.NextDueDate != nil {
		t.Errorf("paused template was resumed: next due %v", got.NextDueDate)
	}
}

func TestExpenseService_Delete(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()
	e := env.add(t, "10", core.NewDate(2026, 3, 1), core.PaidFromSelf)

	if err := env.expenses.Delete(ctx, "someone-else", e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete by other owner: expected ErrNotFound, got %v", err)
	}
	if err := env.expenses.Delete(ctx, owner, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.expenses.Get(ctx, owner, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get after delete: expected ErrNotFound, got %v", err)
	}
	if err := env.expenses.Delete(ctx, owner, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestExpenseService_QueryPaging(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()

	// Two rows share a date so the id tiebreak is exercised.
	env.add(t, "1", core.NewDate(2026, 3, 1), core.PaidFromSelf)
	env.add(t, "2", core.NewDate(2026, 3, 5), core.PaidFromSelf)
	env.add(t, "3", core.NewDate(2026, 3, 5), core.PaidFromPartner)
	env.add(t, "4", core.NewDate(2026, 3, 9), core.PaidFromJoint)
	env.add(t, "5", core.NewDate(2026, 2, 20), core.PaidFromSelf)

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, err := env.expenses.Query(ctx, owner, ExpenseQuery{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		pages++
		for _, e := range page.Items {
			seen = append(seen, core.FormatAmount(e.Amount))
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	want := []string{"4.00", "3.00", "2.00", "1.00", "5.00"}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}

	t.Run("month filter", func(t *testing.T) {
		m := core.Month{Year: 2026, Month: time.February}
		page, err := env.expenses.Query(ctx, owner, ExpenseQuery{Month: &m})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(page.Items) != 1 || core.FormatAmount(page.Items[0].Amount) != "5.00" {
			t.Errorf("unexpected february page: %+v", page.Items)
		}
	})

	t.Run("paid from filter", func(t *testing.T) {
		page, err := env.expenses.Query(ctx, owner, ExpenseQuery{PaidFrom: core.PaidFromPartner})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(page.Items) != 1 {
			t.Errorf("expected 1 partner expense, got %d", len(page.Items))
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		if _, err := env.expenses.Query(ctx, owner, ExpenseQuery{Limit: -1}); !core.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestCursorRoundTrip(t *testing.T) {
	pos := storage.Position{Date: core.NewDate(2026, 3, 5), ID: 17}
	got, err := DecodeCursor(EncodeCursor(pos))
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if got.ID != 17 || got.Date.String() != "2026-03-05" {
		t.Errorf("got %+v", got)
	}

	for _, bad := range []string{"!!", "bm9waXBl", base64.RawURLEncoding.EncodeToString([]byte("2026-03-05|x"))} {
		if _, err := DecodeCursor(bad); !core.IsValidation(err) {
			t.Errorf("DecodeCursor(%q): expected validation error, got %v", bad, err)
		}
	}
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	env := newTestEnv(t, march15)
	env.pub.err = errors.New("broker down")

	e := env.add(t, "10", core.NewDate(2026, 3, 1), core.PaidFromSelf)
	if e.ID == 0 {
		t.Fatal("expected a persisted expense")
	}
}

func TestExpenseService_PublishesEvents(t *testing.T) {
	env := newTestEnv(t, march15)
	ctx := context.Background()
	e := env.add(t, "10", core.NewDate(2026, 3, 1), core.PaidFromSelf)
	if err := env.expenses.Delete(ctx, owner, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	types := env.pub.Types()
	if len(types) != 2 || types[0] != amqp.ExpenseCreated || types[1] != amqp.ExpenseDeleted {
		t.Errorf("events = %v", types)
	}
	if env.pub.events[0].Month != "2026-03" || env.pub.events[0].OwnerID != owner {
		t.Errorf("unexpected event: %+v", env.pub.events[0])
	}
}
