package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

// Paging bounds list page sizes.
type Paging struct {
	Default int
	Max     int
}

func DefaultPaging() Paging {
	return Paging{Default: 50, Max: 200}
}

// ExpenseService is the ledger: create, read, update, delete and query
// expenses of one owner.
type ExpenseService struct {
	deps   Deps
	limits core.Limits
	paging Paging
}

func NewExpenseService(deps Deps, limits core.Limits, paging Paging) *ExpenseService {
	return &ExpenseService{deps: deps, limits: limits, paging: paging}
}

// NewExpense is the input to Create. A non-empty Frequency makes the expense
// a recurring template.
type NewExpense struct {
	Amount      decimal.Decimal
	Description string
	Date        core.Date
	PaidFrom    core.PaidFrom
	CategoryID  *int64
	Notes       string
	Currency    string // defaults to the owner's split config currency
	Frequency   core.Frequency
}

// ExpensePatch holds optional changes. Nil fields are left untouched.
type ExpensePatch struct {
	Amount        *decimal.Decimal
	Description   *string
	Date          *core.Date
	PaidFrom      *core.PaidFrom
	CategoryID    *int64
	ClearCategory bool
	Notes         *string
	Currency      *string
	IsRecurring   *bool
	Frequency     *core.Frequency
}

// ExpenseQuery filters a ledger page. Zero fields match everything.
type ExpenseQuery struct {
	Month      *core.Month
	CategoryID *int64
	PaidFrom   core.PaidFrom
	Search     string
	Cursor     string
	Limit      int
}

// ExpensePage is one page of a query. NextCursor is empty on the last page.
type ExpensePage struct {
	Items      []core.Expense
	NextCursor string
}

func (s *ExpenseService) Create(ctx context.Context, ownerID string, in NewExpense) (core.Expense, error) {
	now := s.deps.now()
	q := s.deps.Store.Queries()

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		cfg, err := splitConfigOrDefault(ctx, q, ownerID)
		if err != nil {
			return core.Expense{}, err
		}
		currency = cfg.DefaultCurrency
	}

	e := core.Expense{
		OwnerID:     ownerID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		PaidFrom:    in.PaidFrom,
		CategoryID:  in.CategoryID,
		Currency:    currency,
		IsRecurring: in.Frequency != "",
		Frequency:   in.Frequency,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.limits.ValidateExpense(e, core.DateOf(now)); err != nil {
		return core.Expense{}, err
	}
	if e.IsRecurring {
		next := e.Frequency.Next(e.Date)
		e.NextDueDate = &next
	}
	if err := checkCategory(ctx, q, ownerID, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	created, err := q.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		log.FieldOwnerID, ownerID,
		log.FieldExpenseID, created.ID,
		log.FieldAmount, core.FormatAmount(created.Amount),
		log.FieldPaidFrom, created.PaidFrom,
		log.FieldFrequency, created.Frequency)
	s.deps.Metrics.ExpenseOp(log.OpCreate)
	s.deps.publish(ctx, amqp.ExpenseCreated, ownerID, created.ID, core.MonthOf(created.Date.Time).String())

	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, ownerID string, id int64) (core.Expense, error) {
	return s.deps.Store.Queries().GetExpense(ctx, ownerID, id)
}

// Update applies patch. Changing the date or frequency of an active recurring
// template recomputes its next due date from the new values.
func (s *ExpenseService) Update(ctx context.Context, ownerID string, id int64, patch ExpensePatch) (core.Expense, error) {
	var updated, before core.Expense
	err := s.deps.Store.WithTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetExpense(ctx, ownerID, id)
		if err != nil {
			return err
		}
		before = current
		e, err := s.applyPatch(current, patch)
		if err != nil {
			return err
		}
		if err := checkCategory(ctx, q, ownerID, e.CategoryID); err != nil {
			return err
		}
		if err := q.UpdateExpense(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated",
		log.FieldOwnerID, ownerID,
		log.FieldExpenseID, id,
		log.FieldAmount, core.FormatAmount(updated.Amount))
	s.deps.Metrics.ExpenseOp(log.OpUpdate)
	s.deps.publish(ctx, amqp.ExpenseUpdated, ownerID, id, core.MonthOf(updated.Date.Time).String())
	if !core.MonthOf(before.Date.Time).Contains(updated.Date) {
		// The old month's settlement changed as well.
		s.deps.publish(ctx, amqp.ExpenseUpdated, ownerID, id, core.MonthOf(before.Date.Time).String())
	}
	return updated, nil
}

func (s *ExpenseService) applyPatch(e core.Expense, p ExpensePatch) (core.Expense, error) {
	dateChanged, freqChanged := false, false

	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil && !p.Date.Equal(e.Date.Time) {
		e.Date = *p.Date
		dateChanged = true
	}
	if p.PaidFrom != nil {
		e.PaidFrom = *p.PaidFrom
	}
	if p.ClearCategory {
		e.CategoryID = nil
	} else if p.CategoryID != nil {
		e.CategoryID = p.CategoryID
	}
	if p.Notes != nil {
		e.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Currency != nil {
		e.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.Frequency != nil && *p.Frequency != e.Frequency {
		e.Frequency = *p.Frequency
		freqChanged = true
	}

	wasRecurring := e.IsRecurring
	if p.IsRecurring != nil {
		e.IsRecurring = *p.IsRecurring
	}
	if !e.IsRecurring {
		if wasRecurring && p.Frequency == nil {
			e.Frequency = ""
		}
		e.NextDueDate = nil
	}

	today := s.deps.today()
	if dateChanged {
		if err := s.limits.ValidateExpense(e, today); err != nil {
			return core.Expense{}, err
		}
	} else if err := s.limits.ValidateExpenseFields(e); err != nil {
		return core.Expense{}, err
	}

	switch {
	case e.IsRecurring && !wasRecurring:
		next := e.Frequency.Next(e.Date)
		e.NextDueDate = &next
	case e.IsRecurring && e.NextDueDate != nil && (dateChanged || freqChanged):
		next := e.Frequency.Next(e.Date)
		e.NextDueDate = &next
	}

	e.UpdatedAt = s.deps.now()
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, ownerID string, id int64) error {
	q := s.deps.Store.Queries()
	e, err := q.GetExpense(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := q.DeleteExpense(ctx, ownerID, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", log.FieldOwnerID, ownerID, log.FieldExpenseID, id)
	s.deps.Metrics.ExpenseOp(log.OpDelete)
	s.deps.publish(ctx, amqp.ExpenseDeleted, ownerID, id, core.MonthOf(e.Date.Time).String())
	return nil
}

// Query returns a page ordered by date descending, then id descending.
func (s *ExpenseService) Query(ctx context.Context, ownerID string, in ExpenseQuery) (ExpensePage, error) {
	limit := in.Limit
	switch {
	case limit < 0:
		return ExpensePage{}, core.Invalid("limit", "must not be negative")
	case limit == 0:
		limit = s.paging.Default
	case limit > s.paging.Max:
		limit = s.paging.Max
	}
	if in.PaidFrom != "" && !in.PaidFrom.Valid() {
		return ExpensePage{}, core.Invalid("paidFrom", "must be one of SELF, PARTNER, JOINT")
	}

	f := storage.ExpenseFilter{
		OwnerID:    ownerID,
		CategoryID: in.CategoryID,
		PaidFrom:   in.PaidFrom,
		Search:     in.Search,
		Limit:      limit + 1,
	}
	if in.Month != nil {
		from, to := in.Month.Start(), in.Month.End()
		f.From, f.To = &from, &to
	}
	if in.Cursor != "" {
		pos, err := DecodeCursor(in.Cursor)
		if err != nil {
			return ExpensePage{}, err
		}
		f.After = &pos
	}

	items, err := s.deps.Store.Queries().ListExpenses(ctx, f)
	if err != nil {
		return ExpensePage{}, err
	}

	page := ExpensePage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = EncodeCursor(storage.Position{Date: last.Date, ID: last.ID})
	}
	return page, nil
}

// EncodeCursor makes an opaque token for a position in the ledger ordering.
func EncodeCursor(p storage.Position) string {
	raw := p.Date.String() + "|" + strconv.FormatInt(p.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (storage.Position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return storage.Position{}, core.Invalid("cursor", "malformed")
	}
	datePart, idPart, ok := strings.Cut(string(raw), "|")
	if !ok {
		return storage.Position{}, core.Invalid("cursor", "malformed")
	}
	d, err := core.ParseDate(datePart)
	if err != nil {
		return storage.Position{}, core.Invalid("cursor", "malformed")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return storage.Position{}, core.Invalid("cursor", "malformed")
	}
	return storage.Position{Date: d, ID: id}, nil
}

// checkCategory makes sure a referenced category exists and belongs to the owner.
func checkCategory(ctx context.Context, q *storage.Queries, ownerID string, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := q.GetCategory(ctx, ownerID, *id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NotFound("category", *id)
		}
		return err
	}
	return nil
}

func splitConfigOrDefault(ctx context.Context, q *storage.Queries, ownerID string) (core.SplitConfig, error) {
	cfg, err := q.GetSplitConfig(ctx, ownerID)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultSplitConfig(ownerID), nil
	}
	return cfg, err
}
