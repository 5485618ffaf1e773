package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/calculator"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

// SettlementService settles months between self and partner. Amounts are
// always recomputed from the ledger; a stored amount is never reused.
type SettlementService struct {
	deps   Deps
	limits core.Limits
}

func NewSettlementService(deps Deps, limits core.Limits) *SettlementService {
	return &SettlementService{deps: deps, limits: limits}
}

// MonthSummary is the live settlement of a month next to its stored state.
type MonthSummary struct {
	Month        core.Month
	Split        core.SplitConfig
	Result       calculator.Result // rounded to cents
	ExpenseCount int
	Settled      bool
	SettledAt    *time.Time
	Notes        string
}

// Direction names who owes whom for the live amount.
func (m MonthSummary) Direction() string {
	return core.Settlement{Amount: m.Result.Amount}.Direction()
}

func (s *SettlementService) compute(ctx context.Context, q *storage.Queries, ownerID string, month core.Month) (calculator.Result, core.SplitConfig, int, error) {
	start := time.Now()
	defer func() { s.deps.Metrics.ObserveSettlement(time.Since(start)) }()

	cfg, err := splitConfigOrDefault(ctx, q, ownerID)
	if err != nil {
		return calculator.Result{}, core.SplitConfig{}, 0, err
	}
	expenses, err := q.ListExpensesBetween(ctx, ownerID, month.Start(), month.End())
	if err != nil {
		return calculator.Result{}, core.SplitConfig{}, 0, err
	}
	return calculator.ComputeSettlement(expenses, cfg), cfg, len(expenses), nil
}

// Summary computes the month without writing anything.
func (s *SettlementService) Summary(ctx context.Context, ownerID string, month core.Month) (MonthSummary, error) {
	q := s.deps.Store.Queries()
	result, cfg, n, err := s.compute(ctx, q, ownerID, month)
	if err != nil {
		return MonthSummary{}, err
	}

	sum := MonthSummary{Month: month, Split: cfg, Result: result.Rounded(), ExpenseCount: n}
	stored, err := q.GetSettlement(ctx, ownerID, month)
	switch {
	case err == nil:
		sum.Settled, sum.SettledAt, sum.Notes = stored.Settled, stored.SettledAt, stored.Notes
	case !errors.Is(err, core.ErrNotFound):
		return MonthSummary{}, err
	}
	return sum, nil
}

// MarkSettled recomputes the month from the ledger and overwrites its
// settlement row as settled, reading and writing in one transaction.
func (s *SettlementService) MarkSettled(ctx context.Context, ownerID string, month core.Month, notes string) (core.Settlement, error) {
	notes = strings.TrimSpace(notes)
	if err := s.limits.ValidateNotes(notes); err != nil {
		return core.Settlement{}, err
	}

	var saved core.Settlement
	now := s.deps.now()

	err := s.deps.Store.WithTx(ctx, func(q *storage.Queries) error {
		result, _, _, err := s.compute(ctx, q, ownerID, month)
		if err != nil {
			return err
		}
		saved, err = q.UpsertSettlement(ctx, core.Settlement{
			OwnerID:    ownerID,
			MonthStart: month.Start(),
			Amount:     result.Rounded().Amount,
			Settled:    true,
			SettledAt:  &now,
			Notes:      notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		return core.Settlement{}, err
	}

	slog.InfoContext(ctx, "Month settled",
		log.FieldOwnerID, ownerID,
		log.FieldMonth, month.String(),
		log.FieldAmount, core.FormatAmount(saved.Amount),
		"direction", saved.Direction())
	s.deps.Metrics.SettlementOp(log.OpSettle)
	s.deps.publish(ctx, amqp.SettlementMarked, ownerID, saved.ID, month.String())
	return saved, nil
}

// UnmarkSettled reopens a month. It fails with core.ErrNotFound when the
// month was never settled.
func (s *SettlementService) UnmarkSettled(ctx context.Context, ownerID string, month core.Month) error {
	if err := s.deps.Store.Queries().UnmarkSettlement(ctx, ownerID, month, s.deps.now()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Month reopened", log.FieldOwnerID, ownerID, log.FieldMonth, month.String())
	s.deps.Metrics.SettlementOp(log.OpUnsettle)
	s.deps.publish(ctx, amqp.SettlementUnmarked, ownerID, 0, month.String())
	return nil
}

// UnsettledMonths lists months with at least one expense and no settled row,
// newest first. The current month and later ones are never included: the
// current month counts as closed from the first instant of the next one, UTC.
func (s *SettlementService) UnsettledMonths(ctx context.Context, ownerID string) ([]core.Month, error) {
	q := s.deps.Store.Queries()
	months, err := q.ListExpenseMonths(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	settlements, err := q.ListSettlements(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	settled := make(map[core.Month]bool, len(settlements))
	for _, st := range settlements {
		if st.Settled {
			settled[st.Month()] = true
		}
	}

	current := core.MonthOf(s.deps.now())
	out := []core.Month{}
	for _, m := range months {
		if !m.Before(current) || settled[m] {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// List returns every stored settlement row, newest month first.
func (s *SettlementService) List(ctx context.Context, ownerID string) ([]core.Settlement, error) {
	return s.deps.Store.Queries().ListSettlements(ctx, ownerID)
}
