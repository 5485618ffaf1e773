package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"splitledger/internal/core"
)

const getSplitConfig = `SELECT owner_id, self_percent, partner_percent, default_currency, updated_at
FROM split_configs WHERE owner_id = ?`

// GetSplitConfig returns core.ErrNotFound when the owner never stored one.
func (q *Queries) GetSplitConfig(ctx context.Context, ownerID string) (core.SplitConfig, error) {
	var (
		cfg                   core.SplitConfig
		self, partner, update string
	)
	err := q.db.QueryRowContext(ctx, getSplitConfig, ownerID).
		Scan(&cfg.OwnerID, &self, &partner, &cfg.DefaultCurrency, &update)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SplitConfig{}, core.NotFound("split config", ownerID)
	}
	if err != nil {
		return core.SplitConfig{}, fmt.Errorf("get split config: %w", err)
	}
	if cfg.SelfPercent, err = parseDecimal(self); err != nil {
		return core.SplitConfig{}, err
	}
	if cfg.PartnerPercent, err = parseDecimal(partner); err != nil {
		return core.SplitConfig{}, err
	}
	if cfg.UpdatedAt, err = parseTime(update); err != nil {
		return core.SplitConfig{}, err
	}
	return cfg, nil
}

const upsertSplitConfig = `INSERT INTO split_configs (owner_id, self_percent, partner_percent, default_currency, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (owner_id) DO UPDATE SET
	self_percent = excluded.self_percent,
	partner_percent = excluded.partner_percent,
	default_currency = excluded.default_currency,
	updated_at = excluded.updated_at`

func (q *Queries) UpsertSplitConfig(ctx context.Context, cfg core.SplitConfig) error {
	_, err := q.db.ExecContext(ctx, upsertSplitConfig,
		cfg.OwnerID, cfg.SelfPercent.String(), cfg.PartnerPercent.String(), cfg.DefaultCurrency, formatTime(cfg.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert split config: %w", err)
	}
	return nil
}

const settlementColumns = `id, owner_id, month_start, amount, settled, settled_at, notes, created_at, updated_at`

func scanSettlement(row rowScanner) (core.Settlement, error) {
	var (
		s                 core.Settlement
		monthStart, amt   string
		settled           int
		settledAt         sql.NullString
		created, modified string
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &monthStart, &amt, &settled, &settledAt, &s.Notes, &created, &modified); err != nil {
		return core.Settlement{}, err
	}
	var err error
	if s.MonthStart, err = parseDate(monthStart); err != nil {
		return core.Settlement{}, err
	}
	if s.Amount, err = parseDecimal(amt); err != nil {
		return core.Settlement{}, err
	}
	s.Settled = settled == 1
	if settledAt.Valid {
		t, err := parseTime(settledAt.String)
		if err != nil {
			return core.Settlement{}, err
		}
		s.SettledAt = &t
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return core.Settlement{}, err
	}
	if s.UpdatedAt, err = parseTime(modified); err != nil {
		return core.Settlement{}, err
	}
	return s, nil
}

const getSettlement = `SELECT ` + settlementColumns + ` FROM settlements WHERE owner_id = ? AND month_start = ?`

func (q *Queries) GetSettlement(ctx context.Context, ownerID string, month core.Month) (core.Settlement, error) {
	s, err := scanSettlement(q.db.QueryRowContext(ctx, getSettlement, ownerID, month.Start().String()))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settlement{}, core.NotFound("settlement", month.String())
	}
	if err != nil {
		return core.Settlement{}, fmt.Errorf("get settlement: %w", err)
	}
	return s, nil
}

const upsertSettlement = `INSERT INTO settlements (owner_id, month_start, amount, settled, settled_at, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id, month_start) DO UPDATE SET
	amount = excluded.amount,
	settled = excluded.settled,
	settled_at = excluded.settled_at,
	notes = excluded.notes,
	updated_at = excluded.updated_at`

// UpsertSettlement writes the whole settlement row for (owner, month start),
// replacing any previous state. The amount is rounded to cents here.
func (q *Queries) UpsertSettlement(ctx context.Context, s core.Settlement) (core.Settlement, error) {
	var settledAt sql.NullString
	if s.SettledAt != nil {
		settledAt = sql.NullString{String: formatTime(*s.SettledAt), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, upsertSettlement,
		s.OwnerID, s.MonthStart.String(), core.FormatAmount(core.RoundMoney(s.Amount)), boolToInt(s.Settled),
		settledAt, s.Notes, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return core.Settlement{}, fmt.Errorf("upsert settlement: %w", err)
	}
	return q.GetSettlement(ctx, s.OwnerID, s.Month())
}

const unmarkSettlement = `UPDATE settlements SET settled = 0, settled_at = NULL, updated_at = ?
WHERE owner_id = ? AND month_start = ?`

func (q *Queries) UnmarkSettlement(ctx context.Context, ownerID string, month core.Month, now time.Time) error {
	res, err := q.db.ExecContext(ctx, unmarkSettlement, formatTime(now), ownerID, month.Start().String())
	if err != nil {
		return fmt.Errorf("unmark settlement: %w", err)
	}
	return affectedOne(res, "settlement", month.String())
}

const listSettlements = `SELECT ` + settlementColumns + ` FROM settlements WHERE owner_id = ? ORDER BY month_start DESC`

func (q *Queries) ListSettlements(ctx context.Context, ownerID string) ([]core.Settlement, error) {
	rows, err := q.db.QueryContext(ctx, listSettlements, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var items []core.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return items, nil
}
