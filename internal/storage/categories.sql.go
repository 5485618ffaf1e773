package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
)

const categoryColumns = `id, owner_id, name, color, monthly_budget, created_at`

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c       core.Category
		budget  sql.NullString
		created string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &budget, &created); err != nil {
		return core.Category{}, err
	}
	if budget.Valid {
		b, err := parseDecimal(budget.String)
		if err != nil {
			return core.Category{}, err
		}
		c.MonthlyBudget = &b
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func nullBudget(b *decimal.Decimal) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: core.FormatAmount(core.RoundMoney(*b)), Valid: true}
}

const createCategory = `INSERT INTO categories (owner_id, name, name_key, color, monthly_budget, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

// CreateCategory inserts c. A name already used by the owner, in any case,
// yields core.ErrConflict.
func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	res, err := q.db.ExecContext(ctx, createCategory,
		c.OwnerID, c.Name, core.NormalizeCategoryKey(c.Name), c.Color, nullBudget(c.MonthlyBudget), formatTime(c.CreatedAt))
	if isUniqueViolation(err) {
		return core.Category{}, core.Conflict("category %q already exists", c.Name)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}
	return c, nil
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE owner_id = ? AND id = ?`

func (q *Queries) GetCategory(ctx context.Context, ownerID string, id int64) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, getCategory, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories WHERE owner_id = ? ORDER BY name_key ASC`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return items, nil
}

const updateCategory = `UPDATE categories SET name = ?, name_key = ?, color = ?, monthly_budget = ?
WHERE owner_id = ? AND id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	res, err := q.db.ExecContext(ctx, updateCategory,
		c.Name, core.NormalizeCategoryKey(c.Name), c.Color, nullBudget(c.MonthlyBudget), c.OwnerID, c.ID)
	if isUniqueViolation(err) {
		return core.Conflict("category %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return affectedOne(res, "category", c.ID)
}

const setCategoryBudget = `UPDATE categories SET monthly_budget = ? WHERE owner_id = ? AND id = ?`

// SetCategoryBudget stores budget for the category. Nil clears it.
func (q *Queries) SetCategoryBudget(ctx context.Context, ownerID string, id int64, budget *decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx, setCategoryBudget, nullBudget(budget), ownerID, id)
	if err != nil {
		return fmt.Errorf("set category budget: %w", err)
	}
	return affectedOne(res, "category", id)
}

const deleteCategory = `DELETE FROM categories WHERE owner_id = ? AND id = ?`

// DeleteCategory removes the category; its expenses become uncategorized.
func (q *Queries) DeleteCategory(ctx context.Context, ownerID string, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteCategory, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOne(res, "category", id)
}
