package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"splitledger/internal/core"
)

const expenseColumns = `id, owner_id, amount, description, date, paid_from, category_id, currency,
	is_recurring, frequency, next_due_date, is_auto_generated, notes, created_at, updated_at`

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e            core.Expense
		amount, date string
		paidFrom     string
		categoryID   sql.NullInt64
		isRecurring  int
		frequency    sql.NullString
		nextDue      sql.NullString
		autoGen      int
		created      string
		updated      string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &amount, &e.Description, &date, &paidFrom, &categoryID,
		&e.Currency, &isRecurring, &frequency, &nextDue, &autoGen, &e.Notes, &created, &updated); err != nil {
		return core.Expense{}, err
	}

	var err error
	if e.Amount, err = parseDecimal(amount); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = parseDate(date); err != nil {
		return core.Expense{}, err
	}
	e.PaidFrom = core.PaidFrom(paidFrom)
	if categoryID.Valid {
		id := categoryID.Int64
		e.CategoryID = &id
	}
	e.IsRecurring = isRecurring == 1
	e.Frequency = core.Frequency(frequency.String)
	if nextDue.Valid {
		d, err := parseDate(nextDue.String)
		if err != nil {
			return core.Expense{}, err
		}
		e.NextDueDate = &d
	}
	e.IsAutoGenerated = autoGen == 1
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.Expense{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var items []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return items, nil
}

const createExpense = `INSERT INTO expenses (
	owner_id, amount, description, date, paid_from, category_id, currency,
	is_recurring, frequency, next_due_date, is_auto_generated, notes, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateExpense inserts e and returns it with its new id. The amount is
// rounded to cents here.
func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Amount = core.RoundMoney(e.Amount)
	res, err := q.db.ExecContext(ctx, createExpense,
		e.OwnerID, core.FormatAmount(e.Amount), e.Description, e.Date.String(), string(e.PaidFrom),
		nullInt64(e.CategoryID), e.Currency, boolToInt(e.IsRecurring), nullString(string(e.Frequency)),
		nullDate(e.NextDueDate), boolToInt(e.IsAutoGenerated), e.Notes,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return e, nil
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE owner_id = ? AND id = ?`

func (q *Queries) GetExpense(ctx context.Context, ownerID string, id int64) (core.Expense, error) {
	e, err := scanExpense(q.db.QueryRowContext(ctx, getExpense, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

const updateExpense = `UPDATE expenses SET
	amount = ?, description = ?, date = ?, paid_from = ?, category_id = ?, currency = ?,
	is_recurring = ?, frequency = ?, next_due_date = ?, notes = ?, updated_at = ?
WHERE owner_id = ? AND id = ?`

// UpdateExpense overwrites every mutable column of e.
func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := q.db.ExecContext(ctx, updateExpense,
		core.FormatAmount(core.RoundMoney(e.Amount)), e.Description, e.Date.String(), string(e.PaidFrom),
		nullInt64(e.CategoryID), e.Currency, boolToInt(e.IsRecurring), nullString(string(e.Frequency)),
		nullDate(e.NextDueDate), e.Notes, formatTime(e.UpdatedAt),
		e.OwnerID, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return affectedOne(res, "expense", e.ID)
}

const setNextDueDate = `UPDATE expenses SET next_due_date = ?, updated_at = ?
WHERE owner_id = ? AND id = ? AND is_recurring = 1`

// SetNextDueDate moves a recurring template's due date. A nil due pauses it.
func (q *Queries) SetNextDueDate(ctx context.Context, e core.Expense) error {
	res, err := q.db.ExecContext(ctx, setNextDueDate,
		nullDate(e.NextDueDate), formatTime(e.UpdatedAt), e.OwnerID, e.ID)
	if err != nil {
		return fmt.Errorf("set next due date: %w", err)
	}
	return affectedOne(res, "recurring template", e.ID)
}

const deleteExpense = `DELETE FROM expenses WHERE owner_id = ? AND id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, ownerID string, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteExpense, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return affectedOne(res, "expense", id)
}

// ExpenseFilter narrows ListExpenses. Zero values match everything.
type ExpenseFilter struct {
	OwnerID    string
	From       *core.Date
	To         *core.Date
	CategoryID *int64
	PaidFrom   core.PaidFrom
	Search     string
	// After resumes a date-descending listing strictly past this position.
	After *Position
	// Limit of zero returns every match.
	Limit int
}

// Position is a point in the date DESC, id DESC ordering.
type Position struct {
	Date core.Date
	ID   int64
}

// ListExpenses returns matches ordered by date descending, then id descending.
func (q *Queries) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{f.OwnerID}
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.PaidFrom != "" {
		where = append(where, "paid_from = ?")
		args = append(args, string(f.PaidFrom))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = append(where, `(description LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.After != nil {
		where = append(where, "(date < ? OR (date = ? AND id < ?))")
		args = append(args, f.After.Date.String(), f.After.Date.String(), f.After.ID)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return scanExpenses(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

const listExpensesBetween = `SELECT ` + expenseColumns + ` FROM expenses
WHERE owner_id = ? AND date >= ? AND date <= ?
ORDER BY date ASC, id ASC`

// ListExpensesBetween returns every expense dated in [from, to], oldest first.
func (q *Queries) ListExpensesBetween(ctx context.Context, ownerID string, from, to core.Date) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, ownerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses between: %w", err)
	}
	return scanExpenses(rows)
}

const listDueTemplates = `SELECT ` + expenseColumns + ` FROM expenses
WHERE is_recurring = 1 AND next_due_date IS NOT NULL AND next_due_date <= ?
ORDER BY next_due_date ASC, id ASC`

// ListDueTemplates returns active templates of every owner due on or before asOf.
func (q *Queries) ListDueTemplates(ctx context.Context, asOf core.Date) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, listDueTemplates, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}
	return scanExpenses(rows)
}

const listUpcomingTemplates = `SELECT ` + expenseColumns + ` FROM expenses
WHERE owner_id = ? AND is_recurring = 1 AND next_due_date IS NOT NULL
	AND next_due_date >= ? AND next_due_date <= ?
ORDER BY next_due_date ASC, id ASC`

func (q *Queries) ListUpcomingTemplates(ctx context.Context, ownerID string, from, to core.Date) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, listUpcomingTemplates, ownerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list upcoming templates: %w", err)
	}
	return scanExpenses(rows)
}

const listTemplates = `SELECT ` + expenseColumns + ` FROM expenses
WHERE owner_id = ? AND is_recurring = 1
ORDER BY description ASC, id ASC`

// ListTemplates returns all recurring templates of an owner, paused ones included.
func (q *Queries) ListTemplates(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, listTemplates, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return scanExpenses(rows)
}

const listExpenseMonths = `SELECT DISTINCT substr(date, 1, 7) AS month FROM expenses
WHERE owner_id = ? ORDER BY month DESC`

// ListExpenseMonths returns every YYYY-MM with at least one expense, newest first.
func (q *Queries) ListExpenseMonths(ctx context.Context, ownerID string) ([]core.Month, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseMonths, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expense months: %w", err)
	}
	defer rows.Close()

	var months []core.Month
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan expense month: %w", err)
		}
		m, err := core.ParseMonth(s)
		if err != nil {
			return nil, fmt.Errorf("parse expense month %q: %w", s, err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense months: %w", err)
	}
	return months, nil
}
