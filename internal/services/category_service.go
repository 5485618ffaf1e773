package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/amqp"
	"splitledger/internal/cache"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// CategoryService manages expense categories and their monthly budgets.
// Category lists are cached per owner and dropped on every write.
type CategoryService struct {
	deps  Deps
	cache cache.Cache[[]core.Category]
}

func NewCategoryService(deps Deps, c cache.Cache[[]core.Category]) *CategoryService {
	if c == nil {
		c = cache.NewLRUCache[[]core.Category](1024, 5*time.Minute)
	}
	return &CategoryService{deps: deps, cache: c}
}

// CategoryInput creates a category. A nil budget means no budget.
type CategoryInput struct {
	Name          string
	Color         string
	MonthlyBudget *decimal.Decimal
}

type CategoryPatch struct {
	Name  *string
	Color *string
}

// CategoryBudget pairs what was spent in a category during a month with
// its budget, if any.
type CategoryBudget struct {
	Category core.Category
	Spent    decimal.Decimal
	Budget   *decimal.Decimal
}

func validateColor(c string) error {
	if c != "" && !colorPattern.MatchString(c) {
		return core.Invalid("color", "must be a hex color like #4caf50")
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, ownerID string, in CategoryInput) (core.Category, error) {
	c := core.Category{
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(in.Name),
		Color:         strings.TrimSpace(in.Color),
		MonthlyBudget: in.MonthlyBudget,
		CreatedAt:     s.deps.now(),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := validateColor(c.Color); err != nil {
		return core.Category{}, err
	}

	created, err := s.deps.Store.Queries().CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, ownerID, created.ID, log.OpCreate)
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, ownerID string, id int64) (core.Category, error) {
	return s.deps.Store.Queries().GetCategory(ctx, ownerID, id)
}

// List returns the owner's categories ordered by name.
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	if cached, ok := s.cache.Get(ownerID); ok {
		return cached, nil
	}
	items, err := s.deps.Store.Queries().ListCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ownerID, items)
	return items, nil
}

func (s *CategoryService) Update(ctx context.Context, ownerID string, id int64, patch CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := s.deps.Store.WithTx(ctx, func(q *storage.Queries) error {
		c, err := q.GetCategory(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Color != nil {
			c.Color = strings.TrimSpace(*patch.Color)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := validateColor(c.Color); err != nil {
			return err
		}
		if err := q.UpdateCategory(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, ownerID, id, log.OpUpdate)
	return updated, nil
}

// Delete removes the category. Its expenses stay in the ledger uncategorized.
func (s *CategoryService) Delete(ctx context.Context, ownerID string, id int64) error {
	if err := s.deps.Store.Queries().DeleteCategory(ctx, ownerID, id); err != nil {
		return err
	}
	s.changed(ctx, ownerID, id, log.OpDelete)
	return nil
}

// SetBudget stores the monthly budget of a category. Nil clears it.
func (s *CategoryService) SetBudget(ctx context.Context, ownerID string, id int64, budget *decimal.Decimal) (core.Category, error) {
	if budget != nil && budget.IsNegative() {
		return core.Category{}, core.Invalid("monthlyBudget", "must be zero or greater")
	}
	q := s.deps.Store.Queries()
	if err := q.SetCategoryBudget(ctx, ownerID, id, budget); err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, ownerID, id, log.OpUpdate)
	return q.GetCategory(ctx, ownerID, id)
}

// CategoriesWithBudgets reports, for every category of the owner, what was
// spent in month next to its budget. No thresholds are applied.
func (s *CategoryService) CategoriesWithBudgets(ctx context.Context, ownerID string, month core.Month) ([]CategoryBudget, error) {
	categories, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.deps.Store.Queries().ListExpensesBetween(ctx, ownerID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}

	spent := spentByCategory(expenses)
	out := make([]CategoryBudget, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryBudget{
			Category: c,
			Spent:    core.RoundMoney(spent[c.ID]),
			Budget:   c.MonthlyBudget,
		})
	}
	return out, nil
}

func spentByCategory(expenses []core.Expense) map[int64]decimal.Decimal {
	spent := make(map[int64]decimal.Decimal)
	for _, e := range expenses {
		if e.CategoryID == nil {
			continue
		}
		spent[*e.CategoryID] = spent[*e.CategoryID].Add(e.Amount)
	}
	return spent
}

func (s *CategoryService) changed(ctx context.Context, ownerID string, id int64, op string) {
	s.cache.Delete(ownerID)
	slog.InfoContext(ctx, "Category changed",
		log.FieldOperation, op,
		log.FieldOwnerID, ownerID,
		log.FieldCategoryID, id)
	s.deps.publish(ctx, amqp.CategoryChanged, ownerID, id, "")
}
