package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/storage"
)

const owner = "owner-1"

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingPublisher keeps every published event and can be told to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	deps      Deps
	clock     *fakeClock
	pub       *recordingPublisher
	repo      *storage.SQLiteRepository
	expenses  *ExpenseService
	recurring *RecurringService
	split     *SplitConfigService
	settle    *SettlementService
	category  *CategoryService
	analytics *AnalyticsService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	clock := &fakeClock{now: now}
	pub := &recordingPublisher{}
	deps := Deps{Store: repo, Publisher: pub, Now: clock.Now}
	limits := core.DefaultLimits()

	return &testEnv{
		deps:      deps,
		clock:     clock,
		pub:       pub,
		repo:      repo,
		expenses:  NewExpenseService(deps, limits, DefaultPaging()),
		recurring: NewRecurringService(deps, limits),
		split:     NewSplitConfigService(deps),
		settle:    NewSettlementService(deps, limits),
		category:  NewCategoryService(deps, nil),
		analytics: NewAnalyticsService(deps),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) add(t *testing.T, amount string, date core.Date, paidFrom core.PaidFrom) core.Expense {
	t.Helper()
	created, err := e.expenses.Create(context.Background(), owner, NewExpense{
		Amount:      dec(amount),
		Description: "item " + amount,
		Date:        date,
		PaidFrom:    paidFrom,
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", amount, err)
	}
	return created
}

func (e *testEnv) addTemplate(t *testing.T, amount string, date core.Date, freq core.Frequency) core.Expense {
	t.Helper()
	created, err := e.expenses.Create(context.Background(), owner, NewExpense{
		Amount:      dec(amount),
		Description: "rent",
		Date:        date,
		PaidFrom:    core.PaidFromJoint,
		Frequency:   freq,
	})
	if err != nil {
		t.Fatalf("Create template: %v", err)
	}
	return created
}
