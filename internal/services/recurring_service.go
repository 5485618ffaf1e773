package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

// maxUpcomingDays bounds the look-ahead window of Upcoming.
const maxUpcomingDays = 366

// RecurringService expands recurring templates into dated ledger entries.
// Nothing runs on a timer: a template is due when its next due date is on or
// before today, and generation happens only when asked for.
type RecurringService struct {
	deps   Deps
	limits core.Limits
}

func NewRecurringService(deps Deps, limits core.Limits) *RecurringService {
	return &RecurringService{deps: deps, limits: limits}
}

// UpcomingTemplate is an active template due inside a look-ahead window.
type UpcomingTemplate struct {
	Template     core.Expense
	DaysUntilDue int
}

// getTemplate loads an owned, non-generated recurring template. Anything
// else is reported as not found.
func getTemplate(ctx context.Context, q *storage.Queries, ownerID string, id int64) (core.Expense, error) {
	e, err := q.GetExpense(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Expense{}, core.NotFound("recurring template", id)
		}
		return core.Expense{}, err
	}
	if !e.IsRecurring || e.IsAutoGenerated {
		return core.Expense{}, core.NotFound("recurring template", id)
	}
	return e, nil
}

// Generate creates one auto-generated instance of the template dated on,
// or on the template's next due date, or today, in that order of preference.
// The template then advances one interval from the date actually used. Both
// writes share a transaction.
func (s *RecurringService) Generate(ctx context.Context, ownerID string, templateID int64, on *core.Date) (core.Expense, core.Expense, error) {
	var instance, template core.Expense
	now := s.deps.now()

	err := s.deps.Store.WithTx(ctx, func(q *storage.Queries) error {
		t, err := getTemplate(ctx, q, ownerID, templateID)
		if err != nil {
			return err
		}

		date := core.DateOf(now)
		switch {
		case on != nil:
			if err := s.limits.ValidateDate(*on, core.DateOf(now)); err != nil {
				return err
			}
			date = *on
		case t.NextDueDate != nil:
			date = *t.NextDueDate
		}

		instance, err = q.CreateExpense(ctx, core.Expense{
			OwnerID:         t.OwnerID,
			Amount:          t.Amount,
			Description:     t.Description,
			Date:            date,
			PaidFrom:        t.PaidFrom,
			CategoryID:      t.CategoryID,
			Currency:        t.Currency,
			Notes:           t.Notes,
			IsAutoGenerated: true,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("create instance: %w", err)
		}

		next := t.Frequency.Next(date)
		t.NextDueDate = &next
		t.UpdatedAt = now
		if err := q.SetNextDueDate(ctx, t); err != nil {
			return fmt.Errorf("advance template: %w", err)
		}
		template = t
		return nil
	})
	if err != nil {
		return core.Expense{}, core.Expense{}, err
	}

	slog.InfoContext(ctx, "Generated expense from recurring template",
		log.FieldOwnerID, ownerID,
		log.FieldTemplateID, templateID,
		log.FieldExpenseID, instance.ID,
		log.FieldAmount, core.FormatAmount(instance.Amount),
		log.FieldDueDate, template.NextDueDate.String())
	s.deps.Metrics.RecurringOp(log.OpGenerate)
	s.deps.publish(ctx, amqp.RecurringGenerated, ownerID, instance.ID, core.MonthOf(instance.Date.Time).String())

	return instance, template, nil
}

// Pause clears the next due date so the template is never due.
func (s *RecurringService) Pause(ctx context.Context, ownerID string, templateID int64) (core.Expense, error) {
	return s.moveDueDate(ctx, ownerID, templateID, log.OpPause, amqp.RecurringPaused,
		func(t core.Expense) (*core.Date, error) {
			return nil, nil
		})
}

// Resume schedules the template one interval after today.
func (s *RecurringService) Resume(ctx context.Context, ownerID string, templateID int64) (core.Expense, error) {
	return s.moveDueDate(ctx, ownerID, templateID, log.OpResume, amqp.RecurringResumed,
		func(t core.Expense) (*core.Date, error) {
			next := t.Frequency.Next(s.deps.today())
			return &next, nil
		})
}

// Skip advances the next due date by one interval from its current value
// without creating an expense. Paused templates cannot be skipped.
func (s *RecurringService) Skip(ctx context.Context, ownerID string, templateID int64) (core.Expense, error) {
	return s.moveDueDate(ctx, ownerID, templateID, log.OpSkip, amqp.RecurringSkipped,
		func(t core.Expense) (*core.Date, error) {
			if t.NextDueDate == nil {
				return nil, core.Invalid("nextDueDate", "template is paused")
			}
			next := t.Frequency.Next(*t.NextDueDate)
			return &next, nil
		})
}

func (s *RecurringService) moveDueDate(ctx context.Context, ownerID string, templateID int64, op string,
	event amqp.EventType, next func(core.Expense) (*core.Date, error)) (core.Expense, error) {
	var template core.Expense
	err := s.deps.Store.WithTx(ctx, func(q *storage.Queries) error {
		t, err := getTemplate(ctx, q, ownerID, templateID)
		if err != nil {
			return err
		}
		due, err := next(t)
		if err != nil {
			return err
		}
		t.NextDueDate = due
		t.UpdatedAt = s.deps.now()
		if err := q.SetNextDueDate(ctx, t); err != nil {
			return err
		}
		template = t
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	dueStr := ""
	if template.NextDueDate != nil {
		dueStr = template.NextDueDate.String()
	}
	slog.InfoContext(ctx, "Recurring template rescheduled",
		log.FieldOperation, op,
		log.FieldOwnerID, ownerID,
		log.FieldTemplateID, templateID,
		log.FieldDueDate, dueStr)
	s.deps.Metrics.RecurringOp(op)
	s.deps.publish(ctx, event, ownerID, templateID, "")
	return template, nil
}

// Upcoming lists active templates due within [today, today+days], soonest first.
func (s *RecurringService) Upcoming(ctx context.Context, ownerID string, days int) ([]UpcomingTemplate, error) {
	if days < 0 || days > maxUpcomingDays {
		return nil, core.Invalid("days", "must be between 0 and %d", maxUpcomingDays)
	}
	today := s.deps.today()
	templates, err := s.deps.Store.Queries().ListUpcomingTemplates(ctx, ownerID, today, today.AddDays(days))
	if err != nil {
		return nil, err
	}

	out := make([]UpcomingTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, UpcomingTemplate{
			Template:     t,
			DaysUntilDue: daysBetween(today, *t.NextDueDate),
		})
	}
	return out, nil
}

// Templates lists every recurring template of the owner, paused ones included.
func (s *RecurringService) Templates(ctx context.Context, ownerID string) ([]core.Expense, error) {
	return s.deps.Store.Queries().ListTemplates(ctx, ownerID)
}

// Due lists active templates of every owner due on or before asOf.
func (s *RecurringService) Due(ctx context.Context, asOf core.Date) ([]core.Expense, error) {
	return s.deps.Store.Queries().ListDueTemplates(ctx, asOf)
}

// ProcessDue generates each template due on or before asOf exactly once,
// dated on its due date. Failures are logged and skipped.
func (s *RecurringService) ProcessDue(ctx context.Context, asOf core.Date) (int, error) {
	due, err := s.Due(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list due templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing due recurring templates",
		log.FieldCount, len(due),
		"as_of", asOf.String())

	generated := 0
	for _, t := range due {
		if err := ctx.Err(); err != nil {
			return generated, err
		}
		if _, _, err := s.Generate(ctx, t.OwnerID, t.ID, nil); err != nil {
			slog.ErrorContext(ctx, "Failed to generate from recurring template",
				log.FieldOwnerID, t.OwnerID,
				log.FieldTemplateID, t.ID,
				log.FieldError, err)
			continue
		}
		generated++
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"generated", generated,
		"total_due", len(due))
	return generated, nil
}

func daysBetween(from, to core.Date) int {
	return int(to.Sub(from.Time).Hours() / 24)
}
