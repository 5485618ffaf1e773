package services

import (
	"context"
	"log/slog"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/metrics"
	"splitledger/internal/storage"
)

// Store is the transactional storage the services run on.
type Store interface {
	Queries() *storage.Queries
	WithTx(ctx context.Context, fn func(q *storage.Queries) error) error
}

// Publisher delivers ledger events. Implemented by *amqp.Client.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.LedgerEvent) error
}

// Deps are shared by every service. Publisher and Metrics may be nil; Now
// defaults to time.Now.
type Deps struct {
	Store     Store
	Publisher Publisher
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d Deps) today() core.Date {
	return core.DateOf(d.now())
}

// publish sends an event after a committed write. Failures are logged and
// counted, never returned: the write already succeeded.
func (d Deps) publish(ctx context.Context, t amqp.EventType, ownerID string, entityID int64, month string) {
	if d.Publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", log.FieldEventType, t)
		return
	}
	ev := amqp.NewLedgerEvent(t, ownerID, entityID, month, d.now())
	if err := d.Publisher.Publish(ctx, ev); err != nil {
		d.Metrics.PublishFailed()
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, t,
			log.FieldOwnerID, ownerID,
			log.FieldError, err)
	}
}
