package uow

import (
	"context"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/logger"
)

// Events collects the envelopes a unit of work intends to publish. Nothing
// leaves the process until the surrounding transaction has committed.
type Events struct {
	pending []pendingEvent
}

type pendingEvent struct {
	exchange broker.Exchange
	payload  interface{}
}

func (e *Events) Queue(exchange broker.Exchange, payload interface{}) {
	e.pending = append(e.pending, pendingEvent{exchange: exchange, payload: payload})
}

// UnitOfWork runs one business operation: every write inside a single
// database transaction, with queued events published only after the commit
// resolves. A rollback discards the queue, so no event ever advertises state
// that was not durably written.
type UnitOfWork struct {
	db  *gorm.DB
	pub broker.Publisher
	log *logger.Logger
}

func New(db *gorm.DB, pub broker.Publisher, baseLog *logger.Logger) *UnitOfWork {
	return &UnitOfWork{
		db:  db,
		pub: pub,
		log: baseLog.With("component", "UnitOfWork"),
	}
}

func (u *UnitOfWork) Run(ctx context.Context, fn func(tx *gorm.DB, events *Events) error) error {
	events := &Events{}
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, events)
	})
	if err != nil {
		return err
	}
	for _, ev := range events.pending {
		if pubErr := u.pub.Publish(ctx, ev.exchange, ev.payload); pubErr != nil {
			// The local write is already durable. There is no compensating
			// rollback for a failed publish; downstream catches up on the
			// next event for the entity or through operator replay.
			u.log.Error("publish after commit failed", "exchange", ev.exchange, "error", pubErr)
		}
	}
	return nil
}
