package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/testutil"
	"github.com/RK2301/classify-backend/internal/types"
)

func TestRunPublishesOnlyAfterCommit(t *testing.T) {
	db := testutil.DB(t, &types.Subject{})
	pub := broker.NewMemoryPublisher()
	u := New(db, pub, testutil.Logger(t))
	ctx := context.Background()

	err := u.Run(ctx, func(tx *gorm.DB, events *Events) error {
		subject := &types.Subject{Name: "math", Version: 1}
		if err := tx.Create(subject).Error; err != nil {
			return err
		}
		events.Queue(broker.ExchangeSubjectCreated, subject)
		// Nothing may be visible to the broker before commit.
		if got := len(pub.Published()); got != 0 {
			t.Fatalf("published %d events before commit", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	published := pub.Published()
	if len(published) != 1 {
		t.Fatalf("published %d events, want 1", len(published))
	}
	if published[0].Exchange != broker.ExchangeSubjectCreated {
		t.Fatalf("exchange = %s", published[0].Exchange)
	}
	if published[0].ID == "" || published[0].PublishedAt.IsZero() {
		t.Fatalf("envelope missing id or timestamp: %+v", published[0])
	}
}

func TestRunDiscardsEventsOnRollback(t *testing.T) {
	db := testutil.DB(t, &types.Subject{})
	pub := broker.NewMemoryPublisher()
	u := New(db, pub, testutil.Logger(t))

	boom := errors.New("boom")
	err := u.Run(context.Background(), func(tx *gorm.DB, events *Events) error {
		if err := tx.Create(&types.Subject{Name: "math", Version: 1}).Error; err != nil {
			return err
		}
		events.Queue(broker.ExchangeSubjectCreated, &types.Subject{})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}

	var n int64
	if err := db.Model(&types.Subject{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rolled-back write persisted")
	}
	if got := len(pub.Published()); got != 0 {
		t.Fatalf("rollback still published %d events", got)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, exchange broker.Exchange, payload interface{}) error {
	return fmt.Errorf("broker down")
}

func TestRunKeepsCommitWhenPublishFails(t *testing.T) {
	db := testutil.DB(t, &types.Subject{})
	u := New(db, failingPublisher{}, testutil.Logger(t))

	err := u.Run(context.Background(), func(tx *gorm.DB, events *Events) error {
		if err := tx.Create(&types.Subject{Name: "math", Version: 1}).Error; err != nil {
			return err
		}
		events.Queue(broker.ExchangeSubjectCreated, &types.Subject{})
		return nil
	})
	// The write is durable; a failed publish is logged, not surfaced.
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var n int64
	if err := db.Model(&types.Subject{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("committed row missing")
	}
}
