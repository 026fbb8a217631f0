package subjects

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/testutil"
	"github.com/RK2301/classify-backend/internal/types"
)

func newTestService(t *testing.T) (Service, *broker.MemoryPublisher) {
	t.Helper()
	models, _ := Migration()
	db := testutil.DB(t, models...)
	log := testutil.Logger(t)
	pub := broker.NewMemoryPublisher()
	return NewService(db, log, pub, repos.NewSubjectRepo(db, log)), pub
}

func TestSubjectLifecycle(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	subject, err := svc.CreateSubject(ctx, "math", "numbers and proofs")
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if subject.Version != 1 {
		t.Fatalf("new subject version = %d", subject.Version)
	}

	created := pub.ByExchange(broker.ExchangeSubjectCreated)
	if len(created) != 1 {
		t.Fatalf("SubjectCreated events = %d", len(created))
	}
	var snapshot types.Subject
	if err := json.Unmarshal(created[0].Data, &snapshot); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if snapshot.ID != subject.ID || snapshot.Name != "math" {
		t.Fatalf("event snapshot = %+v", snapshot)
	}

	if _, err := svc.CreateSubject(ctx, "math", ""); !apierr.IsValidation(err) {
		t.Fatalf("duplicate name: %v", err)
	}

	name := "mathematics"
	subject, err = svc.UpdateSubject(ctx, subject.ID, types.SubjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateSubject: %v", err)
	}
	if subject.Version != 2 {
		t.Fatalf("updated subject version = %d", subject.Version)
	}
	if len(pub.ByExchange(broker.ExchangeSubjectUpdated)) != 1 {
		t.Fatalf("SubjectUpdated not published")
	}

	// Patching to the current value is a no-op: no bump, no event.
	pub.Reset()
	subject, err = svc.UpdateSubject(ctx, subject.ID, types.SubjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("no-op UpdateSubject: %v", err)
	}
	if subject.Version != 2 || len(pub.Published()) != 0 {
		t.Fatalf("no-op update bumped version or published: v%d, %d events", subject.Version, len(pub.Published()))
	}

	if err := svc.DeleteSubject(ctx, subject.ID); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	deleted := pub.ByExchange(broker.ExchangeSubjectDeleted)
	if len(deleted) != 1 {
		t.Fatalf("SubjectDeleted events = %d", len(deleted))
	}
	var ev types.DeletedEvent
	if err := json.Unmarshal(deleted[0].Data, &ev); err != nil {
		t.Fatalf("decode delete event: %v", err)
	}
	if ev.ID != subject.ID {
		t.Fatalf("delete event id = %d", ev.ID)
	}

	if err := svc.DeleteSubject(ctx, subject.ID); !apierr.IsNotFound(err) {
		t.Fatalf("double delete: %v", err)
	}
}
