package courses

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/testutil"
	"github.com/RK2301/classify-backend/internal/types"
)

func newTestConsumers(t *testing.T) (*Consumers, *gorm.DB, *broker.MemoryPublisher) {
	t.Helper()
	models, _ := Migration()
	db := testutil.DB(t, models...)
	log := testutil.Logger(t)
	pub := broker.NewMemoryPublisher()
	cons := NewConsumers(db, log, pub,
		repos.NewCourseRepo(db, log),
		repos.NewSubjectRefRepo(db, log),
		repos.NewUserRefRepo(db, log),
	)
	return cons, db, pub
}

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestHandleSubjectCreated(t *testing.T) {
	cons, db, _ := newTestConsumers(t)
	ctx := context.Background()

	subject := types.Subject{ID: 1, Name: "math", Version: 1}
	if err := cons.handleSubjectCreated(ctx, payload(t, subject)); err != nil {
		t.Fatalf("handleSubjectCreated: %v", err)
	}

	var ref types.SubjectRef
	if err := db.First(&ref, 1).Error; err != nil {
		t.Fatalf("projection row missing: %v", err)
	}
	if ref.Name != "math" || ref.Version != 1 {
		t.Fatalf("projection = %+v", ref)
	}

	// Redelivery of the same event is acknowledged silently.
	if err := cons.handleSubjectCreated(ctx, payload(t, subject)); err != nil {
		t.Fatalf("duplicate delivery not dropped: %v", err)
	}

	// A create whose version is ahead of the local row is a gap.
	ahead := types.Subject{ID: 1, Name: "math", Version: 3}
	if err := cons.handleSubjectCreated(ctx, payload(t, ahead)); !apierr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestHandleSubjectUpdatedVersionGate(t *testing.T) {
	cons, db, _ := newTestConsumers(t)
	ctx := context.Background()

	// Update before create: strict consumer, no implicit insert.
	err := cons.handleSubjectUpdated(ctx, payload(t, types.Subject{ID: 1, Name: "x", Version: 2}))
	if !apierr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := cons.handleSubjectCreated(ctx, payload(t, types.Subject{ID: 1, Name: "math", Version: 1})); err != nil {
		t.Fatalf("seed projection: %v", err)
	}

	// Out of order: version 3 before version 2 must not be acknowledged.
	err = cons.handleSubjectUpdated(ctx, payload(t, types.Subject{ID: 1, Name: "calculus", Version: 3}))
	if !apierr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var ref types.SubjectRef
	if err := db.First(&ref, 1).Error; err != nil {
		t.Fatalf("load projection: %v", err)
	}
	if ref.Name != "math" || ref.Version != 1 {
		t.Fatalf("gap delivery mutated projection: %+v", ref)
	}

	// The exact successor applies.
	if err := cons.handleSubjectUpdated(ctx, payload(t, types.Subject{ID: 1, Name: "algebra", Version: 2})); err != nil {
		t.Fatalf("in-order update: %v", err)
	}
	// Now the formerly conflicting version 3 is the successor.
	if err := cons.handleSubjectUpdated(ctx, payload(t, types.Subject{ID: 1, Name: "calculus", Version: 3})); err != nil {
		t.Fatalf("redelivered update: %v", err)
	}
	// And redelivering version 2 is a stale duplicate, dropped.
	if err := cons.handleSubjectUpdated(ctx, payload(t, types.Subject{ID: 1, Name: "algebra", Version: 2})); err != nil {
		t.Fatalf("stale duplicate not dropped: %v", err)
	}
	if err := db.First(&ref, 1).Error; err != nil {
		t.Fatalf("load projection: %v", err)
	}
	if ref.Name != "calculus" || ref.Version != 3 {
		t.Fatalf("projection = %+v, want calculus v3", ref)
	}
}

func TestHandleSubjectDeletedDetachesCourses(t *testing.T) {
	cons, db, pub := newTestConsumers(t)
	ctx := context.Background()

	if err := cons.handleSubjectCreated(ctx, payload(t, types.Subject{ID: 1, Name: "math", Version: 1})); err != nil {
		t.Fatalf("seed projection: %v", err)
	}
	subjectID := uint(1)
	course := &types.Course{
		Title:     "Algebra I",
		SubjectID: &subjectID,
		StartDate: time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC),
		Version:   4,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}

	if err := cons.handleSubjectDeleted(ctx, payload(t, types.DeletedEvent{ID: 1})); err != nil {
		t.Fatalf("handleSubjectDeleted: %v", err)
	}

	var reloaded types.Course
	if err := db.First(&reloaded, course.ID).Error; err != nil {
		t.Fatalf("load course: %v", err)
	}
	if reloaded.SubjectID != nil {
		t.Fatalf("course still references deleted subject")
	}
	if reloaded.Version != 5 {
		t.Fatalf("detach did not bump course version: %d", reloaded.Version)
	}

	var refs int64
	if err := db.Model(&types.SubjectRef{}).Count(&refs).Error; err != nil {
		t.Fatalf("count refs: %v", err)
	}
	if refs != 0 {
		t.Fatalf("subject projection not deleted")
	}

	// The detach is an authored course mutation, so downstream hears about it.
	updated := pub.ByExchange(broker.ExchangeCourseUpdated)
	if len(updated) != 1 {
		t.Fatalf("CourseUpdated events = %d, want 1", len(updated))
	}
	var republished types.Course
	if err := json.Unmarshal(updated[0].Data, &republished); err != nil {
		t.Fatalf("decode republished course: %v", err)
	}
	if republished.Version != 5 || republished.SubjectID != nil {
		t.Fatalf("republished course = %+v", republished)
	}
}

func TestHandleUserLifecycle(t *testing.T) {
	cons, db, _ := newTestConsumers(t)
	ctx := context.Background()

	user := types.User{ID: "300123456", FirstName: "A", LastName: "B", Email: "a@example.com", Role: types.RoleTeacher, Version: 1}
	if err := cons.handleUserCreated(ctx, payload(t, user)); err != nil {
		t.Fatalf("handleUserCreated: %v", err)
	}

	err := cons.handleUserUpdated(ctx, payload(t, types.User{ID: "999999999", Version: 2}))
	if !apierr.IsNotFound(err) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	user.Email = "b@example.com"
	user.Version = 2
	if err := cons.handleUserUpdated(ctx, payload(t, user)); err != nil {
		t.Fatalf("handleUserUpdated: %v", err)
	}
	var ref types.UserRef
	if err := db.First(&ref, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load projection: %v", err)
	}
	if ref.Email != "b@example.com" || ref.Version != 2 {
		t.Fatalf("projection = %+v", ref)
	}

	if err := cons.handleUserDeleted(ctx, payload(t, types.UserDeletedEvent{ID: user.ID})); err != nil {
		t.Fatalf("handleUserDeleted: %v", err)
	}
	var refs int64
	if err := db.Model(&types.UserRef{}).Count(&refs).Error; err != nil {
		t.Fatalf("count refs: %v", err)
	}
	if refs != 0 {
		t.Fatalf("user projection not deleted")
	}
}
