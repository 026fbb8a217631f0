package materials

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

func newTestConsumers(t *testing.T) (*Consumers, *gorm.DB) {
	t.Helper()
	models, _ := Migration()
	db := testutil.DB(t, models...)
	log := testutil.Logger(t)
	pub := broker.NewMemoryPublisher()
	cons := NewConsumers(db, log, pub,
		repos.NewCourseRefRepo(db, log),
		repos.NewMaterialRepo(db, log),
		repos.NewMaterialFileRepo(db, log),
	)
	return cons, db
}

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func testCourse(version uint) types.Course {
	return types.Course{
		ID:              1,
		Title:           "Algebra I",
		StartDate:       time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC),
		NumberOfLessons: 3,
		Version:         version,
	}
}

func TestCourseProjectionLifecycle(t *testing.T) {
	cons, db := newTestConsumers(t)
	ctx := context.Background()

	created := types.CourseCreatedEvent{Course: testCourse(1)}
	if err := cons.handleCourseCreated(ctx, payload(t, created)); err != nil {
		t.Fatalf("handleCourseCreated: %v", err)
	}
	// At-least-once delivery: the same event again is fine.
	if err := cons.handleCourseCreated(ctx, payload(t, created)); err != nil {
		t.Fatalf("duplicate CourseCreated: %v", err)
	}

	// Version 3 before version 2 is a gap: no ack, no write.
	if err := cons.handleCourseUpdated(ctx, payload(t, testCourse(3))); !apierr.IsConflict(err) {
		t.Fatalf("gap delivery: %v", err)
	}
	if err := cons.handleCourseUpdated(ctx, payload(t, testCourse(2))); err != nil {
		t.Fatalf("in-order update: %v", err)
	}
	if err := cons.handleCourseUpdated(ctx, payload(t, testCourse(3))); err != nil {
		t.Fatalf("redelivered successor: %v", err)
	}

	var ref types.CourseRef
	if err := db.First(&ref, 1).Error; err != nil {
		t.Fatalf("load ref: %v", err)
	}
	if ref.Version != 3 {
		t.Fatalf("ref version = %d, want 3", ref.Version)
	}
}

func TestCourseUpdatedForUnknownCourse(t *testing.T) {
	cons, _ := newTestConsumers(t)
	err := cons.handleCourseUpdated(context.Background(), payload(t, testCourse(2)))
	if !apierr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCourseDeletedRemovesMaterialsAndFiles(t *testing.T) {
	cons, db := newTestConsumers(t)
	ctx := context.Background()

	if err := cons.handleCourseCreated(ctx, payload(t, types.CourseCreatedEvent{Course: testCourse(1)})); err != nil {
		t.Fatalf("seed projection: %v", err)
	}
	material := &types.Material{CourseID: 1, Title: "Week 1 slides", Version: 1}
	if err := db.Create(material).Error; err != nil {
		t.Fatalf("seed material: %v", err)
	}
	file := &types.MaterialFile{MaterialID: material.ID, FileName: "slides.pdf", StorageKey: "materials/1/slides.pdf"}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := cons.handleCourseDeleted(ctx, payload(t, types.DeletedEvent{ID: 1})); err != nil {
		t.Fatalf("handleCourseDeleted: %v", err)
	}

	for _, model := range []interface{}{&types.CourseRef{}, &types.Material{}, &types.MaterialFile{}} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count %T: %v", model, err)
		}
		if n != 0 {
			t.Fatalf("%T rows left after course delete: %d", model, n)
		}
	}
}
