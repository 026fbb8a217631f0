package courses

import (
	"context"
	"testing"
	"time"

	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/testutil"
	"github.com/RK2301/classify-backend/internal/types"
)

func TestSweepAdvancesLessonStatuses(t *testing.T) {
	models, _ := Migration()
	db := testutil.DB(t, models...)
	log := testutil.Logger(t)
	pub := broker.NewMemoryPublisher()

	course := &types.Course{Title: "Algebra I", StartDate: time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}

	now := time.Date(2025, 10, 13, 15, 0, 0, 0, time.UTC)
	lessons := []*types.Lesson{
		// Ended yesterday but still marked scheduled.
		{CourseID: course.ID, StartTime: now.AddDate(0, 0, -1), EndTime: now.AddDate(0, 0, -1).Add(2 * time.Hour), Status: types.LessonStatusScheduled, Version: 1},
		// Running right now.
		{CourseID: course.ID, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), Status: types.LessonStatusScheduled, Version: 1},
		// Still in the future, must stay untouched.
		{CourseID: course.ID, StartTime: now.AddDate(0, 0, 1), EndTime: now.AddDate(0, 0, 1).Add(2 * time.Hour), Status: types.LessonStatusScheduled, Version: 1},
	}
	if err := db.Create(&lessons).Error; err != nil {
		t.Fatalf("seed lessons: %v", err)
	}

	sweeper := NewStatusSweeper(db, log, pub, repos.NewLessonRepo(db, log), time.Minute)
	sweeper.now = func() time.Time { return now }

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	assertLesson := func(id uint, status string, version uint) {
		t.Helper()
		var l types.Lesson
		if err := db.First(&l, id).Error; err != nil {
			t.Fatalf("load lesson %d: %v", id, err)
		}
		if l.Status != status || l.Version != version {
			t.Fatalf("lesson %d = %s v%d, want %s v%d", id, l.Status, l.Version, status, version)
		}
	}
	assertLesson(lessons[0].ID, types.LessonStatusCompleted, 2)
	assertLesson(lessons[1].ID, types.LessonStatusOngoing, 2)
	assertLesson(lessons[2].ID, types.LessonStatusScheduled, 1)

	if got := len(pub.ByExchange(broker.ExchangeLessonUpdated)); got != 2 {
		t.Fatalf("LessonUpdated events = %d, want 2", got)
	}

	// A second pass finds nothing stale and publishes nothing new.
	pub.Reset()
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if got := len(pub.Published()); got != 0 {
		t.Fatalf("idempotent pass published %d events", got)
	}
}
