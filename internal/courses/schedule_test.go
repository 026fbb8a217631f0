package courses

import (
	"errors"
	"testing"
	"time"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/types"
)

func TestMaterializeLessons(t *testing.T) {
	// Thursday; the first pattern day that qualifies is the following Sunday.
	startDate := time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	pattern := []types.WeeklySlot{
		{Day: time.Sunday, StartTime: "10:00", EndTime: "12:00"},
		{Day: time.Monday, StartTime: "14:00", EndTime: "16:00"},
	}

	lessons, err := MaterializeLessons(startDate, 3, pattern, now)
	if err != nil {
		t.Fatalf("MaterializeLessons: %v", err)
	}
	if len(lessons) != 3 {
		t.Fatalf("got %d lessons, want 3", len(lessons))
	}

	want := []struct{ start, end time.Time }{
		{time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC), time.Date(2025, 10, 12, 12, 0, 0, 0, time.UTC)},
		{time.Date(2025, 10, 13, 14, 0, 0, 0, time.UTC), time.Date(2025, 10, 13, 16, 0, 0, 0, time.UTC)},
		{time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC), time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)},
	}
	for i, w := range want {
		if !lessons[i].StartTime.Equal(w.start) || !lessons[i].EndTime.Equal(w.end) {
			t.Fatalf("lesson %d = %s-%s, want %s-%s", i,
				lessons[i].StartTime, lessons[i].EndTime, w.start, w.end)
		}
		if lessons[i].Status != types.LessonStatusScheduled {
			t.Fatalf("lesson %d status = %q, want scheduled", i, lessons[i].Status)
		}
		if lessons[i].Version != 1 {
			t.Fatalf("lesson %d version = %d, want 1", i, lessons[i].Version)
		}
	}
}

func TestMaterializeLessonsStartDateOnPatternDay(t *testing.T) {
	// A Sunday start must produce a lesson that very day.
	startDate := time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC)
	pattern := []types.WeeklySlot{{Day: time.Sunday, StartTime: "10:00", EndTime: "12:00"}}

	lessons, err := MaterializeLessons(startDate, 2, pattern, startDate)
	if err != nil {
		t.Fatalf("MaterializeLessons: %v", err)
	}
	if !lessons[0].StartTime.Equal(time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("first lesson starts %s, want the start date itself", lessons[0].StartTime)
	}
	if !lessons[1].StartTime.Equal(time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("second lesson starts %s, want one week later", lessons[1].StartTime)
	}
}

func TestMaterializeLessonsRejectsBadPatterns(t *testing.T) {
	startDate := time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)
	now := startDate

	cases := []struct {
		name    string
		count   int
		pattern []types.WeeklySlot
		code    string
	}{
		{"empty pattern", 3, nil, "empty_pattern"},
		{"zero lessons", 0, []types.WeeklySlot{{Day: time.Sunday, StartTime: "10:00", EndTime: "12:00"}}, "bad_lesson_count"},
		{"bad time format", 3, []types.WeeklySlot{{Day: time.Sunday, StartTime: "10am", EndTime: "12:00"}}, "bad_slot_time"},
		{"end before start", 3, []types.WeeklySlot{{Day: time.Sunday, StartTime: "12:00", EndTime: "10:00"}}, "bad_slot_interval"},
		{"bad weekday", 3, []types.WeeklySlot{{Day: 7, StartTime: "10:00", EndTime: "12:00"}}, "bad_slot_day"},
		{
			"overlapping slots same day", 3,
			[]types.WeeklySlot{
				{Day: time.Sunday, StartTime: "10:00", EndTime: "12:00"},
				{Day: time.Sunday, StartTime: "11:00", EndTime: "13:00"},
			},
			"pattern_collision",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MaterializeLessons(startDate, tc.count, tc.pattern, now)
			if err == nil {
				t.Fatalf("expected a validation error")
			}
			if !apierr.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) || apiErr.Code != tc.code {
				t.Fatalf("error code = %v, want %q", err, tc.code)
			}
		})
	}
}

func TestCheckCollisions(t *testing.T) {
	day := time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC)
	lesson := func(startHour, endHour int) *types.Lesson {
		return &types.Lesson{
			StartTime: day.Add(time.Duration(startHour) * time.Hour),
			EndTime:   day.Add(time.Duration(endHour) * time.Hour),
		}
	}

	existing := []*types.Lesson{lesson(10, 12)}

	// Back to back is allowed: intervals are half-open.
	if err := CheckCollisions(existing, []*types.Lesson{lesson(12, 14)}); err != nil {
		t.Fatalf("adjacent lessons rejected: %v", err)
	}

	err := CheckCollisions(existing, []*types.Lesson{lesson(11, 13)})
	if err == nil {
		t.Fatalf("overlapping lesson accepted")
	}
	if !apierr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Same clock interval on a different day never collides.
	nextDay := &types.Lesson{
		StartTime: day.AddDate(0, 0, 1).Add(10 * time.Hour),
		EndTime:   day.AddDate(0, 0, 1).Add(12 * time.Hour),
	}
	if err := CheckCollisions(existing, []*types.Lesson{nextDay}); err != nil {
		t.Fatalf("different-day lesson rejected: %v", err)
	}
}
