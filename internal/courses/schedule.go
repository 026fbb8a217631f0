package courses

import (
	"fmt"
	"sort"
	"time"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/types"
)

const slotTimeLayout = "15:04"

type slot struct {
	day   time.Weekday
	start time.Duration
	end   time.Duration
}

func parsePattern(pattern []types.WeeklySlot) ([]slot, error) {
	if len(pattern) == 0 {
		return nil, apierr.NewValidation("empty_pattern", fmt.Errorf("weekly pattern must have at least one slot"))
	}
	slots := make([]slot, 0, len(pattern))
	for _, p := range pattern {
		if p.Day < time.Sunday || p.Day > time.Saturday {
			return nil, apierr.NewValidation("bad_slot_day", fmt.Errorf("invalid weekday %d", p.Day))
		}
		st, err := time.Parse(slotTimeLayout, p.StartTime)
		if err != nil {
			return nil, apierr.NewValidation("bad_slot_time", fmt.Errorf("start time %q: %w", p.StartTime, err))
		}
		et, err := time.Parse(slotTimeLayout, p.EndTime)
		if err != nil {
			return nil, apierr.NewValidation("bad_slot_time", fmt.Errorf("end time %q: %w", p.EndTime, err))
		}
		start := time.Duration(st.Hour())*time.Hour + time.Duration(st.Minute())*time.Minute
		end := time.Duration(et.Hour())*time.Hour + time.Duration(et.Minute())*time.Minute
		if end <= start {
			return nil, apierr.NewValidation("bad_slot_interval", fmt.Errorf("slot %s-%s must end after it starts", p.StartTime, p.EndTime))
		}
		slots = append(slots, slot{day: p.Day, start: start, end: end})
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].day != slots[j].day {
			return slots[i].day < slots[j].day
		}
		return slots[i].start < slots[j].start
	})
	for i := 1; i < len(slots); i++ {
		prev, cur := slots[i-1], slots[i]
		if prev.day == cur.day && cur.start < prev.end {
			return nil, apierr.NewValidation("pattern_collision",
				fmt.Errorf("pattern slots overlap on weekday %d", cur.day))
		}
	}
	return slots, nil
}

// MaterializeLessons expands a weekly recurrence pattern into concrete lesson
// rows: week by week from the course start date, instantiating every slot on
// or after that date, until numberOfLessons lessons exist. Each lesson's
// status is derived from now against its interval. The course's end date is
// the end time of the last returned lesson.
func MaterializeLessons(startDate time.Time, numberOfLessons int, pattern []types.WeeklySlot, now time.Time) ([]*types.Lesson, error) {
	if numberOfLessons <= 0 {
		return nil, apierr.NewValidation("bad_lesson_count", fmt.Errorf("numberOfLessons must be positive, got %d", numberOfLessons))
	}
	slots, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}

	day := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())
	lessons := make([]*types.Lesson, 0, numberOfLessons)
	for len(lessons) < numberOfLessons {
		for _, s := range slots {
			if s.day != day.Weekday() {
				continue
			}
			start := day.Add(s.start)
			end := day.Add(s.end)
			lessons = append(lessons, &types.Lesson{
				StartTime: start,
				EndTime:   end,
				Status:    types.DeriveLessonStatus(start, end, now),
				Version:   1,
			})
			if len(lessons) == numberOfLessons {
				break
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return lessons, nil
}

// CheckCollisions rejects any two lessons of the same course that overlap in
// [start, end) on the same calendar day. Both the new batch and the already
// persisted lessons participate, and the check runs before anything is
// written.
func CheckCollisions(existing, batch []*types.Lesson) error {
	all := make([]*types.Lesson, 0, len(existing)+len(batch))
	all = append(all, existing...)
	all = append(all, batch...)
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if !sameDay(prev.StartTime, cur.StartTime) {
			continue
		}
		if cur.StartTime.Before(prev.EndTime) {
			return apierr.NewValidation("lesson_collision",
				fmt.Errorf("lesson %s-%s overlaps lesson %s-%s",
					cur.StartTime.Format(time.RFC3339), cur.EndTime.Format(time.RFC3339),
					prev.StartTime.Format(time.RFC3339), prev.EndTime.Format(time.RFC3339)))
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
