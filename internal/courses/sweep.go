package courses

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/types"
	"github.com/RK2301/classify-backend/internal/uow"
)

// StatusSweeper periodically moves lessons through
// scheduled -> ongoing -> completed as real time passes their intervals.
// Each pass is idempotent: only rows whose stored status differs from the
// derived one are touched, so a skipped or delayed pass just leaves more work
// for the next one, and two concurrent passes agree on the result.
type StatusSweeper struct {
	log        *logger.Logger
	uow        *uow.UnitOfWork
	lessonRepo repos.LessonRepo
	interval   time.Duration

	now func() time.Time
}

func NewStatusSweeper(db *gorm.DB, baseLog *logger.Logger, pub broker.Publisher, lessonRepo repos.LessonRepo, interval time.Duration) *StatusSweeper {
	sweepLog := baseLog.With("component", "LessonStatusSweeper")
	return &StatusSweeper{
		log:        sweepLog,
		uow:        uow.New(db, pub, sweepLog),
		lessonRepo: lessonRepo,
		interval:   interval,
		now:        time.Now,
	}
}

func (s *StatusSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					s.log.Warn("status sweep failed", "error", err)
				}
			}
		}
	}()
}

// Sweep runs one pass. Each lesson gets its own unit of work so one bad row
// does not hold back the rest, and the LessonUpdated event goes out only
// after that row's transaction committed.
func (s *StatusSweeper) Sweep(ctx context.Context) error {
	now := s.now()
	stale, err := s.lessonRepo.GetStatusStale(ctx, nil, now)
	if err != nil {
		return err
	}
	for _, candidate := range stale {
		err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
			// Re-read inside the transaction; a concurrent pass may have
			// already advanced this row.
			lesson, err := s.lessonRepo.GetByID(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if lesson == nil {
				return nil
			}
			derived := types.DeriveLessonStatus(lesson.StartTime, lesson.EndTime, now)
			changed := types.ApplyMutation(lesson, func() bool {
				if lesson.Status == derived {
					return false
				}
				lesson.Status = derived
				return true
			})
			if !changed {
				return nil
			}
			if err := s.lessonRepo.Save(ctx, tx, lesson); err != nil {
				return err
			}
			events.Queue(broker.ExchangeLessonUpdated, lesson)
			return nil
		})
		if err != nil {
			s.log.Warn("lesson status update failed", "lesson_id", candidate.ID, "error", err)
		}
	}
	if len(stale) > 0 {
		s.log.Info("lesson status sweep applied", "candidates", len(stale))
	}
	return nil
}
