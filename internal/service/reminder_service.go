package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/notify"
)

// AlertScheduler turns a task's reminders into pending alerts.
type AlertScheduler interface {
	ScheduleAll(ctx context.Context, task model.Task) notify.Report
	Cancel(ctx context.Context, handle notify.Handle) error
	CancelAll(ctx context.Context) error
}

// UpcomingStore finds tasks that still have alerts to fire.
type UpcomingStore interface {
	ListWithRemindersAfter(ctx context.Context, t time.Time) ([]model.Task, error)
}

// ReminderService remembers which alerts belong to which task so they can be
// replaced on update and dropped on delete. Handles live in memory only.
type ReminderService struct {
	scheduler AlertScheduler
	store     UpcomingStore
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	handles map[string][]notify.Handle
}

func NewReminderService(scheduler AlertScheduler, store UpcomingStore, log *zap.Logger) *ReminderService {
	return &ReminderService{
		scheduler: scheduler,
		store:     store,
		log:       log,
		now:       time.Now,
		handles:   make(map[string][]notify.Handle),
	}
}

// Reschedule cancels the task's previous alerts and schedules its current reminders.
func (s *ReminderService) Reschedule(ctx context.Context, task model.Task) notify.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(ctx, task.ID)
	report := s.scheduler.ScheduleAll(ctx, task)
	if handles := report.Handles(); len(handles) > 0 {
		s.handles[task.ID] = handles
	}
	return report
}

// Forget cancels every pending alert of the task.
func (s *ReminderService) Forget(ctx context.Context, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(ctx, taskID)
}

// Resync re-arms alerts for every task with reminders still ahead. It is
// meant to run once at startup, since handles do not survive a restart.
func (s *ReminderService) Resync(ctx context.Context) (int, error) {
	tasks, err := s.store.ListWithRemindersAfter(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("resync reminders: %w", err)
	}

	scheduled := 0
	for _, task := range tasks {
		report := s.Reschedule(ctx, task)
		scheduled += report.Scheduled()
		if report.Warning != "" {
			s.log.Warn("resync reminders", zap.String("warning", report.Warning))
			break
		}
	}
	s.log.Info("reminders resynced", zap.Int("tasks", len(tasks)), zap.Int("alerts", scheduled))
	return scheduled, nil
}

// Clear cancels all pending alerts.
func (s *ReminderService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles = make(map[string][]notify.Handle)
	return s.scheduler.CancelAll(ctx)
}

// Pending returns the handles held for a task.
func (s *ReminderService) Pending(taskID string) []notify.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Handle(nil), s.handles[taskID]...)
}

func (s *ReminderService) cancelLocked(ctx context.Context, taskID string) {
	for _, h := range s.handles[taskID] {
		if err := s.scheduler.Cancel(ctx, h); err != nil {
			s.log.Warn("cancel alert", zap.String("task_id", taskID), zap.String("handle", string(h)), zap.Error(err))
		}
	}
	delete(s.handles, taskID)
}
