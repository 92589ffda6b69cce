package service

import (
	"context"

	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/repository"
)

// TaskStore is the storage the task operations need. Every method except
// Insert rejects malformed ids before querying.
type TaskStore interface {
	ListByOwner(ctx context.Context, owner string) ([]model.Task, error)
	Insert(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, id, owner string, apply func(*model.Task) error) (*model.Task, error)
	DeleteByID(ctx context.Context, id, owner string) error
}

// ReminderScheduler arms and disarms alerts for stored tasks.
type ReminderScheduler interface {
	Reschedule(ctx context.Context, task model.Task) notify.Report
	Forget(ctx context.Context, taskID string)
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store     TaskStore
	reminders ReminderScheduler
	log       *zap.Logger
}

func NewTaskService(store TaskStore, reminders ReminderScheduler, log *zap.Logger) *TaskService {
	return &TaskService{store: store, reminders: reminders, log: log}
}

func (s *TaskService) ListTasks(ctx context.Context, owner string) ([]model.Task, error) {
	return s.store.ListByOwner(ctx, owner)
}

// GetTask returns the task if owner may read it.
func (s *TaskService) GetTask(ctx context.Context, owner, id string) (*model.Task, error) {
	task, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != owner {
		return nil, repository.ErrNotOwner
	}
	return task, nil
}

// CreateTask validates and stores a task, then schedules its reminders.
func (s *TaskService) CreateTask(ctx context.Context, owner string, in TaskInput) (*model.Task, notify.Report, error) {
	task, err := ValidateCreate(owner, in)
	if err != nil {
		return nil, notify.Report{}, err
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return nil, notify.Report{}, err
	}

	report := s.reminders.Reschedule(ctx, *task)
	s.log.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("owner", owner),
		zap.Int("reminders", len(task.Reminders)),
		zap.Stringer("alerts", report))
	return task, report, nil
}

// UpdateTask merges the patch into the stored task and re-arms its reminders.
func (s *TaskService) UpdateTask(ctx context.Context, owner, id string, patch TaskPatch) (*model.Task, notify.Report, error) {
	task, err := s.store.Update(ctx, id, owner, func(t *model.Task) error {
		return ApplyPatch(t, patch)
	})
	if err != nil {
		return nil, notify.Report{}, err
	}

	report := s.reminders.Reschedule(ctx, *task)
	s.log.Info("task updated",
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)),
		zap.Stringer("alerts", report))
	return task, report, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteByID(ctx, id, owner); err != nil {
		return err
	}
	s.reminders.Forget(ctx, id)
	s.log.Info("task deleted", zap.String("task_id", id))
	return nil
}
