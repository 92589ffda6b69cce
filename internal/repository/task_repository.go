package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskmanager/internal/model"
)

var (
	// ErrInvalidID is returned for ids that are not UUIDs. No query is issued.
	ErrInvalidID = errors.New("invalid task id")
	// ErrTaskNotFound is returned when no task has the given id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotOwner is returned when the task exists but belongs to someone else.
	ErrNotOwner = errors.New("task belongs to another user")
)

// TaskRepository stores tasks and their reminders.
type TaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, now: time.Now}
}

// ValidateID checks the id shape without touching the database.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func remindersInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, owner string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Reminders", remindersInOrder).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Insert assigns the id and timestamps and stores the task with its reminders.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	now := r.now().UTC()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now
	setReminderPositions(task)

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID loads a task regardless of owner.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	return findTask(r.db.WithContext(ctx), id)
}

// Update loads the task, checks ownership, lets apply mutate it and stores
// the result. Reminders are replaced wholesale with whatever apply leaves.
func (r *TaskRepository) Update(ctx context.Context, id, owner string, apply func(*model.Task) error) (*model.Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var updated *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findOwnedTask(tx, id, owner)
		if err != nil {
			return err
		}
		if err := apply(task); err != nil {
			return err
		}

		task.UpdatedAt = r.now().UTC()
		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if err := tx.Where("task_id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
			return fmt.Errorf("clear reminders: %w", err)
		}
		setReminderPositions(task)
		if len(task.Reminders) > 0 {
			if err := tx.Create(&task.Reminders).Error; err != nil {
				return fmt.Errorf("store reminders: %w", err)
			}
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByID removes the owner's task and its reminders.
func (r *TaskRepository) DeleteByID(ctx context.Context, id, owner string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findOwnedTask(tx, id, owner); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
			return fmt.Errorf("delete reminders: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

// ListWithRemindersAfter returns tasks holding at least one reminder after t.
func (r *TaskRepository) ListWithRemindersAfter(ctx context.Context, t time.Time) ([]model.Task, error) {
	db := r.db.WithContext(ctx)
	upcoming := db.Model(&model.Reminder{}).Select("task_id").Where("fire_at > ?", t.UTC())

	var tasks []model.Task
	if err := db.Preload("Reminders", remindersInOrder).
		Where("id IN (?)", upcoming).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list upcoming reminders: %w", err)
	}
	return tasks, nil
}

func findTask(db *gorm.DB, id string) (*model.Task, error) {
	var task model.Task
	err := db.Preload("Reminders", remindersInOrder).First(&task, "id = ?", id).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrTaskNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

func findOwnedTask(db *gorm.DB, id, owner string) (*model.Task, error) {
	task, err := findTask(db, id)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != owner {
		return nil, ErrNotOwner
	}
	return task, nil
}

func setReminderPositions(task *model.Task) {
	for i := range task.Reminders {
		task.Reminders[i].ID = 0
		task.Reminders[i].TaskID = task.ID
		task.Reminders[i].Position = i
		task.Reminders[i].FireAt = task.Reminders[i].FireAt.UTC()
	}
}
