package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/reminder"
)

var (
	// ErrValidation is the parent of every input error.
	ErrValidation      = errors.New("validation failed")
	ErrTitleRequired   = fmt.Errorf("%w: title is required", ErrValidation)
	ErrMissingDueDate  = fmt.Errorf("%w: due date is required when reminders are set", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidReminder = fmt.Errorf("%w: invalid reminder", ErrValidation)
)

// ReminderInput is a reminder as the client sends it. Type is empty for a
// plain absolute time.
type ReminderInput struct {
	Type string
	Time *time.Time
}

// TaskInput carries the fields of a create request.
type TaskInput struct {
	Title       string
	Description string
	Status      model.TaskStatus
	DueDate     *time.Time
	Reminders   []ReminderInput
}

// TaskPatch carries an update request. Nil fields keep their previous value,
// DueDateSet with a nil DueDate clears it, and Reminders always replace the
// stored ones.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	DueDateSet  bool
	DueDate     *time.Time
	Reminders   []ReminderInput
}

// ValidateCreate builds a task ready for insertion.
func ValidateCreate(owner string, in TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}

	due := normalizeDue(in.DueDate)
	reminders, err := resolveReminders(due, in.Reminders)
	if err != nil {
		return nil, err
	}

	return &model.Task{
		OwnerID:     owner,
		Title:       title,
		Description: in.Description,
		Status:      status,
		DueDate:     due,
		Reminders:   reminders,
	}, nil
}

// ApplyPatch merges p into task. The task is left untouched on error.
func ApplyPatch(task *model.Task, p TaskPatch) error {
	next := *task

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return ErrTitleRequired
		}
		next.Title = title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("%w %q", ErrInvalidStatus, *p.Status)
		}
		next.Status = *p.Status
	}
	if p.DueDateSet {
		next.DueDate = normalizeDue(p.DueDate)
	}

	reminders, err := resolveReminders(next.DueDate, p.Reminders)
	if err != nil {
		return err
	}
	next.Reminders = reminders

	*task = next
	return nil
}

func resolveReminders(due *time.Time, inputs []ReminderInput) ([]model.Reminder, error) {
	specs, err := toSpecs(inputs)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, nil
	}
	if due == nil {
		return nil, ErrMissingDueDate
	}

	times, err := reminder.Resolve(due, specs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReminder, err)
	}
	return model.RemindersAt(times), nil
}

// toSpecs drops entries carrying neither a type nor a time.
func toSpecs(inputs []ReminderInput) ([]reminder.Spec, error) {
	specs := make([]reminder.Spec, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Type) == "" && in.Time == nil {
			continue
		}
		kind, err := reminder.ParseKind(in.Type)
		if err != nil {
			return nil, fmt.Errorf("%w at %d: %v", ErrInvalidReminder, i, err)
		}
		if kind != reminder.KindCustom {
			specs = append(specs, reminder.Spec{Kind: kind})
			continue
		}
		if in.Time == nil {
			return nil, fmt.Errorf("%w at %d: custom reminder needs a time", ErrInvalidReminder, i)
		}
		specs = append(specs, reminder.Custom(*in.Time))
	}
	return specs, nil
}

func normalizeDue(due *time.Time) *time.Time {
	if due == nil {
		return nil
	}
	t := reminder.Normalize(*due)
	return &t
}
