package model

import "time"

// TaskStatus is the workflow state of a task. Transitions are unconstrained.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task represents a single item owned by one user.
type Task struct {
	ID          string `gorm:"primaryKey;type:text"`
	OwnerID     string `gorm:"type:text;not null;index"`
	Title       string `gorm:"not null"`
	Description string
	Status      TaskStatus `gorm:"type:text;not null;default:pending"`
	DueDate     *time.Time
	Reminders   []Reminder `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime:false"` // stamped by the repository
}

// Overdue reports whether the due date has passed for an unfinished task.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != StatusCompleted && t.DueDate.Before(now)
}

// ReminderTimes returns the resolved reminder instants in stored order.
func (t Task) ReminderTimes() []time.Time {
	times := make([]time.Time, 0, len(t.Reminders))
	for _, r := range t.Reminders {
		times = append(times, r.FireAt)
	}
	return times
}
