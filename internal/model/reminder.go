package model

import "time"

// Reminder is an absolute alert instant attached to a task.
type Reminder struct {
	ID       uint      `gorm:"primaryKey"`
	TaskID   string    `gorm:"type:text;not null;uniqueIndex:idx_reminder_task_fire_at"`
	Position int       `gorm:"not null"`
	FireAt   time.Time `gorm:"not null;uniqueIndex:idx_reminder_task_fire_at"`
}

// RemindersAt builds reminder rows for the given instants, keeping their order.
func RemindersAt(times []time.Time) []Reminder {
	reminders := make([]Reminder, 0, len(times))
	for i, at := range times {
		reminders = append(reminders, Reminder{Position: i, FireAt: at})
	}
	return reminders
}
