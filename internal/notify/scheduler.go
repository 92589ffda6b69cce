package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/reminder"
)

// AlertTitle is the title of every reminder alert.
const AlertTitle = "Task Reminder"

// Result is the outcome of scheduling one reminder.
type Result struct {
	At     time.Time
	Handle Handle
	Err    error
}

// Report summarises a ScheduleAll call.
type Report struct {
	Results []Result
	// Warning is set when nothing could be scheduled at all.
	Warning string
}

// Handles returns the handles of successfully scheduled alerts.
func (r Report) Handles() []Handle {
	var handles []Handle
	for _, res := range r.Results {
		if res.Err == nil {
			handles = append(handles, res.Handle)
		}
	}
	return handles
}

func (r Report) Scheduled() int { return len(r.Handles()) }

func (r Report) Failed() int { return len(r.Results) - r.Scheduled() }

func (r Report) String() string {
	return fmt.Sprintf("%d scheduled, %d failed", r.Scheduled(), r.Failed())
}

// Scheduler requests one alert per future reminder of a task.
type Scheduler struct {
	facility Facility
	log      *zap.Logger
	now      func() time.Time
}

func NewScheduler(facility Facility, log *zap.Logger) *Scheduler {
	return &Scheduler{facility: facility, log: log, now: time.Now}
}

// ScheduleAll schedules every reminder strictly after now. A failure on one
// reminder is recorded and the rest are still attempted.
func (s *Scheduler) ScheduleAll(ctx context.Context, task model.Task) Report {
	granted, err := s.facility.PermissionGranted(ctx)
	if err != nil {
		s.log.Warn("check notification permission", zap.Error(err))
		return Report{Warning: fmt.Sprintf("notification permission check failed: %v", err)}
	}
	if !granted {
		return Report{Warning: ErrPermissionDenied.Error()}
	}

	now := s.now()
	var report Report
	for _, r := range task.Reminders {
		if !r.FireAt.After(now) {
			continue
		}

		alert := Alert{
			Title:  AlertTitle,
			Body:   alertBody(task, r.FireAt),
			TaskID: task.ID,
			At:     r.FireAt,
		}
		handle, err := s.facility.Schedule(ctx, alert)
		if err != nil {
			s.log.Warn("schedule reminder",
				zap.String("task_id", task.ID),
				zap.Time("fire_at", r.FireAt),
				zap.Error(err))
		}
		report.Results = append(report.Results, Result{At: r.FireAt, Handle: handle, Err: err})
	}
	return report
}

func (s *Scheduler) Cancel(ctx context.Context, handle Handle) error {
	return s.facility.Cancel(ctx, handle)
}

func (s *Scheduler) CancelAll(ctx context.Context) error {
	return s.facility.CancelAll(ctx)
}

// alertBody phrases the countdown as seen at fire time. Without a due date
// the reminder itself is the deadline, so the alert reads "due now".
func alertBody(task model.Task, fireAt time.Time) string {
	due := fireAt
	if task.DueDate != nil {
		due = *task.DueDate
	}
	phrase := reminder.Describe(due, fireAt)
	return fmt.Sprintf("Task '%s' is %s", task.Title, phrase)
}
