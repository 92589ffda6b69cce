package api

import (
	"bytes"
	"encoding/json"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/reminder"
	"taskmanager/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// NullableTime tells an explicit null apart from an omitted field.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

type NotificationRequest struct {
	Type string     `json:"type"`
	Time *time.Time `json:"time"`
}

type CreateTaskRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        string                `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	DueDate       NullableTime          `json:"dueDate"`
	Notifications []NotificationRequest `json:"notifications"`
}

type UpdateTaskRequest struct {
	Title         *string               `json:"title"`
	Description   *string               `json:"description"`
	Status        *string               `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	DueDate       NullableTime          `json:"dueDate"`
	Notifications []NotificationRequest `json:"notifications"`
}

func (r CreateTaskRequest) toInput() service.TaskInput {
	return service.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      model.TaskStatus(r.Status),
		DueDate:     r.DueDate.Value,
		Reminders:   toReminderInputs(r.Notifications),
	}
}

func (r UpdateTaskRequest) toPatch() service.TaskPatch {
	patch := service.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDateSet:  r.DueDate.Set,
		DueDate:     r.DueDate.Value,
		Reminders:   toReminderInputs(r.Notifications),
	}
	if r.Status != nil {
		status := model.TaskStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}

func toReminderInputs(in []NotificationRequest) []service.ReminderInput {
	out := make([]service.ReminderInput, 0, len(in))
	for _, n := range in {
		out = append(out, service.ReminderInput{Type: n.Type, Time: n.Time})
	}
	return out
}

type NotificationResponse struct {
	Time time.Time `json:"time"`
}

type TaskResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Status        model.TaskStatus       `json:"status"`
	DueDate       *time.Time             `json:"dueDate"`
	Notifications []NotificationResponse `json:"notifications"`
	Overdue       bool                   `json:"overdue"`
	DueText       string                 `json:"dueText,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func newTaskResponse(task model.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:            task.ID,
		Title:         task.Title,
		Description:   task.Description,
		Status:        task.Status,
		DueDate:       task.DueDate,
		Notifications: make([]NotificationResponse, 0, len(task.Reminders)),
		Overdue:       task.Overdue(now),
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
	if task.DueDate != nil {
		resp.DueText = reminder.Describe(*task.DueDate, now)
	}
	for _, at := range task.ReminderTimes() {
		resp.Notifications = append(resp.Notifications, NotificationResponse{Time: at})
	}
	return resp
}

func newTaskListResponse(tasks []model.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, newTaskResponse(task, now))
	}
	return out
}

// reportWarning returns the Warning header value for report, if any.
func reportWarning(report notify.Report) string {
	switch {
	case report.Warning != "":
		return `199 - "` + report.Warning + `"`
	case report.Failed() > 0:
		return `199 - "some reminders could not be scheduled"`
	}
	return ""
}
