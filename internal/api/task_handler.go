package api

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/service"
)

// ReminderReportHeader carries the scheduling outcome of a write.
const ReminderReportHeader = "X-Reminder-Report"

// TaskUseCase is the task logic behind the handlers.
type TaskUseCase interface {
	ListTasks(ctx context.Context, owner string) ([]model.Task, error)
	GetTask(ctx context.Context, owner, id string) (*model.Task, error)
	CreateTask(ctx context.Context, owner string, in service.TaskInput) (*model.Task, notify.Report, error)
	UpdateTask(ctx context.Context, owner, id string, patch service.TaskPatch) (*model.Task, notify.Report, error)
	DeleteTask(ctx context.Context, owner, id string) error
}

type TaskHandler struct {
	tasks    TaskUseCase
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewTaskHandler(tasks TaskUseCase, validate *validator.Validate, log *zap.Logger, now func() time.Time) *TaskHandler {
	return &TaskHandler{tasks: tasks, validate: validate, log: log, now: now}
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	tasks, err := h.tasks.ListTasks(c.UserContext(), ownerID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(newTaskListResponse(tasks, h.now()))
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.tasks.GetTask(c.UserContext(), ownerID(c), taskID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(newTaskResponse(*task, h.now()))
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, h.log, err)
	}

	task, report, err := h.tasks.CreateTask(c.UserContext(), ownerID(c), req.toInput())
	if err != nil {
		return respondError(c, h.log, err)
	}
	setReportHeaders(c, report)
	return c.Status(fiber.StatusCreated).JSON(newTaskResponse(*task, h.now()))
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, h.log, err)
	}

	task, report, err := h.tasks.UpdateTask(c.UserContext(), ownerID(c), taskID(c), req.toPatch())
	if err != nil {
		return respondError(c, h.log, err)
	}
	setReportHeaders(c, report)
	return c.JSON(newTaskResponse(*task, h.now()))
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	if err := h.tasks.DeleteTask(c.UserContext(), ownerID(c), taskID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(MessageResponse{Message: "Task removed"})
}

// taskID copies the route id out of fiber's reused request buffer.
func taskID(c *fiber.Ctx) string {
	return strings.Clone(c.Params("id"))
}

func setReportHeaders(c *fiber.Ctx, report notify.Report) {
	c.Set(ReminderReportHeader, report.String())
	if warning := reportWarning(report); warning != "" {
		c.Set(fiber.HeaderWarning, warning)
	}
}
