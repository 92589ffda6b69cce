package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskmanager/internal/repository"
	"taskmanager/internal/service"
)

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: message})
}

// respondError maps domain errors to HTTP responses. Anything unknown is
// logged and reported as a bare server error.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var invalid validator.ValidationErrors
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "Invalid task ID")
	case errors.Is(err, repository.ErrTaskNotFound):
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Task not found")
	case errors.Is(err, repository.ErrNotOwner):
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, service.ErrMissingDueDate):
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", "A due date is required when notifications are present.")
	case errors.Is(err, service.ErrValidation):
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &invalid):
		return errorJSON(c, fiber.StatusBadRequest, "validation_error", invalid.Error())
	case errors.Is(err, service.ErrEmailTaken):
		return errorJSON(c, fiber.StatusBadRequest, "email_taken", "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_credentials", "Invalid credentials")
	}

	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("request_id", requestID(c)),
		zap.Error(err))
	return errorJSON(c, fiber.StatusInternalServerError, "server_error", "Server error")
}

// errorHandler renders errors that escape handlers, such as unknown routes.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return errorJSON(c, fe.Code, codeForStatus(fe.Code), fe.Message)
		}
		return respondError(c, log, err)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "server_error"
	}
}
