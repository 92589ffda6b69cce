package api

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthUseCase registers and logs in users.
type AuthUseCase interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	auth     AuthUseCase
	validate *validator.Validate
	log      *zap.Logger
}

func NewAuthHandler(auth AuthUseCase, validate *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, validate: validate, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	req, err := h.credentials(c)
	if err != nil {
		return err
	}
	token, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(TokenResponse{Token: token})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := h.credentials(c)
	if err != nil {
		return err
	}
	token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(TokenResponse{Token: token})
}

func (h *AuthHandler) credentials(c *fiber.Ctx) (CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return req, errBadBody
	}
	if err := h.validate.Struct(req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
	}
	return req, nil
}

var errBadBody = fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
