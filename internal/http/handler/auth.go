package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"seepage/internal/http/middleware"
	"seepage/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AuthToken string `json:"authToken"`
}

// RegisterEditor creates an editor account from a JSON body.
func RegisterEditor(svc service.EditorService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body map[string]any
		if err := json.Unmarshal(c.Body(), &body); err != nil || body == nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		dto, err := svc.Register(c.UserContext(), body)
		if err != nil {
			return writeServiceError(c, err, "resource not found")
		}
		return c.Status(fiber.StatusCreated).JSON(dto)
	}
}

// Login exchanges email and password for a token.
func Login(svc service.EditorService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		token, err := svc.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err, "resource not found")
		}
		return c.JSON(tokenResponse{AuthToken: token})
	}
}

// RefreshToken issues a fresh token for the bearer.
func RefreshToken(svc service.EditorService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := svc.Refresh(c.UserContext(), middleware.BearerToken(c))
		if err != nil {
			return writeServiceError(c, err, "resource not found")
		}
		return c.JSON(tokenResponse{AuthToken: token})
	}
}
