package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/api/dto"
	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/service"
)

// AuthHandler handles device enrollment endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// EnrollDevice POST /auth/devices.
func (h *AuthHandler) EnrollDevice(c *fiber.Ctx) error {
	var req dto.EnrollDeviceRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	device, token, err := h.auth.EnrollDevice(c.UserContext(), req.DeviceID, req.Label, req.Secret)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.EnrollDeviceResponse{
		DeviceID:   device.ID,
		Label:      device.Label,
		EnrolledAt: device.EnrolledAt,
		Token:      token.Token,
		ExpiresAt:  token.ExpiresAt,
	}})
}

// Me GET /auth/devices/me returns the enrolled device behind the token.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	device, err := h.auth.Device(c.UserContext(), auth.DeviceID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": device})
}
