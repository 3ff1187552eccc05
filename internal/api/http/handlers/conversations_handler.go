package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/api/dto"
	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/service"
)

// ConversationsHandler drives ticket analyses.
type ConversationsHandler struct {
	assistant *service.AssistantService
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(assistant *service.AssistantService) *ConversationsHandler {
	return &ConversationsHandler{assistant: assistant}
}

// Create POST /api/conversations.
func (h *ConversationsHandler) Create(c *fiber.Ctx) error {
	var req dto.StartConversationRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	state, err := h.assistant.StartConversation(selectInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": state})
}

// Get GET /api/conversations/:id.
func (h *ConversationsHandler) Get(c *fiber.Ctx) error {
	state, err := h.assistant.Conversation(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": state})
}

// Reset PUT /api/conversations/:id selects a new ticket or description.
func (h *ConversationsHandler) Reset(c *fiber.Ctx) error {
	var req dto.StartConversationRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	state, err := h.assistant.ResetConversation(c.Params("id"), selectInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": state})
}

// Delete DELETE /api/conversations/:id.
func (h *ConversationsHandler) Delete(c *fiber.Ctx) error {
	if err := h.assistant.EndConversation(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Analyze POST /api/conversations/:id/analyze.
func (h *ConversationsHandler) Analyze(c *fiber.Ctx) error {
	var req dto.AnalyzeRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.assistant.Analyze(c.UserContext(), auth.DeviceID(c), c.Params("id"), req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

// Reply POST /api/conversations/:id/replies.
func (h *ConversationsHandler) Reply(c *fiber.Ctx) error {
	var req dto.ReplyRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	ans, err := h.assistant.Reply(c.UserContext(), auth.DeviceID(c), c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ans})
}

// Background POST /api/conversations/:id/background.
func (h *ConversationsHandler) Background(c *fiber.Ctx) error {
	ans, err := h.assistant.Background(c.UserContext(), auth.DeviceID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ans})
}

func selectInput(req dto.StartConversationRequest) service.SelectInput {
	return service.SelectInput{TicketID: req.TicketID, Description: req.Description, Demo: req.Demo}
}
