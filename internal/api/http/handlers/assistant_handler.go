package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/api/dto"
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/service"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// AssistantHandler serves the stateless assistant calls.
type AssistantHandler struct {
	assistant *service.AssistantService
	translate *service.TranslateService
	upgrade   *service.UpgradeService
}

// NewAssistantHandler constructs handler.
func NewAssistantHandler(assistant *service.AssistantService, translate *service.TranslateService, upgrade *service.UpgradeService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, translate: translate, upgrade: upgrade}
}

// Chat POST /api/chat.
func (h *AssistantHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	ans, err := h.assistant.ChatHome(c.UserContext(), req.Question, req.Messages())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ans})
}

// Translate POST /api/translate.
func (h *AssistantHandler) Translate(c *fiber.Ctx) error {
	var req dto.TranslateRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.translate.Translate(c.UserContext(), req.Subject, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

// Priority POST /api/priority.
func (h *AssistantHandler) Priority(c *fiber.Ctx) error {
	var req dto.PriorityRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	out, err := h.assistant.PredictPriority(c.UserContext(), service.PriorityInput{
		TicketID:    req.TicketID,
		Description: req.Description,
		Product:     req.Product,
		SupportType: req.SupportType,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": out})
}

// UpgradePath POST /api/upgrade-path.
func (h *AssistantHandler) UpgradePath(c *fiber.Ctx) error {
	var req dto.UpgradePathRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	ans, err := h.upgrade.Recommend(c.UserContext(), service.UpgradeInput{From: req.From, To: req.To, Addon: req.Addon})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ans})
}

// DemoTicket GET /api/demo-ticket.
func (h *AssistantHandler) DemoTicket(c *fiber.Ctx) error {
	detail := ticketPtr(h.assistant.DemoTicket())
	if detail == nil {
		return apperrors.NewNotFound("demo ticket", nil)
	}
	return c.JSON(fiber.Map{"data": detail})
}

func ticketPtr(t domain.Ticket, ok bool) *dto.TicketDetail {
	if !ok {
		return nil
	}
	detail := dto.NewTicketDetail(t)
	return &detail
}
