package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/spark-support/internal/api/dto"
	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/service"
)

// TicketsHandler serves the bundled ticket dataset.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets?q=&limit=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets := h.service.Search(c.Query("q"), parseInt(c.Query("limit"), 0))
	items := make([]dto.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, dto.NewTicketSummary(t))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// UpdateTicket PATCH /api/tickets/:id. Unknown ids are not an error; the
// response reports updated=false.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	ticket, updated, err := h.service.UpdateTicket(c.UserContext(), auth.DeviceID(c), c.Params("id"), service.TicketUpdateInput{
		Status:   req.Status,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	resp := dto.TicketUpdateResponse{Updated: updated}
	if updated {
		detail := dto.NewTicketDetail(ticket)
		resp.Ticket = &detail
	}
	return c.JSON(fiber.Map{"data": resp})
}

// History GET /api/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	changes, err := h.service.History(c.UserContext(), c.Params("id"), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changes})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
