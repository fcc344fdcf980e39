package monitor

import (
	"errors"

	"inventory-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the monitor.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the monitor routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/monitor")
	group.Get("/status", h.HandleStatus)
	group.Get("/missing", h.HandleMissing)
	group.Post("/run", h.HandleRun)
	group.Post("/report", h.HandleReport)
}

// HandleStatus returns the scheduler and last-run state.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// HandleMissing lists entities currently missing, longest outage first.
func (h *Handler) HandleMissing(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	entries, err := h.service.Missing(c.UserContext())
	if err != nil {
		l.Error("Failed to list missing entities", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": len(entries), "missing": entries})
}

// HandleRun triggers a reconciliation pass and waits for its summary.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering reconciliation run")

	summary, err := h.service.RunOnce(c.UserContext())
	if errors.Is(err, ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Reconciliation run failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error(), "summary": summary})
	}
	return c.JSON(summary)
}

// HandleReport sends the daily report now.
func (h *Handler) HandleReport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.SendDailyReport(c.UserContext())
	if err != nil {
		l.Error("Daily report failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error(), "report": report})
	}
	return c.JSON(report)
}
