package health

import (
	"errors"

	"inventory-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves health reports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the health routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/health")
	group.Get("/", h.HandleHealth)
	group.Get("/:name", h.HandleCheck)
}

// HandleHealth runs all checks. It answers 503 when a required check fails.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	report := h.service.Run(c.UserContext())
	if !report.Healthy {
		l := logger.WithRayID(h.service.logger, c)
		l.Warn("Service unhealthy")
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleCheck runs one check by name.
func (h *Handler) HandleCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	name := c.Params("name")

	result, err := h.service.RunOne(c.UserContext(), name)
	if errors.Is(err, ErrUnknownCheck) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error(), "available": h.service.Names()})
	}
	if !result.OK {
		l.Info("Check failed", zap.String("check", name))
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}
	return c.JSON(result)
}
