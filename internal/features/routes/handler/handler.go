package handler

import (
	"context"
	"errors"

	"delivery-engine/internal/core/store"
	driverdomain "delivery-engine/internal/features/drivers/domain"
	"delivery-engine/internal/features/routes/domain"

	"github.com/gofiber/fiber/v2"
)

// RouteService is the inbound port consumed by this handler.
type RouteService interface {
	BuildRoute(ctx context.Context, driverID string) (*domain.Route, error)
}

// RouteHandler serves driver working routes.
type RouteHandler struct {
	routes RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes RouteService) *RouteHandler {
	return &RouteHandler{routes: routes}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id,omitempty"`
}

// Get returns the driver's current waypoint list.
func (h *RouteHandler) Get(c *fiber.Ctx) error {
	route, err := h.routes.BuildRoute(c.UserContext(), c.Params("id"))
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, driverdomain.ErrDriverNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, store.ErrUnavailable):
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	}
	return c.JSON(route)
}

func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
