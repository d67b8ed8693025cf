package handler

import (
	"errors"

	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/drivers/domain"
	"delivery-engine/internal/features/drivers/ports"

	"github.com/gofiber/fiber/v2"
)

// DriverHandler handles HTTP requests for driver operations.
type DriverHandler struct {
	drivers ports.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(drivers ports.DriverService) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// OnboardDriverRequest is the body for POST /drivers.
type OnboardDriverRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// SetOfflineRequest is the body for POST /drivers/:id/offline.
type SetOfflineRequest struct {
	Offline bool `json:"offline"`
}

// DriverResponse is a driver with its derived availability.
type DriverResponse struct {
	*domain.Driver
	Availability domain.Availability `json:"availability"`
}

// Onboard registers a new driver.
func (h *DriverHandler) Onboard(c *fiber.Ctx) error {
	var req OnboardDriverRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	driver, err := h.drivers.Onboard(c.UserContext(), req.ID, req.Name, req.Capacity)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(DriverResponse{Driver: driver, Availability: driver.Availability()})
}

// Get returns a driver with its derived availability and last known position.
func (h *DriverHandler) Get(c *fiber.Ctx) error {
	driver, err := h.drivers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(DriverResponse{Driver: driver, Availability: driver.Availability()})
}

// SetOffline toggles the driver's manual offline flag.
func (h *DriverHandler) SetOffline(c *fiber.Ctx) error {
	var req SetOfflineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	driver, err := h.drivers.SetManualOffline(c.UserContext(), c.Params("id"), req.Offline)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(DriverResponse{Driver: driver, Availability: driver.Availability()})
}

func (h *DriverHandler) errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrDriverNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrDriverBusy):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidCapacity):
		status = fiber.StatusBadRequest
	case errors.Is(err, store.ErrAlreadyExists):
		status = fiber.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}

// rayID extracts the request id set by the requestid middleware, tolerating
// its absence in tests.
func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
