package handler

import (
	"context"
	"errors"

	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/assignment/domain"
	driverdomain "delivery-engine/internal/features/drivers/domain"

	"github.com/gofiber/fiber/v2"
)

// AssignmentService is the inbound port consumed by this handler.
type AssignmentService interface {
	Create(ctx context.Context, pickup, delivery domain.Stop) (*domain.DeliveryRequest, error)
	Get(ctx context.Context, id string) (*domain.DeliveryRequest, error)
	CandidatesFor(ctx context.Context, requestID string) ([]driverdomain.Candidate, error)
	Assign(ctx context.Context, requestID, driverID string) (*domain.DeliveryRequest, error)
	MarkInProgress(ctx context.Context, requestID, driverID string) (*domain.DeliveryRequest, error)
	Complete(ctx context.Context, requestID string) (*domain.DeliveryRequest, error)
	Cancel(ctx context.Context, requestID string) (*domain.DeliveryRequest, error)
	Fail(ctx context.Context, requestID, reason string) (*domain.DeliveryRequest, error)
}

// RequestHandler handles HTTP requests for the delivery request lifecycle.
type RequestHandler struct {
	assignments AssignmentService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(assignments AssignmentService) *RequestHandler {
	return &RequestHandler{assignments: assignments}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// CreateRequestBody is the body for POST /requests.
type CreateRequestBody struct {
	Pickup   domain.Stop `json:"pickup"`
	Delivery domain.Stop `json:"delivery"`
}

// AssignBody is the body for POST /requests/:id/assign.
type AssignBody struct {
	DriverID string `json:"driver_id"`
}

// ProgressBody is the body for POST /requests/:id/progress.
type ProgressBody struct {
	DriverID string `json:"driver_id"`
}

// FailBody is the body for POST /requests/:id/fail.
type FailBody struct {
	Reason string `json:"reason"`
}

// Create takes in a new delivery request.
func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var body CreateRequestBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	request, err := h.assignments.Create(c.UserContext(), body.Pickup, body.Delivery)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

// Get returns a request by its tracking id (public tracking lookup).
func (h *RequestHandler) Get(c *fiber.Ctx) error {
	request, err := h.assignments.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(request)
}

// Candidates returns available drivers ranked by distance to the pickup.
func (h *RequestHandler) Candidates(c *fiber.Ctx) error {
	candidates, err := h.assignments.CandidatesFor(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"candidates": candidates})
}

// Assign claims the request for a driver.
func (h *RequestHandler) Assign(c *fiber.Ctx) error {
	var body AssignBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.DriverID == "" {
		return badRequest(c, "driver_id is required")
	}

	request, err := h.assignments.Assign(c.UserContext(), c.Params("id"), body.DriverID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(request)
}

// Progress marks the delivery as started by the driver.
func (h *RequestHandler) Progress(c *fiber.Ctx) error {
	var body ProgressBody
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	request, err := h.assignments.MarkInProgress(c.UserContext(), c.Params("id"), body.DriverID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(request)
}

// Complete closes the delivery.
func (h *RequestHandler) Complete(c *fiber.Ctx) error {
	request, err := h.assignments.Complete(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(request)
}

// Cancel aborts the delivery.
func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	request, err := h.assignments.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(request)
}

// Fail records a driver-reported failure.
func (h *RequestHandler) Fail(c *fiber.Ctx) error {
	var body FailBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	request, err := h.assignments.Fail(c.UserContext(), c.Params("id"), body.Reason)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(request)
}

func (h *RequestHandler) errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, driverdomain.ErrDriverNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, driverdomain.ErrDriverUnavailable):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidCoordinates):
		status = fiber.StatusBadRequest
	case errors.Is(err, store.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Message: message,
		RayID:   rayID(c),
	})
}

// rayID extracts the request id set by the requestid middleware, tolerating
// its absence in tests.
func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
