package handler

import (
	"context"
	"errors"
	"time"

	"delivery-engine/internal/core/geo"
	"delivery-engine/internal/core/store"
	driverdomain "delivery-engine/internal/features/drivers/domain"
	"delivery-engine/internal/features/tracking/domain"

	"github.com/gofiber/fiber/v2"
)

// LocationIngestor is the inbound port consumed by this handler.
type LocationIngestor interface {
	Ingest(ctx context.Context, sample domain.LocationSample) error
}

// LocationHandler handles HTTP location sample ingestion.
type LocationHandler struct {
	ingestor LocationIngestor
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(ingestor LocationIngestor) *LocationHandler {
	return &LocationHandler{ingestor: ingestor}
}

// LocationBody is the body for POST /drivers/:id/location.
type LocationBody struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AccuracyM  float64   `json:"accuracy_m"`
	Timestamp  time.Time `json:"timestamp"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	SpeedMPS   *float64  `json:"speed_mps,omitempty"`
}

// IngestResponse reports what happened to the sample. Dropped samples are a
// normal part of the stream, so they answer 202 too, just flagged.
type IngestResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	RayID    string `json:"ray_id,omitempty"`
}

// Ingest takes in one raw location sample for a driver.
func (h *LocationHandler) Ingest(c *fiber.Ctx) error {
	var body LocationBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(IngestResponse{
			Reason: "invalid request body",
			RayID:  rayID(c),
		})
	}
	if body.Timestamp.IsZero() {
		body.Timestamp = time.Now().UTC()
	}

	err := h.ingestor.Ingest(c.UserContext(), domain.LocationSample{
		DriverID:   c.Params("id"),
		Coordinate: geo.Coordinate{Lat: body.Lat, Lng: body.Lng},
		AccuracyM:  body.AccuracyM,
		Timestamp:  body.Timestamp,
		HeadingDeg: body.HeadingDeg,
		SpeedMPS:   body.SpeedMPS,
	})

	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(IngestResponse{Accepted: true})
	case errors.Is(err, domain.ErrStaleSample), errors.Is(err, domain.ErrLowAccuracy):
		return c.Status(fiber.StatusAccepted).JSON(IngestResponse{
			Accepted: false,
			Reason:   err.Error(),
		})
	case errors.Is(err, driverdomain.ErrDriverNotFound):
		return c.Status(fiber.StatusNotFound).JSON(IngestResponse{
			Reason: err.Error(),
			RayID:  rayID(c),
		})
	case errors.Is(err, store.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(IngestResponse{
			Reason: err.Error(),
			RayID:  rayID(c),
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(IngestResponse{
			Reason: err.Error(),
			RayID:  rayID(c),
		})
	}
}

func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
