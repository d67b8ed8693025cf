package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	driverdomain "delivery-engine/internal/features/drivers/domain"
	"delivery-engine/internal/features/tracking/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIngestor is a mock implementation of LocationIngestor.
type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context, sample domain.LocationSample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}

func setupApp(ingestor *MockIngestor) *fiber.App {
	app := fiber.New()
	h := NewLocationHandler(ingestor)
	app.Post("/drivers/:id/location", h.Ingest)
	return app
}

func postLocation(t *testing.T, app *fiber.App, driverID string, body LocationBody) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/drivers/"+driverID+"/location", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) IngestResponse {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out IngestResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestLocationHandler_Ingest(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		mockIngestor := new(MockIngestor)
		app := setupApp(mockIngestor)

		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(s domain.LocationSample) bool {
			return s.DriverID == "d1" && s.Coordinate.Lat == 25.0736
		})).Return(nil).Once()

		resp := postLocation(t, app, "d1", LocationBody{
			Lat: 25.0736, Lng: 55.1379, AccuracyM: 12,
			Timestamp: time.Now().UTC(),
		})

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.True(t, decodeResponse(t, resp).Accepted)
		mockIngestor.AssertExpectations(t)
	})

	t.Run("StaleDropped", func(t *testing.T) {
		mockIngestor := new(MockIngestor)
		app := setupApp(mockIngestor)

		mockIngestor.On("Ingest", mock.Anything, mock.Anything).
			Return(domain.ErrStaleSample).Once()

		resp := postLocation(t, app, "d1", LocationBody{
			Lat: 25.0736, Lng: 55.1379, Timestamp: time.Now().UTC(),
		})

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		body := decodeResponse(t, resp)
		assert.False(t, body.Accepted)
		assert.NotEmpty(t, body.Reason)
	})

	t.Run("LowAccuracyDropped", func(t *testing.T) {
		mockIngestor := new(MockIngestor)
		app := setupApp(mockIngestor)

		mockIngestor.On("Ingest", mock.Anything, mock.Anything).
			Return(domain.ErrLowAccuracy).Once()

		resp := postLocation(t, app, "d1", LocationBody{
			Lat: 25.0736, Lng: 55.1379, AccuracyM: 900,
			Timestamp: time.Now().UTC(),
		})

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.False(t, decodeResponse(t, resp).Accepted)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		mockIngestor := new(MockIngestor)
		app := setupApp(mockIngestor)

		mockIngestor.On("Ingest", mock.Anything, mock.Anything).
			Return(driverdomain.ErrDriverNotFound).Once()

		resp := postLocation(t, app, "ghost", LocationBody{
			Lat: 25.0736, Lng: 55.1379, Timestamp: time.Now().UTC(),
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("DefaultsTimestamp", func(t *testing.T) {
		mockIngestor := new(MockIngestor)
		app := setupApp(mockIngestor)

		mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(s domain.LocationSample) bool {
			return !s.Timestamp.IsZero()
		})).Return(nil).Once()

		resp := postLocation(t, app, "d1", LocationBody{Lat: 25.0736, Lng: 55.1379})
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		mockIngestor.AssertExpectations(t)
	})
}
