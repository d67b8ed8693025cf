package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"delivery-engine/internal/core/events"
	driverdomain "delivery-engine/internal/features/drivers/domain"
	"delivery-engine/internal/features/tracking/domain"
	"delivery-engine/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// driverStream is the per-driver ingestion cursor. Samples for one driver are
// serialized on the stream mutex so the monotonicity check and the geofence
// evaluation see a consistent order.
type driverStream struct {
	mu           sync.Mutex
	lastAccepted time.Time
}

// Ingestor gates raw location samples and feeds the accepted ones into the
// driver registry and the geofence evaluator.
type Ingestor struct {
	mu      sync.Mutex
	streams map[string]*driverStream

	drivers        ports.PositionRecorder
	geofences      *Registry
	sink           events.Sink
	accuracyLimitM float64
	log            *zap.Logger
}

// NewIngestor creates the location ingestion pipeline. accuracyLimitM is the
// ceiling above which a sample is too coarse to drive geofence evaluation.
func NewIngestor(
	drivers ports.PositionRecorder,
	geofences *Registry,
	sink events.Sink,
	accuracyLimitM float64,
	log *zap.Logger,
) *Ingestor {
	if accuracyLimitM <= 0 {
		accuracyLimitM = 100
	}
	return &Ingestor{
		streams:        make(map[string]*driverStream),
		drivers:        drivers,
		geofences:      geofences,
		sink:           sink,
		accuracyLimitM: accuracyLimitM,
		log:            log,
	}
}

// Ingest processes one location sample.
//
// Samples at or before the driver's last accepted timestamp are dropped with
// ErrStaleSample and do not move the cursor. Samples above the accuracy
// ceiling advance the cursor and may refresh the driver's last known
// position, but never reach the geofence evaluator, so a coarse fix cannot
// fabricate a crossing. Accepted samples update the position and flip any
// boundaries they cross, emitting one event per crossing.
func (i *Ingestor) Ingest(ctx context.Context, sample domain.LocationSample) error {
	if !sample.Coordinate.Valid() {
		return fmt.Errorf("driver %s: invalid coordinate", sample.DriverID)
	}
	if _, err := i.drivers.Get(ctx, sample.DriverID); err != nil {
		return err
	}

	stream := i.stream(sample.DriverID)
	stream.mu.Lock()
	defer stream.mu.Unlock()

	if !sample.Timestamp.After(stream.lastAccepted) {
		i.log.Debug("stale sample dropped",
			zap.String("driver_id", sample.DriverID),
			zap.Time("sample_at", sample.Timestamp),
			zap.Time("cursor_at", stream.lastAccepted),
		)
		return fmt.Errorf("%w: driver %s", domain.ErrStaleSample, sample.DriverID)
	}
	stream.lastAccepted = sample.Timestamp

	if err := i.drivers.RecordPosition(ctx, sample.DriverID, toPosition(sample)); err != nil {
		return err
	}

	if sample.AccuracyM > i.accuracyLimitM {
		i.log.Debug("low accuracy sample, geofences skipped",
			zap.String("driver_id", sample.DriverID),
			zap.Float64("accuracy_m", sample.AccuracyM),
		)
		return fmt.Errorf("%w: driver %s accuracy %.0fm", domain.ErrLowAccuracy, sample.DriverID, sample.AccuracyM)
	}

	for _, crossing := range i.geofences.Evaluate(sample) {
		i.emitCrossing(ctx, crossing)
	}
	return nil
}

func (i *Ingestor) stream(driverID string) *driverStream {
	i.mu.Lock()
	defer i.mu.Unlock()

	s, ok := i.streams[driverID]
	if !ok {
		s = &driverStream{}
		i.streams[driverID] = s
	}
	return s
}

func (i *Ingestor) emitCrossing(ctx context.Context, crossing domain.Crossing) {
	eventType := events.TypeGeofenceEnter
	if !crossing.Entered {
		eventType = events.TypeGeofenceExit
	}

	err := i.sink.Publish(ctx, events.Event{
		Type:         eventType,
		DriverID:     crossing.Sample.DriverID,
		BoundaryID:   crossing.Boundary.ID,
		BoundaryKind: string(crossing.Boundary.Kind),
		RequestID:    crossing.Boundary.RequestID,
		Fix: &events.Fix{
			Lat:       crossing.Sample.Coordinate.Lat,
			Lng:       crossing.Sample.Coordinate.Lng,
			AccuracyM: crossing.Sample.AccuracyM,
			Timestamp: crossing.Sample.Timestamp,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		i.log.Warn("failed to publish geofence event",
			zap.String("driver_id", crossing.Sample.DriverID),
			zap.String("boundary_id", crossing.Boundary.ID),
			zap.Error(err),
		)
	}
}

func toPosition(sample domain.LocationSample) driverdomain.Position {
	return driverdomain.Position{
		Coordinate: sample.Coordinate,
		AccuracyM:  sample.AccuracyM,
		RecordedAt: sample.Timestamp,
		HeadingDeg: sample.HeadingDeg,
		SpeedMPS:   sample.SpeedMPS,
	}
}
