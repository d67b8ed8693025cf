package service

import (
	"context"
	"testing"
	"time"

	"delivery-engine/internal/core/geo"
	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/drivers/adapters"
	"delivery-engine/internal/features/drivers/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *Service {
	t.Helper()
	repo := adapters.NewStoreDriverRepository(store.NewMemoryAdapter())
	return NewService(repo, 1, zap.NewNop())
}

func TestService_Onboard(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.Onboard(ctx, "d1", "Ana", 0)
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, 1, d.Capacity) // default capacity applied

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityAvailable, got.Availability())
}

func TestService_Onboard_GeneratedID(t *testing.T) {
	svc := newService(t)

	d, err := svc.Onboard(context.Background(), "", "Luis", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 2, d.Capacity)
}

func TestService_Get_NotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDriverNotFound)
}

func TestService_SetManualOffline(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, "d1", "Ana", 1)
	require.NoError(t, err)

	d, err := svc.SetManualOffline(ctx, "d1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityOffline, d.Availability())

	d, err = svc.SetManualOffline(ctx, "d1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityAvailable, d.Availability())
}

// TestService_SetManualOffline_RejectedWhileBusy verifies that a driver with
// an active assignment cannot go offline, and that the rejection leaves state
// untouched.
func TestService_SetManualOffline_RejectedWhileBusy(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, "d1", "Ana", 1)
	require.NoError(t, err)
	require.NoError(t, svc.IncrementActive(ctx, "d1"))

	_, err = svc.SetManualOffline(ctx, "d1", true)
	assert.ErrorIs(t, err, domain.ErrDriverBusy)

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, got.ManualOffline)
	assert.Equal(t, 1, got.ActiveCount)
}

func TestService_IncrementActive_AtCapacity(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, "d1", "Ana", 1)
	require.NoError(t, err)

	require.NoError(t, svc.IncrementActive(ctx, "d1"))
	assert.ErrorIs(t, svc.IncrementActive(ctx, "d1"), domain.ErrDriverUnavailable)

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ActiveCount)
}

func TestService_DecrementActive_FloorsAtZero(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, "d1", "Ana", 1)
	require.NoError(t, err)

	require.NoError(t, svc.DecrementActive(ctx, "d1"))

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ActiveCount)
}

func TestService_RecordPosition_KeepsFreshest(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, "d1", "Ana", 1)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, svc.RecordPosition(ctx, "d1", domain.Position{
		Coordinate: geo.Coordinate{Lat: 25.0736, Lng: 55.1379},
		RecordedAt: base.Add(100 * time.Second),
	}))

	// An older fix must not overwrite the stored one.
	require.NoError(t, svc.RecordPosition(ctx, "d1", domain.Position{
		Coordinate: geo.Coordinate{Lat: 0, Lng: 0},
		RecordedAt: base.Add(50 * time.Second),
	}))

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got.LastPosition)
	assert.Equal(t, 25.0736, got.LastPosition.Coordinate.Lat)
	assert.Equal(t, base.Add(100*time.Second), got.LastPosition.RecordedAt)
}

// TestService_CandidatesFor verifies nearest-first ordering with active-count
// and id tie-breaks, and exclusion of busy/offline drivers.
func TestService_CandidatesFor(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	pickup := geo.Coordinate{Lat: 25.1972, Lng: 55.2744}

	near := geo.Coordinate{Lat: 25.19, Lng: 55.27}
	far := geo.Coordinate{Lat: 25.07, Lng: 55.13}

	for _, tc := range []struct {
		id  string
		pos geo.Coordinate
	}{
		{"far", far},
		{"near", near},
	} {
		_, err := svc.Onboard(ctx, tc.id, tc.id, 1)
		require.NoError(t, err)
		require.NoError(t, svc.RecordPosition(ctx, tc.id, domain.Position{
			Coordinate: tc.pos,
			RecordedAt: time.Now(),
		}))
	}

	// Busy driver must not appear.
	_, err := svc.Onboard(ctx, "busy", "busy", 1)
	require.NoError(t, err)
	require.NoError(t, svc.IncrementActive(ctx, "busy"))

	// Offline driver must not appear.
	_, err = svc.Onboard(ctx, "offline", "offline", 1)
	require.NoError(t, err)
	_, err = svc.SetManualOffline(ctx, "offline", true)
	require.NoError(t, err)

	candidates, err := svc.CandidatesFor(ctx, pickup)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "near", candidates[0].Driver.ID)
	assert.Equal(t, "far", candidates[1].Driver.ID)
	assert.Less(t, candidates[0].DistanceM, candidates[1].DistanceM)
}

// TestService_CandidatesFor_Ties verifies deterministic ordering when
// distances are equal: lowest active count first, then lexicographic id.
func TestService_CandidatesFor_Ties(t *testing.T) {
	repo := adapters.NewStoreDriverRepository(store.NewMemoryAdapter())
	svc := NewService(repo, 2, zap.NewNop())
	ctx := context.Background()

	pickup := geo.Coordinate{Lat: 10, Lng: 10}
	same := geo.Coordinate{Lat: 10.01, Lng: 10.01}

	for _, id := range []string{"b", "a", "c"} {
		_, err := svc.Onboard(ctx, id, id, 2)
		require.NoError(t, err)
		require.NoError(t, svc.RecordPosition(ctx, id, domain.Position{
			Coordinate: same,
			RecordedAt: time.Now(),
		}))
	}
	// "c" carries one active assignment but stays under capacity.
	require.NoError(t, svc.IncrementActive(ctx, "c"))

	candidates, err := svc.CandidatesFor(ctx, pickup)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "a", candidates[0].Driver.ID)
	assert.Equal(t, "b", candidates[1].Driver.ID)
	assert.Equal(t, "c", candidates[2].Driver.ID)
}

// TestService_CandidatesFor_NoPositionSortsLast verifies that a driver with
// no known fix is still a candidate, ranked after positioned drivers.
func TestService_CandidatesFor_NoPositionSortsLast(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Onboard(ctx, "nofix", "nofix", 1)
	require.NoError(t, err)

	_, err = svc.Onboard(ctx, "fixed", "fixed", 1)
	require.NoError(t, err)
	require.NoError(t, svc.RecordPosition(ctx, "fixed", domain.Position{
		Coordinate: geo.Coordinate{Lat: 1, Lng: 1},
		RecordedAt: time.Now(),
	}))

	candidates, err := svc.CandidatesFor(ctx, geo.Coordinate{Lat: 1, Lng: 1})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "fixed", candidates[0].Driver.ID)
	assert.Equal(t, "nofix", candidates[1].Driver.ID)
}
