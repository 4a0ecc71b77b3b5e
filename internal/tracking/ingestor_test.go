package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationIngestor_RecordRejectsUnknownVehicle(t *testing.T) {
	repo := newFakeLocationRepository()
	ingestor := NewLocationIngestor(repo)

	_, err := ingestor.Record(context.Background(), 99, -33.45, -70.66, nil, nil, nil, time.Now())
	require.Error(t, err)
}

func TestLocationIngestor_RecordRejectsInvalidCoordinates(t *testing.T) {
	repo := newFakeLocationRepository(1)
	ingestor := NewLocationIngestor(repo)

	_, err := ingestor.Record(context.Background(), 1, 200, -70.66, nil, nil, nil, time.Now())
	require.Error(t, err)
}

func TestLocationIngestor_RecordAndCurrent(t *testing.T) {
	repo := newFakeLocationRepository(1)
	ingestor := NewLocationIngestor(repo)

	t1 := time.Now().Add(-time.Minute)
	t2 := time.Now()

	_, err := ingestor.Record(context.Background(), 1, -33.45, -70.66, nil, nil, nil, t1)
	require.NoError(t, err)
	_, err = ingestor.Record(context.Background(), 1, -33.46, -70.67, nil, nil, nil, t2)
	require.NoError(t, err)

	current, err := ingestor.Current(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, -33.46, current.Location.Latitude)
}

func TestLocationIngestor_HistoryCapsAtMaxLimit(t *testing.T) {
	repo := newFakeLocationRepository(1)
	ingestor := NewLocationIngestor(repo)

	base := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 1500; i++ {
		_, err := ingestor.Record(context.Background(), 1, -33.45, -70.66, nil, nil, nil, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	history, err := ingestor.History(context.Background(), 1, nil, nil, 5000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(history), maxHistoryLimit)
}

func TestLocationIngestor_NearbyFiltersByRadiusAndAge(t *testing.T) {
	repo := newFakeLocationRepository(1, 2, 3)
	ingestor := NewLocationIngestor(repo)

	now := time.Now()
	// vehicle 1: close, fresh
	_, err := ingestor.Record(context.Background(), 1, -33.45, -70.66, nil, nil, nil, now)
	require.NoError(t, err)
	// vehicle 2: far away, fresh
	_, err = ingestor.Record(context.Background(), 2, -34.60, -71.60, nil, nil, nil, now)
	require.NoError(t, err)
	// vehicle 3: close, but stale
	_, err = ingestor.Record(context.Background(), 3, -33.451, -70.661, nil, nil, nil, now.Add(-time.Hour))
	require.NoError(t, err)

	nearby, err := ingestor.Nearby(context.Background(), -33.45, -70.66, 5000, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, int64(1), nearby[0].VehicleID)
}

func TestLocationIngestor_CleanupRemovesOldSamples(t *testing.T) {
	repo := newFakeLocationRepository(1)
	ingestor := NewLocationIngestor(repo)

	old := time.Now().AddDate(0, 0, -100)
	recent := time.Now()
	_, err := ingestor.Record(context.Background(), 1, -33.45, -70.66, nil, nil, nil, old)
	require.NoError(t, err)
	_, err = ingestor.Record(context.Background(), 1, -33.45, -70.66, nil, nil, nil, recent)
	require.NoError(t, err)

	removed, err := ingestor.Cleanup(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
