package distance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/pkg/cache"
	"dispatch/pkg/domain"
)

// failingProvider always errors, used to exercise chain fallback.
type failingProvider struct{ name string }

func (f *failingProvider) Name() string { return f.name }
func (f *failingProvider) CalculateMatrix(ctx context.Context, locations []domain.Location, departure time.Time) (domain.DistanceMatrix, error) {
	return domain.DistanceMatrix{}, errors.New("provider unreachable")
}

func testLocations(t *testing.T) []domain.Location {
	t.Helper()
	a, err := domain.NewLocation(-33.4489, -70.6693)
	require.NoError(t, err)
	b, err := domain.NewLocation(-33.4372, -70.6506)
	require.NoError(t, err)
	return []domain.Location{a, b}
}

func TestService_FallsThroughChainOnFailure(t *testing.T) {
	svc := NewService([]Provider{&failingProvider{name: "external_api"}, NewGeodesicProvider(40)})

	matrix, err := svc.CalculateMatrix(context.Background(), testLocations(t), time.Time{}, "", false)
	require.NoError(t, err)
	assert.Equal(t, ProviderGeodesic, matrix.Provider)
}

func TestService_AllProvidersFail(t *testing.T) {
	svc := NewService([]Provider{&failingProvider{name: "a"}, &failingProvider{name: "b"}})

	_, err := svc.CalculateMatrix(context.Background(), testLocations(t), time.Time{}, "", false)
	require.Error(t, err)
}

func TestService_ForceProviderUnknownName(t *testing.T) {
	svc := NewService([]Provider{NewGeodesicProvider(40)})

	_, err := svc.CalculateMatrix(context.Background(), testLocations(t), time.Time{}, "nonexistent", false)
	require.Error(t, err)
}

func TestService_CacheHitAvoidsProviders(t *testing.T) {
	mem := cache.NewMemoryCache(cache.DefaultOptions())
	mc := cache.NewMatrixCache(nil, mem, time.Hour)
	svc := NewService([]Provider{NewGeodesicProvider(40)}, WithCache(mc))

	locations := testLocations(t)

	first, err := svc.CalculateMatrix(context.Background(), locations, time.Time{}, "", false)
	require.NoError(t, err)

	svc2 := NewService([]Provider{&failingProvider{name: "external_api"}}, WithCache(mc))
	second, err := svc2.CalculateMatrix(context.Background(), locations, time.Time{}, "", false)
	require.NoError(t, err)

	assert.Equal(t, first.Distances, second.Distances)
}

func TestService_CacheFingerprintIsOrderIndependent(t *testing.T) {
	mem := cache.NewMemoryCache(cache.DefaultOptions())
	mc := cache.NewMatrixCache(nil, mem, time.Hour)
	svc := NewService([]Provider{NewGeodesicProvider(40)}, WithCache(mc))

	locations := testLocations(t)
	reversed := []domain.Location{locations[1], locations[0]}

	_, err := svc.CalculateMatrix(context.Background(), locations, time.Time{}, "", false)
	require.NoError(t, err)

	svc2 := NewService([]Provider{&failingProvider{name: "x"}}, WithCache(mc))
	_, err = svc2.CalculateMatrix(context.Background(), reversed, time.Time{}, "", false)
	require.NoError(t, err, "reversed location order must hit the same cache entry")
}

func TestService_TrafficCapable(t *testing.T) {
	svc := NewService([]Provider{NewGeodesicProvider(40)})
	assert.False(t, svc.TrafficCapable())

	svc2 := NewService([]Provider{NewExternalProvider("key", "")})
	assert.True(t, svc2.TrafficCapable())
}

func TestService_RejectsEmptyInput(t *testing.T) {
	svc := NewService([]Provider{NewGeodesicProvider(40)})
	_, err := svc.CalculateMatrix(context.Background(), nil, time.Time{}, "", false)
	require.Error(t, err)
}
