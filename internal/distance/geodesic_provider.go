package distance

import (
	"context"
	"time"

	"dispatch/internal/geo"
	"dispatch/pkg/domain"
)

const (
	// ProviderGeodesic names the fallback provider that always succeeds
	// for valid coordinates; its failure implies a bug.
	ProviderGeodesic = "geodesic"

	defaultAverageSpeedKMH = 40.0
)

// GeodesicProvider wraps the haversine calculation and estimates duration
// from a configured average speed. It never fails for valid Locations and
// is always last in the provider chain.
type GeodesicProvider struct {
	averageSpeedKMH float64
}

// NewGeodesicProvider builds a GeodesicProvider. averageSpeedKMH <= 0 falls
// back to the 40 km/h default.
func NewGeodesicProvider(averageSpeedKMH float64) *GeodesicProvider {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = defaultAverageSpeedKMH
	}
	return &GeodesicProvider{averageSpeedKMH: averageSpeedKMH}
}

func (p *GeodesicProvider) Name() string { return ProviderGeodesic }

// SupportsTraffic is always false: geodesic estimates are pure geometry.
func (p *GeodesicProvider) SupportsTraffic() bool { return false }

func (p *GeodesicProvider) CalculateMatrix(ctx context.Context, locations []domain.Location, _ time.Time) (domain.DistanceMatrix, error) {
	if err := validateLocations(locations); err != nil {
		return domain.DistanceMatrix{}, err
	}
	if len(locations) == 1 {
		return singleLocationMatrix(p.Name()), nil
	}

	n := len(locations)
	distances := make([][]float64, n)
	durations := make([][]float64, n)
	for i := range distances {
		distances[i] = make([]float64, n)
		durations[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			meters := geo.Haversine(locations[i], locations[j])
			seconds := (meters / 1000.0 / p.averageSpeedKMH) * 3600.0

			distances[i][j] = meters
			distances[j][i] = meters
			durations[i][j] = seconds
			durations[j][i] = seconds
		}
	}

	return domain.NewDistanceMatrix("", distances, durations, p.Name(), time.Time{})
}
