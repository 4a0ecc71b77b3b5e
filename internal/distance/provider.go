// Package distance orchestrates the pluggable travel-time provider chain
// (external routing API, local routing engine, geodesic fallback) behind
// a single cached Service.
package distance

import (
	"context"
	"time"

	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
)

// Provider computes a travel distance+duration matrix for an ordered set
// of locations.
type Provider interface {
	// Name identifies the provider for force_provider selection and logs.
	Name() string
	// CalculateMatrix returns a square matrix over locations. departure is
	// the instant travel should be evaluated for, used by traffic-aware
	// providers; implementations that ignore traffic may ignore it.
	CalculateMatrix(ctx context.Context, locations []domain.Location, departure time.Time) (domain.DistanceMatrix, error)
}

// TrafficAware is implemented by providers that can prefer
// duration-in-traffic over free-flow duration for a given departure
// instant.
type TrafficAware interface {
	SupportsTraffic() bool
}

// validateLocations enforces the shared precondition every provider
// applies before computing a matrix: empty input is invalid. Each
// provider answers single-location input with singleLocationMatrix.
func validateLocations(locations []domain.Location) error {
	if len(locations) == 0 {
		return apperror.InvalidInput("locations", "must not be empty")
	}
	return nil
}

// singleLocationMatrix returns the trivial 1x1 zero matrix for
// single-location input.
func singleLocationMatrix(provider string) domain.DistanceMatrix {
	m, _ := domain.NewDistanceMatrix("", [][]float64{{0}}, [][]float64{{0}}, provider, time.Time{})
	return m
}
