package domain

import (
	"math"
	"time"

	"dispatch/pkg/apperror"
)

// InfiniteDuration marks a cell the provider could not route between.
const InfiniteDuration = math.MaxFloat64

// DistanceMatrix is a cached N×N travel-cost matrix between an ordered
// set of locations. Square with a zero diagonal.
type DistanceMatrix struct {
	CacheKey  string
	Distances [][]float64 // meters
	Durations [][]float64 // seconds
	Provider  string
	ExpiresAt time.Time
}

// NewDistanceMatrix validates squareness and the zero diagonal before
// constructing.
func NewDistanceMatrix(cacheKey string, distances, durations [][]float64, provider string, expiresAt time.Time) (DistanceMatrix, error) {
	n := len(distances)
	if n == 0 || len(durations) != n {
		return DistanceMatrix{}, apperror.InvalidInput("distances", "distance and duration matrices must be non-empty and equal size")
	}
	for i := 0; i < n; i++ {
		if len(distances[i]) != n || len(durations[i]) != n {
			return DistanceMatrix{}, apperror.InvalidInput("distances", "matrix must be square")
		}
		if distances[i][i] != 0 || durations[i][i] != 0 {
			return DistanceMatrix{}, apperror.InvalidInput("distances", "diagonal must be zero")
		}
	}
	return DistanceMatrix{
		CacheKey:  cacheKey,
		Distances: distances,
		Durations: durations,
		Provider:  provider,
		ExpiresAt: expiresAt,
	}, nil
}

// Expired reports whether the matrix's TTL has elapsed as of now.
func (m DistanceMatrix) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// Size returns the matrix's dimension N.
func (m DistanceMatrix) Size() int {
	return len(m.Distances)
}
