package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"dispatch/pkg/domain"
)

type canonicalPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Fingerprint returns a deterministic key for a set of locations: the
// SHA-256 of the canonical JSON encoding of the locations sorted by
// (lat, lon), so the same set of stops always hashes to the same key
// regardless of input order.
func Fingerprint(locations []domain.Location) string {
	points := make([]canonicalPoint, len(locations))
	for i, loc := range locations {
		points[i] = canonicalPoint{Lat: loc.Latitude, Lon: loc.Longitude}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Lat != points[j].Lat {
			return points[i].Lat < points[j].Lat
		}
		return points[i].Lon < points[j].Lon
	})

	data, err := json.Marshal(points)
	if err != nil {
		// Locations are plain float64 pairs; this cannot fail.
		panic(err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
