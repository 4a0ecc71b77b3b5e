package cache

import (
	"context"
	"encoding/json"
	"time"

	"dispatch/pkg/domain"
)

// MatrixCache is a fingerprint-keyed store of DistanceMatrix results,
// layered over a memory tier (fast, volatile) and a durable backing
// Cache (Redis in production, another MemoryCache in tests).
type MatrixCache struct {
	hot     Cache
	durable Cache
	ttl     time.Duration
}

// cachedMatrix is the JSON wire shape persisted for a matrix entry.
type cachedMatrix struct {
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
	Provider  string      `json:"provider"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// NewMatrixCache wraps hot and durable caches behind a single matrix
// cache API. hot may be nil to skip the in-memory tier.
func NewMatrixCache(hot, durable Cache, defaultTTL time.Duration) *MatrixCache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &MatrixCache{hot: hot, durable: durable, ttl: defaultTTL}
}

// Get returns the cached matrix for locations if present and unexpired.
func (m *MatrixCache) Get(ctx context.Context, locations []domain.Location) (domain.DistanceMatrix, bool, error) {
	key := Fingerprint(locations)

	if m.hot != nil {
		if data, err := m.hot.Get(ctx, key); err == nil {
			return decodeMatrix(key, data)
		}
	}

	data, err := m.durable.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return domain.DistanceMatrix{}, false, nil
		}
		return domain.DistanceMatrix{}, false, err
	}

	matrix, found, err := decodeMatrix(key, data)
	if err != nil || !found {
		return matrix, found, err
	}

	if m.hot != nil {
		remaining := time.Until(matrix.ExpiresAt)
		if remaining > 0 {
			_ = m.hot.Set(ctx, key, data, remaining)
		}
	}

	return matrix, true, nil
}

func decodeMatrix(key string, data []byte) (domain.DistanceMatrix, bool, error) {
	var cm cachedMatrix
	if err := json.Unmarshal(data, &cm); err != nil {
		return domain.DistanceMatrix{}, false, nil
	}
	if time.Now().After(cm.ExpiresAt) {
		return domain.DistanceMatrix{}, false, nil
	}
	matrix, err := domain.NewDistanceMatrix(key, cm.Distances, cm.Durations, cm.Provider, cm.ExpiresAt)
	if err != nil {
		return domain.DistanceMatrix{}, false, nil
	}
	return matrix, true, nil
}

// Set upserts matrix under its fingerprint key with ttl (or the cache's
// default TTL when ttl is zero).
func (m *MatrixCache) Set(ctx context.Context, locations []domain.Location, matrix domain.DistanceMatrix, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	key := Fingerprint(locations)
	expiresAt := time.Now().Add(ttl)

	cm := cachedMatrix{
		Distances: matrix.Distances,
		Durations: matrix.Durations,
		Provider:  matrix.Provider,
		ExpiresAt: expiresAt,
	}
	data, err := json.Marshal(cm)
	if err != nil {
		return err
	}

	if err := m.durable.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	if m.hot != nil {
		_ = m.hot.Set(ctx, key, data, ttl)
	}
	return nil
}

// Invalidate removes the cached entry for locations from both tiers.
func (m *MatrixCache) Invalidate(ctx context.Context, locations []domain.Location) error {
	key := Fingerprint(locations)
	if m.hot != nil {
		_ = m.hot.Delete(ctx, key)
	}
	return m.durable.Delete(ctx, key)
}

// ClearExpiredStats summarizes the durable tier's cache health.
type ClearExpiredStats struct {
	Total        int64
	Valid        int64
	Expired      int64
	HitPotential float64
}

// Statistics reports aggregate health of the durable tier.
func (m *MatrixCache) Statistics(ctx context.Context) (ClearExpiredStats, error) {
	if _, err := m.durable.Stats(ctx); err != nil {
		return ClearExpiredStats{}, err
	}

	keys, err := m.durable.Keys(ctx, "*")
	if err != nil {
		return ClearExpiredStats{}, err
	}

	var valid, expired int64
	for _, key := range keys {
		data, err := m.durable.Get(ctx, key)
		if err != nil {
			continue
		}
		var cm cachedMatrix
		if err := json.Unmarshal(data, &cm); err != nil {
			continue
		}
		if time.Now().After(cm.ExpiresAt) {
			expired++
		} else {
			valid++
		}
	}

	total := valid + expired
	hitPotential := 0.0
	if total > 0 {
		hitPotential = float64(valid) / float64(total)
	}

	return ClearExpiredStats{
		Total:        total,
		Valid:        valid,
		Expired:      expired,
		HitPotential: hitPotential,
	}, nil
}

// ClearExpired deletes every expired entry from the durable tier,
// returning the count removed.
func (m *MatrixCache) ClearExpired(ctx context.Context) (int64, error) {
	keys, err := m.durable.Keys(ctx, "*")
	if err != nil {
		return 0, err
	}

	var removed []string
	for _, key := range keys {
		data, err := m.durable.Get(ctx, key)
		if err != nil {
			continue
		}
		var cm cachedMatrix
		if err := json.Unmarshal(data, &cm); err != nil {
			continue
		}
		if time.Now().After(cm.ExpiresAt) {
			removed = append(removed, key)
		}
	}

	if len(removed) == 0 {
		return 0, nil
	}

	return m.durable.MDelete(ctx, removed)
}
