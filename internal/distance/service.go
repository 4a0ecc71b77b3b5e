package distance

import (
	"context"
	"time"

	"dispatch/pkg/apperror"
	"dispatch/pkg/cache"
	"dispatch/pkg/domain"
	"dispatch/pkg/logger"
	"dispatch/pkg/telemetry"
)

// Service orchestrates the provider chain behind the matrix cache.
// Providers are tried in chain order; the first to succeed wins and
// write-through populates the cache.
//
// The cache stores raw, un-multiplied durations. The time-of-day traffic
// buffer is applied by the ETA calculator at read time, never baked into
// the cached matrix, so the cache's TTL is about road geometry and not
// time of day.
type Service struct {
	chain       []Provider
	matrixCache *cache.MatrixCache
	defaultTTL  time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithCache enables the write-through matrix cache. Without it, every call
// recomputes the matrix.
func WithCache(mc *cache.MatrixCache) Option {
	return func(s *Service) { s.matrixCache = mc }
}

// WithCacheTTL overrides the TTL used when a fresh matrix is written.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.defaultTTL = ttl }
}

// NewService builds a Service with providers tried in the given order,
// conventionally external -> local -> geodesic.
func NewService(providers []Provider, opts ...Option) *Service {
	s := &Service{chain: providers, defaultTTL: 24 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateMatrix resolves a distance+duration matrix for locations,
// consulting the cache first (unless bypassCache), then walking the
// provider chain in order. On success it writes the result back to the
// cache. forceProvider restricts the attempt to a single named provider;
// an unknown name is CodeInvalidInput.
func (s *Service) CalculateMatrix(ctx context.Context, locations []domain.Location, departure time.Time, forceProvider string, bypassCache bool) (domain.DistanceMatrix, error) {
	ctx, span := telemetry.StartSpan(ctx, "distance.Service.CalculateMatrix")
	defer span.End()

	if err := validateLocations(locations); err != nil {
		telemetry.SetError(ctx, err)
		return domain.DistanceMatrix{}, err
	}

	chain := s.chain
	if forceProvider != "" {
		provider := s.findProvider(forceProvider)
		if provider == nil {
			err := apperror.InvalidInput("force_provider", "unknown provider "+forceProvider)
			telemetry.SetError(ctx, err)
			return domain.DistanceMatrix{}, err
		}
		chain = []Provider{provider}
	}

	if s.matrixCache != nil && !bypassCache {
		if matrix, found, err := s.matrixCache.Get(ctx, locations); err == nil && found {
			span.SetAttributes(telemetry.DistanceAttributes("cache", matrix.Size(), true)...)
			return matrix, nil
		}
	}

	var lastErr error
	for _, provider := range chain {
		matrix, err := provider.CalculateMatrix(ctx, locations, departure)
		if err != nil {
			logger.Log.Warn("distance provider failed, trying next",
				"provider", provider.Name(), "error", err)
			lastErr = err
			continue
		}

		span.SetAttributes(telemetry.DistanceAttributes(provider.Name(), matrix.Size(), false)...)

		if s.matrixCache != nil {
			if err := s.matrixCache.Set(ctx, locations, matrix, s.defaultTTL); err != nil {
				logger.Log.Warn("failed to write distance matrix to cache", "error", err)
			}
		}

		return matrix, nil
	}

	err := apperror.Wrap(apperror.CodeProviderUnavailable, lastErr, "all distance providers failed")
	telemetry.SetError(ctx, err)
	return domain.DistanceMatrix{}, err
}

func (s *Service) findProvider(name string) Provider {
	for _, p := range s.chain {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// TrafficCapable reports whether any provider in the chain can prefer
// duration-in-traffic for a given departure instant.
func (s *Service) TrafficCapable() bool {
	for _, p := range s.chain {
		if ta, ok := p.(TrafficAware); ok && ta.SupportsTraffic() {
			return true
		}
	}
	return false
}
