package usecases

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mytransittn/transitfare/internal/core/domain"
	"github.com/mytransittn/transitfare/internal/core/ports"
	"github.com/mytransittn/transitfare/internal/pkg/geospatial"
	"github.com/mytransittn/transitfare/internal/pkg/metrics"
)

// defaultDistanceKm is used when a station has no coordinates. Missing data
// is never fatal to routing or fare computation.
const defaultDistanceKm = 5.0

// DistanceService answers "how far apart are these two stations, in km".
// It consults an optional external provider first, falls back to the local
// Haversine formula on any failure, and memoizes results by unordered
// station pair. An optional shared cache sits in front of the in-process map
// so results survive restarts.
type DistanceService struct {
	provider ports.DistanceProvider // may be nil
	cache    ports.CacheService     // may be nil

	mu    sync.RWMutex
	local map[string]float64
}

// NewDistanceService creates a DistanceService. Both provider and cache are
// optional.
func NewDistanceService(provider ports.DistanceProvider, cache ports.CacheService) *DistanceService {
	return &DistanceService{
		provider: provider,
		cache:    cache,
		local:    make(map[string]float64),
	}
}

// Distance returns the distance in kilometers between two stations.
// Guarantees: Distance(a, a) == 0, Distance(a, b) == Distance(b, a), and the
// result is always >= 0. It never returns an error; every failure path ends
// in the local formula or the fixed default.
func (s *DistanceService) Distance(ctx context.Context, a, b *domain.Station) float64 {
	if a == nil || b == nil {
		return defaultDistanceKm
	}
	if a.ID == b.ID {
		return 0
	}

	key := pairKey(a.ID, b.ID)

	s.mu.RLock()
	if d, ok := s.local[key]; ok {
		s.mu.RUnlock()
		metrics.DistanceLookups.WithLabelValues("memo").Inc()
		return d
	}
	s.mu.RUnlock()

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, "distance:"+key); err == nil {
			if d, err := strconv.ParseFloat(string(raw), 64); err == nil {
				metrics.DistanceLookups.WithLabelValues("cache").Inc()
				s.store(ctx, key, d, false)
				return d
			}
		}
	}

	d := s.compute(ctx, a, b)
	s.store(ctx, key, d, true)
	return d
}

func (s *DistanceService) compute(ctx context.Context, a, b *domain.Station) float64 {
	if a.Location == nil || b.Location == nil {
		slog.Warn("station coordinates missing, using default distance",
			"from", a.ID, "to", b.ID, "default_km", defaultDistanceKm)
		metrics.DistanceLookups.WithLabelValues("default").Inc()
		return defaultDistanceKm
	}

	if s.provider != nil {
		d, err := s.provider.RoadDistanceKm(ctx, *a.Location, *b.Location)
		if err == nil && d >= 0 {
			metrics.DistanceLookups.WithLabelValues("external").Inc()
			return d
		}
		if err != nil {
			slog.Warn("external distance lookup failed, falling back to haversine",
				"from", a.ID, "to", b.ID, "error", err)
		}
	}

	metrics.DistanceLookups.WithLabelValues("haversine").Inc()
	return geospatial.HaversineKm(
		a.Location.Lat, a.Location.Lon,
		b.Location.Lat, b.Location.Lon,
	)
}

func (s *DistanceService) store(ctx context.Context, key string, d float64, writeThrough bool) {
	s.mu.Lock()
	s.local[key] = d
	s.mu.Unlock()

	if writeThrough && s.cache != nil {
		// Distances only change when topology does; the operator clear
		// handles that, so a long TTL is fine.
		_ = s.cache.Set(ctx, "distance:"+key, []byte(strconv.FormatFloat(d, 'f', -1, 64)), 86400)
	}
}

// ClearCache drops all memoized distances. Operator-facing: invoked after
// station coordinates change.
func (s *DistanceService) ClearCache(ctx context.Context) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.local))
	for k := range s.local {
		keys = append(keys, k)
	}
	s.local = make(map[string]float64)
	s.mu.Unlock()

	if s.cache != nil {
		for _, k := range keys {
			_ = s.cache.Delete(ctx, "distance:"+k)
		}
	}
	slog.Info("distance cache cleared", "entries", len(keys))
}

// pairKey builds an unordered key so symmetry holds by construction.
func pairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}
