package usecases

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/ports"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
)

const (
	DefaultRadiusKm      = 50.0
	DefaultCandidatePool = 100

	poolFetchTimeout = 10 * time.Second
)

// MatchOptions tunes the proximity matcher.
type MatchOptions struct {
	DefaultRadiusKm float64
	CandidatePool   int
	PoolCacheTTL    int // seconds, 0 disables pool caching
}

// SuggestionService suggests job postings near a seeker.
type SuggestionService struct {
	candidates ports.CandidateSource
	cache      ports.CacheService
	opts       MatchOptions
	tracer     trace.Tracer
	inflight   singleflight.Group
	gen        atomic.Uint64 // bumped by InvalidatePool
}

// NewSuggestionService creates a new SuggestionService. Zero-valued options
// fall back to a 50 km radius and a pool of the 100 most recent postings.
func NewSuggestionService(candidates ports.CandidateSource, cache ports.CacheService, opts MatchOptions) *SuggestionService {
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = DefaultRadiusKm
	}
	if opts.CandidatePool <= 0 {
		opts.CandidatePool = DefaultCandidatePool
	}
	return &SuggestionService{
		candidates: candidates,
		cache:      cache,
		opts:       opts,
		tracer:     otel.Tracer("workradius/usecases"),
	}
}

// DefaultRadiusKm returns the radius used when callers pass none.
func (s *SuggestionService) DefaultRadiusKm() float64 {
	return s.opts.DefaultRadiusKm
}

// SuggestJobs fetches the candidate pool and ranks it by distance from seeker.
// A non-positive radiusKm selects the default radius. Fetch errors are
// returned as the store reported them.
func (s *SuggestionService) SuggestJobs(ctx context.Context, seeker domain.Coordinate, radiusKm float64) ([]domain.RankedJobPosting, error) {
	if radiusKm <= 0 {
		radiusKm = s.opts.DefaultRadiusKm
	}

	ctx, span := s.tracer.Start(ctx, "SuggestJobs", trace.WithAttributes(
		attribute.Float64("seeker.lat", seeker.Lat),
		attribute.Float64("seeker.lon", seeker.Lon),
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	start := time.Now()
	pool, err := s.candidatePool(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "candidate fetch")
		return nil, err
	}

	ranked := RankByDistance(seeker, pool, radiusKm)

	metrics.CandidatePoolSize.Observe(float64(len(pool)))
	metrics.SuggestionResults.Observe(float64(len(ranked)))
	metrics.SuggestionDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("pool.size", len(pool)),
		attribute.Int("result.size", len(ranked)),
	)

	return ranked, nil
}

// InvalidatePool drops the cached candidate pool. A fetch already in flight
// is detached so its result is neither shared with later callers nor cached.
func (s *SuggestionService) InvalidatePool(ctx context.Context) {
	key := recentPoolKey(s.opts.CandidatePool)
	s.gen.Add(1)
	s.inflight.Forget(key)
	if s.cache != nil {
		_ = s.cache.Delete(ctx, key)
	}
}

// candidatePool returns the most recent postings, read through the cache.
// Concurrent misses share a single store fetch, which outlives any one
// caller's cancellation but is bounded by poolFetchTimeout.
func (s *SuggestionService) candidatePool(ctx context.Context) ([]domain.JobPosting, error) {
	key := recentPoolKey(s.opts.CandidatePool)
	caching := s.cache != nil && s.opts.PoolCacheTTL > 0

	if caching {
		if data, ok := cachedBytes(ctx, s.cache, "candidate_pool", key); ok {
			var jobs []domain.JobPosting
			if err := json.Unmarshal(data, &jobs); err == nil {
				metrics.CacheHits.WithLabelValues("candidate_pool").Inc()
				return jobs, nil
			}
			metrics.CacheMisses.WithLabelValues("candidate_pool").Inc()
		}
	}

	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		gen := s.gen.Load()
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), poolFetchTimeout)
		defer cancel()

		jobs, err := s.candidates.FetchRecent(fetchCtx, s.opts.CandidatePool)
		if err != nil {
			return nil, err
		}
		// Not cached if a write landed mid-fetch; the result may predate it.
		if caching && s.gen.Load() == gen {
			if data, err := json.Marshal(jobs); err == nil {
				_ = s.cache.Set(fetchCtx, key, data, s.opts.PoolCacheTTL)
			}
		}
		return jobs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.JobPosting), nil
	}
}
