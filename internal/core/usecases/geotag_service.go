package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/ports"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
)

// GeotagService attaches coordinates to postings from their location text.
type GeotagService struct {
	jobs      ports.JobRepository
	geocoder  ports.Geocoder
	cache     ports.CacheService
	publisher ports.EventPublisher
	poolSize  int
}

// NewGeotagService creates a new GeotagService.
func NewGeotagService(
	jobs ports.JobRepository,
	geocoder ports.Geocoder,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	poolSize int,
) *GeotagService {
	if poolSize <= 0 {
		poolSize = DefaultCandidatePool
	}
	return &GeotagService{jobs: jobs, geocoder: geocoder, cache: cache, publisher: publisher, poolSize: poolSize}
}

// Locate resolves location text. It returns nil when the text is blank or
// does not resolve; such postings stay ungeotagged.
func (s *GeotagService) Locate(ctx context.Context, text string) (*domain.Coordinate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	coord, err := s.geocoder.Geocode(ctx, text)
	if err != nil {
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode %q: %w", text, err)
	}
	if coord == nil {
		metrics.GeocodeRequests.WithLabelValues("no_match").Inc()
		return nil, nil
	}
	if !coord.Valid() {
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode %q: coordinate out of range (%f, %f)", text, coord.Lat, coord.Lon)
	}
	metrics.GeocodeRequests.WithLabelValues("match").Inc()
	return coord, nil
}

// Store saves the coordinate on the posting and announces it.
func (s *GeotagService) Store(ctx context.Context, jobID string, coord domain.Coordinate) error {
	if err := s.jobs.SetCoordinate(ctx, jobID, coord); err != nil {
		return fmt.Errorf("set coordinate %s: %w", jobID, err)
	}
	invalidateJob(ctx, s.cache, s.poolSize, jobID)

	if s.publisher == nil {
		return nil
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reload job %s: %w", jobID, err)
	}
	return s.publisher.PublishJobGeotagged(ctx, job)
}

// Geotag locates text and stores the result on jobID.
// It returns the stored coordinate, or nil when nothing matched.
func (s *GeotagService) Geotag(ctx context.Context, jobID, text string) (*domain.Coordinate, error) {
	coord, err := s.Locate(ctx, text)
	if err != nil || coord == nil {
		return nil, err
	}
	if err := s.Store(ctx, jobID, *coord); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "job geotagged", "job_id", jobID, "lat", coord.Lat, "lon", coord.Lon)
	return coord, nil
}
