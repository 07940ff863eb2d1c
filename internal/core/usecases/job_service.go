package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/ports"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
)

const maxTitleLen = 200

// JobService handles job posting business logic.
type JobService struct {
	jobs      ports.JobRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	poolSize  int
	pool      *SuggestionService
}

// NewJobService creates a new JobService. poolSize must match the
// SuggestionService pool so that writes invalidate the right cache entry.
func NewJobService(jobs ports.JobRepository, cache ports.CacheService, publisher ports.EventPublisher, poolSize int) *JobService {
	if poolSize <= 0 {
		poolSize = DefaultCandidatePool
	}
	return &JobService{jobs: jobs, cache: cache, publisher: publisher, poolSize: poolSize}
}

// SetSuggestions lets writes detach pool fetches in flight on sg, so a fetch
// that started before the write cannot re-cache a stale pool.
func (s *JobService) SetSuggestions(sg *SuggestionService) {
	s.pool = sg
}

func (s *JobService) invalidate(ctx context.Context, id string) {
	invalidateJob(ctx, s.cache, s.poolSize, id)
	if s.pool != nil {
		s.pool.InvalidatePool(ctx)
	}
}

// Create validates and stores a new posting, then announces it.
func (s *JobService) Create(ctx context.Context, job *domain.JobPosting) error {
	job.Title = strings.TrimSpace(job.Title)
	job.LocationText = strings.TrimSpace(job.LocationText)
	if err := validateJob(job); err != nil {
		return err
	}

	job.ID = uuid.NewString()
	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	metrics.JobsPosted.Inc()

	s.invalidate(ctx, "")

	if s.publisher != nil {
		if err := s.publisher.PublishJobPosted(ctx, job); err != nil {
			slog.WarnContext(ctx, "publish job posted", "job_id", job.ID, "error", err)
		}
	}
	return nil
}

// GetByID returns a single posting.
func (s *JobService) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	cacheKey := jobKey(id)
	if s.cache != nil {
		if data, ok := cachedBytes(ctx, s.cache, "job", cacheKey); ok {
			var job domain.JobPosting
			if err := json.Unmarshal(data, &job); err == nil {
				metrics.CacheHits.WithLabelValues("job").Inc()
				return &job, nil
			}
			metrics.CacheMisses.WithLabelValues("job").Inc()
		}
	}

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(job); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min for single posting
		}
	}

	return job, nil
}

// ListRecent returns the newest postings.
func (s *JobService) ListRecent(ctx context.Context, limit int) ([]domain.JobPosting, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	return s.jobs.FetchRecent(ctx, limit)
}

// Delete removes a posting.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if err := s.jobs.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func validateJob(job *domain.JobPosting) error {
	if job.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidJob)
	}
	if len(job.Title) > maxTitleLen {
		return fmt.Errorf("%w: title longer than %d characters", domain.ErrInvalidJob, maxTitleLen)
	}
	if job.Coordinate != nil && !job.Coordinate.Valid() {
		return fmt.Errorf("%w: coordinate out of range", domain.ErrInvalidJob)
	}
	return nil
}
