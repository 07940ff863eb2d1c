package ports

import (
	"context"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// JobRepository persists job postings.
type JobRepository interface {
	// Create stores a posting. The store assigns PostedAt.
	Create(ctx context.Context, job *domain.JobPosting) error
	GetByID(ctx context.Context, id string) (*domain.JobPosting, error)
	// FetchRecent returns at most limit postings, newest first.
	FetchRecent(ctx context.Context, limit int) ([]domain.JobPosting, error)
	SetCoordinate(ctx context.Context, id string, coord domain.Coordinate) error
	Delete(ctx context.Context, id string) error
}

// CandidateSource is the read side of JobRepository the matcher depends on.
type CandidateSource interface {
	FetchRecent(ctx context.Context, limit int) ([]domain.JobPosting, error)
}
