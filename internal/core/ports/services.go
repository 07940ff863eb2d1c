package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// EventPublisher publishes job events to a message broker.
type EventPublisher interface {
	PublishJobPosted(ctx context.Context, job *domain.JobPosting) error
	PublishJobGeotagged(ctx context.Context, job *domain.JobPosting) error
}

// EventSubscriber consumes job events from a message broker. A handler error
// asks the broker to redeliver.
type EventSubscriber interface {
	SubscribeJobPosted(ctx context.Context, handler func(ctx context.Context, event *domain.JobEvent) error) error
}

// ErrCacheMiss is returned by CacheService.Get for absent keys. Any other
// Get error means the cache itself failed.
var ErrCacheMiss = errors.New("cache miss")

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Geocoder resolves free-form location text to a coordinate.
// A nil coordinate with a nil error means the text did not resolve.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (*domain.Coordinate, error)
}
