package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/ports"
)

// --- Mock JobRepository ---

type mockJobRepo struct {
	createFn      func(ctx context.Context, job *domain.JobPosting) error
	getByIDFn     func(ctx context.Context, id string) (*domain.JobPosting, error)
	fetchRecentFn func(ctx context.Context, limit int) ([]domain.JobPosting, error)
	setCoordFn    func(ctx context.Context, id string, coord domain.Coordinate) error
	deleteFn      func(ctx context.Context, id string) error
}

func (m *mockJobRepo) Create(ctx context.Context, job *domain.JobPosting) error {
	if m.createFn != nil {
		return m.createFn(ctx, job)
	}
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockJobRepo) FetchRecent(ctx context.Context, limit int) ([]domain.JobPosting, error) {
	if m.fetchRecentFn != nil {
		return m.fetchRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockJobRepo) SetCoordinate(ctx context.Context, id string, coord domain.Coordinate) error {
	if m.setCoordFn != nil {
		return m.setCoordFn(ctx, id, coord)
	}
	return nil
}

func (m *mockJobRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- In-memory CacheService ---

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// downCache fails every operation, like an unreachable cache server.
type downCache struct{}

var errCacheDown = errors.New("connection refused")

func (downCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, errCacheDown }
func (downCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return errCacheDown
}
func (downCache) Delete(ctx context.Context, key string) error { return errCacheDown }

// --- Mock EventPublisher ---

type mockPublisher struct {
	posted    []*domain.JobPosting
	geotagged []*domain.JobPosting
	err       error
}

func (p *mockPublisher) PublishJobPosted(ctx context.Context, job *domain.JobPosting) error {
	p.posted = append(p.posted, job)
	return p.err
}

func (p *mockPublisher) PublishJobGeotagged(ctx context.Context, job *domain.JobPosting) error {
	p.geotagged = append(p.geotagged, job)
	return p.err
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, text string) (*domain.Coordinate, error)
}

func (g *mockGeocoder) Geocode(ctx context.Context, text string) (*domain.Coordinate, error) {
	if g.geocodeFn != nil {
		return g.geocodeFn(ctx, text)
	}
	return nil, nil
}

func coord(lat, lon float64) *domain.Coordinate {
	return &domain.Coordinate{Lat: lat, Lon: lon}
}
