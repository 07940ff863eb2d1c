package usecases_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/usecases"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
)

func TestSuggestionService_SuggestJobs(t *testing.T) {
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			return bayAreaCandidates(), nil
		},
	}
	svc := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{})

	ranked, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "job-a", ranked[0].ID)
}

func TestSuggestionService_Defaults(t *testing.T) {
	var gotLimit int
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			gotLimit = limit
			return []domain.JobPosting{
				{ID: "inside", Coordinate: coord(0, 0.4)},  // ~44 km
				{ID: "outside", Coordinate: coord(0, 0.5)}, // ~56 km
			}, nil
		},
	}
	svc := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{})
	assert.Equal(t, 50.0, svc.DefaultRadiusKm())

	ranked, err := svc.SuggestJobs(context.Background(), domain.Coordinate{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, []string{"inside"}, ids(ranked))
}

func TestSuggestionService_ConfiguredPoolAndRadius(t *testing.T) {
	var gotLimit int
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			gotLimit = limit
			return []domain.JobPosting{{ID: "a", Coordinate: coord(0, 0.5)}}, nil
		},
	}
	svc := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{DefaultRadiusKm: 60, CandidatePool: 25})

	ranked, err := svc.SuggestJobs(context.Background(), domain.Coordinate{}, -1)
	require.NoError(t, err)
	assert.Equal(t, 25, gotLimit)
	assert.Len(t, ranked, 1)
}

func TestSuggestionService_FetchErrorPropagatesUnchanged(t *testing.T) {
	fetchErr := errors.New("store unreachable")
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			return nil, fetchErr
		},
	}
	svc := usecases.NewSuggestionService(repo, newMemCache(), usecases.MatchOptions{PoolCacheTTL: 60})

	ranked, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	assert.Nil(t, ranked)
	assert.Same(t, fetchErr, err)
}

func TestSuggestionService_FetchErrorDoesNotRetry(t *testing.T) {
	var calls int32
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			atomic.AddInt32(&calls, 1)
			return nil, domain.ErrCandidateFetch
		},
	}
	svc := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{})

	_, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	assert.ErrorIs(t, err, domain.ErrCandidateFetch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSuggestionService_EmptyPool(t *testing.T) {
	svc := usecases.NewSuggestionService(&mockJobRepo{}, nil, usecases.MatchOptions{})

	ranked, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestSuggestionService_PoolCached(t *testing.T) {
	var calls int32
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			atomic.AddInt32(&calls, 1)
			return bayAreaCandidates(), nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewSuggestionService(repo, cache, usecases.MatchOptions{PoolCacheTTL: 60})

	first, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)
	second, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.InDelta(t, first[0].DistanceKm, second[0].DistanceKm, 1e-9)

	_, ok := cache.data["jobs:recent:100"]
	assert.True(t, ok, "pool should be stored under the pool-size key")
}

func TestSuggestionService_CachingDisabledWithoutTTL(t *testing.T) {
	var calls int32
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			atomic.AddInt32(&calls, 1)
			return nil, nil
		},
	}
	svc := usecases.NewSuggestionService(repo, newMemCache(), usecases.MatchOptions{})

	for i := 0; i < 3; i++ {
		_, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSuggestionService_ConcurrentCallsIndependent(t *testing.T) {
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			return bayAreaCandidates(), nil
		},
	}
	svc := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{})

	var wg sync.WaitGroup
	results := make([][]domain.RankedJobPosting, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.SuggestJobs(context.Background(), sanFrancisco, 1000)
			if err == nil {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"job-a", "job-b"}, ids(r))
	}
}

func TestSuggestionService_SharedFetchSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			once.Do(func() { close(started) })
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return bayAreaCandidates(), nil
		},
	}
	svc := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.SuggestJobs(firstCtx, sanFrancisco, 50)
		firstErr <- err
	}()
	<-started

	type result struct {
		ranked []domain.RankedJobPosting
		err    error
	}
	second := make(chan result, 1)
	go func() {
		r, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
		second <- result{r, err}
	}()
	time.Sleep(20 * time.Millisecond) // let the second caller join the fetch

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, []string{"job-a"}, ids(res.ranked))
}

func TestSuggestionService_WriteDuringFetchIsNotCached(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(started)
				<-release
			}
			return bayAreaCandidates(), nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewSuggestionService(repo, cache, usecases.MatchOptions{PoolCacheTTL: 60})
	jobs := usecases.NewJobService(repo, cache, nil, 100)
	jobs.SetSuggestions(svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
		done <- err
	}()
	<-started

	require.NoError(t, jobs.Create(context.Background(), &domain.JobPosting{Title: "Baker"}))
	close(release)
	require.NoError(t, <-done)

	cached := func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		_, ok := cache.data["jobs:recent:100"]
		return ok
	}
	assert.False(t, cached(), "pool fetched before the write must not be cached")

	_, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, cached())
}

func TestSuggestionService_CacheOutageFallsBackToStore(t *testing.T) {
	errorsBefore := testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("candidate_pool"))
	missesBefore := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("candidate_pool"))

	repo := &mockJobRepo{
		fetchRecentFn: func(ctx context.Context, limit int) ([]domain.JobPosting, error) {
			return bayAreaCandidates(), nil
		},
	}
	svc := usecases.NewSuggestionService(repo, downCache{}, usecases.MatchOptions{PoolCacheTTL: 60})

	ranked, err := svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-a"}, ids(ranked))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("candidate_pool")))
	assert.Equal(t, missesBefore, testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("candidate_pool")))

	svc = usecases.NewSuggestionService(repo, newMemCache(), usecases.MatchOptions{PoolCacheTTL: 60})
	_, err = svc.SuggestJobs(context.Background(), sanFrancisco, 50)
	require.NoError(t, err)
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("candidate_pool")))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(metrics.CacheErrors.WithLabelValues("candidate_pool")))
}
