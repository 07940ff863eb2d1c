package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/workradius/internal/adapters/http"
	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/usecases"
)

// ---- Mock repository ----

// mockJobRepo keeps postings newest first.
type mockJobRepo struct {
	mu       sync.Mutex
	jobs     []domain.JobPosting
	fetchErr error
}

func (m *mockJobRepo) Create(ctx context.Context, job *domain.JobPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.PostedAt = time.Now().UTC()
	m.jobs = append([]domain.JobPosting{*job}, m.jobs...)
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			j := m.jobs[i]
			return &j, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockJobRepo) FetchRecent(ctx context.Context, limit int) ([]domain.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	out := make([]domain.JobPosting, limit)
	copy(out, m.jobs[:limit])
	return out, nil
}

func (m *mockJobRepo) SetCoordinate(ctx context.Context, id string, c domain.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			m.jobs[i].Coordinate = &c
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockJobRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- Test helpers ----

var (
	sanFrancisco = domain.Coordinate{Lat: 37.7749, Lon: -122.4194}
	oakland      = domain.Coordinate{Lat: 37.8044, Lon: -122.2712}
	losAngeles   = domain.Coordinate{Lat: 34.0522, Lon: -118.2437}
	sanJose      = domain.Coordinate{Lat: 37.3382, Lon: -121.8863}
)

func at(c domain.Coordinate) *domain.Coordinate { return &c }

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(repo *mockJobRepo) *handler.Dependencies {
	jobs := usecases.NewJobService(repo, nil, nil, 100)
	suggestions := usecases.NewSuggestionService(repo, nil, usecases.MatchOptions{
		DefaultRadiusKm: 50,
		CandidatePool:   100,
	})
	jobs.SetSuggestions(suggestions)
	return &handler.Dependencies{
		Jobs:        jobs,
		Suggestions: suggestions,
		MaxRadiusKm: 500,
	}
}

func seededRepo() *mockJobRepo {
	return &mockJobRepo{jobs: []domain.JobPosting{
		{ID: "job-a", Title: "Barista", Coordinate: at(oakland)},
		{ID: "job-b", Title: "Line cook", Coordinate: at(losAngeles)},
		{ID: "job-c", Title: "Remote support"},
	}}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeAPIError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- Nearby ----

func TestNearbyJobs_Success(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	req := httptest.NewRequest("GET", "/v1/jobs/nearby?lat=37.7749&lon=-122.4194&radius_km=50", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result handler.NearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 || len(result.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(result.Jobs))
	}
	if result.Jobs[0].ID != "job-a" {
		t.Errorf("expected job-a, got %s", result.Jobs[0].ID)
	}
	// Great-circle, not road distance.
	if d := result.Jobs[0].DistanceKm; math.Abs(d-13.4) > 0.5 {
		t.Errorf("expected ~13.4 km, got %f", d)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, max-age=30" {
		t.Errorf("expected private cache control, got %q", cc)
	}
}

func TestNearbyJobs_DefaultRadius(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	req := httptest.NewRequest("GET", "/v1/jobs/nearby?lat=37.7749&lon=-122.4194", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result handler.NearbyResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if result.RadiusKm != 50 {
		t.Errorf("expected default radius 50, got %f", result.RadiusKm)
	}
}

func TestNearbyJobs_WideRadiusSortedAscending(t *testing.T) {
	repo := &mockJobRepo{jobs: []domain.JobPosting{
		{ID: "job-sj", Title: "Technician", Coordinate: at(sanJose)},
		{ID: "job-b", Title: "Line cook", Coordinate: at(losAngeles)},
		{ID: "job-a", Title: "Barista", Coordinate: at(oakland)},
	}}
	app := setupApp(makeDeps(repo))

	// Los Angeles is ~559 km out, beyond the 500 km radius.
	req := httptest.NewRequest("GET", "/v1/jobs/nearby?lat=37.7749&lon=-122.4194&radius_km=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result handler.NearbyResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(result.Jobs))
	}
	if result.Jobs[0].ID != "job-a" || result.Jobs[1].ID != "job-sj" {
		t.Errorf("expected [job-a job-sj], got [%s %s]", result.Jobs[0].ID, result.Jobs[1].ID)
	}
	if result.Jobs[0].DistanceKm > result.Jobs[1].DistanceKm {
		t.Errorf("distances not ascending: %f > %f", result.Jobs[0].DistanceKm, result.Jobs[1].DistanceKm)
	}
}

func TestNearbyJobs_ZeroCoordinatesAreValid(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	req := httptest.NewRequest("GET", "/v1/jobs/nearby?lat=0&lon=0", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for the null island seeker, got %d", resp.StatusCode)
	}

	var result handler.NearbyResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Jobs == nil || len(result.Jobs) != 0 {
		t.Errorf("expected an empty job list, got %v", result.Jobs)
	}
}

func TestNearbyJobs_BadParams(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	cases := map[string]string{
		"missing lat":       "/v1/jobs/nearby?lon=-122.4",
		"missing both":      "/v1/jobs/nearby",
		"lat not a number":  "/v1/jobs/nearby?lat=north&lon=-122.4",
		"lat out of range":  "/v1/jobs/nearby?lat=91&lon=-122.4",
		"lon out of range":  "/v1/jobs/nearby?lat=37&lon=181",
		"zero radius":       "/v1/jobs/nearby?lat=37&lon=-122&radius_km=0",
		"negative radius":   "/v1/jobs/nearby?lat=37&lon=-122&radius_km=-5",
		"radius over max":   "/v1/jobs/nearby?lat=37&lon=-122&radius_km=501",
		"radius not number": "/v1/jobs/nearby?lat=37&lon=-122&radius_km=far",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest("GET", url, nil), -1)
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if apiErr := decodeAPIError(t, resp.Body); apiErr.Code != "bad_request" {
				t.Errorf("expected bad_request, got %s", apiErr.Code)
			}
		})
	}
}

func TestNearbyJobs_FetchFailureIsUnavailable(t *testing.T) {
	repo := seededRepo()
	repo.fetchErr = fmt.Errorf("%w: %w", domain.ErrCandidateFetch, errors.New("connection refused"))
	app := setupApp(makeDeps(repo))

	req := httptest.NewRequest("GET", "/v1/jobs/nearby?lat=37.7749&lon=-122.4194", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	apiErr := decodeAPIError(t, resp.Body)
	if apiErr.Code != "unavailable" {
		t.Errorf("expected unavailable, got %s", apiErr.Code)
	}
	if strings.Contains(apiErr.Message, "connection refused") {
		t.Errorf("driver error leaked to client: %q", apiErr.Message)
	}
}

// ---- List / get ----

func TestListJobs_Pagination(t *testing.T) {
	repo := &mockJobRepo{}
	for i := 0; i < 5; i++ {
		repo.jobs = append(repo.jobs, domain.JobPosting{ID: fmt.Sprintf("job-%d", i), Title: "Job"})
	}
	app := setupApp(makeDeps(repo))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/jobs?offset=2&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.JobPosting `json:"data"`
		Pagination handler.Pagination  `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 || result.Data[0].ID != "job-2" {
		t.Errorf("expected page [job-2 job-3], got %v", result.Data)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %q", link)
	}
}

func TestListJobs_OffsetPastEnd(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/jobs?offset=50", nil), -1)
	var result struct {
		Data []domain.JobPosting `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Data == nil || len(result.Data) != 0 {
		t.Errorf("expected empty page, got %v", result.Data)
	}
}

func TestGetJob(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/jobs/job-b", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var job domain.JobPosting
	json.NewDecoder(resp.Body).Decode(&job)
	if job.Title != "Line cook" {
		t.Errorf("expected Line cook, got %q", job.Title)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/jobs/missing", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp.Body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

// ---- Create / delete ----

func postJSON(app *fiber.App, path, body string) (*http.Response, error) {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req, -1)
}

func TestCreateJob(t *testing.T) {
	repo := &mockJobRepo{}
	app := setupApp(makeDeps(repo))

	resp, err := postJSON(app, "/v1/jobs", `{"title":"  Welder ","location_text":"Bilbao","coordinate":{"lat":43.263,"lon":-2.935}}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var job domain.JobPosting
	json.NewDecoder(resp.Body).Decode(&job)
	if job.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if job.Title != "Welder" {
		t.Errorf("expected trimmed title, got %q", job.Title)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/jobs/"+job.ID {
		t.Errorf("unexpected Location %q", loc)
	}
	if len(repo.jobs) != 1 {
		t.Errorf("expected 1 stored job, got %d", len(repo.jobs))
	}
}

func TestCreateJob_Invalid(t *testing.T) {
	app := setupApp(makeDeps(&mockJobRepo{}))

	cases := map[string]string{
		"empty body":         ``,
		"not json":           `{"title":`,
		"missing title":      `{"company":"Forge"}`,
		"blank title":        `{"title":"   "}`,
		"unknown field":      `{"title":"x","id":"chosen-by-client"}`,
		"lat out of range":   `{"title":"x","coordinate":{"lat":120,"lon":0}}`,
		"partial coordinate": `{"title":"x","coordinate":{"lat":10}}`,
		"wrong type":         `{"title":42}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := postJSON(app, "/v1/jobs", body)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestDeleteJob(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/jobs/job-a", nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/jobs/job-a", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_JobsNearby(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, err := postJSON(app, "/graphql",
		`{"query":"{ jobsNearby(lat: 37.7749, lon: -122.4194, radius_km: 50) { id distance_km coordinate { lat } } }"}`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			JobsNearby []struct {
				ID         string  `json:"id"`
				DistanceKm float64 `json:"distance_km"`
			} `json:"jobsNearby"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Data.JobsNearby) != 1 || result.Data.JobsNearby[0].ID != "job-a" {
		t.Errorf("expected [job-a], got %v", result.Data.JobsNearby)
	}
}

func TestGraphQL_JobsNearbyBadRadius(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := postJSON(app, "/graphql", `{"query":"{ jobsNearby(lat: 1, lon: 1, radius_km: -1) { id } }"}`)
	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) == 0 {
		t.Fatal("expected a GraphQL error for a negative radius")
	}
}

func TestGraphQL_JobAndRecent(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := postJSON(app, "/graphql", `{"query":"{ job(id: \"missing\") { id } recentJobs(limit: 2) { id title } }"}`)
	var result struct {
		Data struct {
			Job        *struct{ ID string } `json:"job"`
			RecentJobs []struct {
				ID string `json:"id"`
			} `json:"recentJobs"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Data.Job != nil {
		t.Errorf("expected null job, got %v", result.Data.Job)
	}
	if len(result.Data.RecentJobs) != 2 || result.Data.RecentJobs[0].ID != "job-a" {
		t.Errorf("expected newest two jobs, got %v", result.Data.RecentJobs)
	}
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := postJSON(app, "/graphql", `{}`)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- System ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockJobRepo{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := resp.Header.Get("X-API-Version"); v != handler.APIVersion {
		t.Errorf("expected X-API-Version %s, got %q", handler.APIVersion, v)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps(&mockJobRepo{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(seededRepo()))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/jobs/job-a", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/jobs/job-a", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(&mockJobRepo{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws/jobs", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}
