package http

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/samirrijal/workradius/internal/core/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	recentWindow     = 200
)

// NearbyResponse is the body of GET /v1/jobs/nearby.
type NearbyResponse struct {
	Seeker   domain.Coordinate         `json:"seeker"`
	RadiusKm float64                   `json:"radius_km"`
	Count    int                       `json:"count"`
	Jobs     []domain.RankedJobPosting `json:"jobs"`
}

// NearbyJobsHandler returns recent postings within radius_km of lat/lon,
// nearest first.
func NearbyJobsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseNearbyQuery(c.Query("lat"), c.Query("lon"), c.Query("radius_km"),
			deps.Suggestions.DefaultRadiusKm(), deps.MaxRadiusKm)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		jobs, err := deps.Suggestions.SuggestJobs(c.UserContext(), q.Seeker, q.RadiusKm)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "private, max-age=30")
		return c.JSON(NearbyResponse{
			Seeker:   q.Seeker,
			RadiusKm: q.RadiusKm,
			Count:    len(jobs),
			Jobs:     jobs,
		})
	}
}

// ListJobsHandler pages through the most recent postings.
func ListJobsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := parsePagination(c, defaultListLimit, maxListLimit)

		jobs, err := deps.Jobs.ListRecent(c.UserContext(), recentWindow)
		if err != nil {
			return serviceError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: len(jobs)}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page(jobs, offset, limit), Pagination: pg})
	}
}

// GetJobHandler returns a single posting by ID.
func GetJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}

		job, err := deps.Jobs.GetByID(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(job)
	}
}

// jobSchema constrains POST /v1/jobs bodies. id and posted_at are assigned
// by the server.
const jobSchema = `{
	"type": "object",
	"required": ["title"],
	"additionalProperties": false,
	"properties": {
		"title":           {"type": "string", "minLength": 1, "maxLength": 200},
		"company":         {"type": "string", "maxLength": 200},
		"description":     {"type": "string", "maxLength": 20000},
		"location_text":   {"type": "string", "maxLength": 300},
		"employment_type": {"type": "string", "maxLength": 50},
		"salary":          {"type": "string", "maxLength": 100},
		"employer_id":     {"type": "string", "maxLength": 100},
		"coordinate": {
			"type": "object",
			"required": ["lat", "lon"],
			"additionalProperties": false,
			"properties": {
				"lat": {"type": "number", "minimum": -90, "maximum": 90},
				"lon": {"type": "number", "minimum": -180, "maximum": 180}
			}
		}
	}
}`

var jobSchemaLoader = mustSchema(jobSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("job schema: " + err.Error())
	}
	return s
}

// validateJobBody checks body against jobSchema and returns a readable
// message for the first few violations.
func validateJobBody(body []byte) (string, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "request body is required", false
	}
	result, err := jobSchemaLoader.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return "invalid JSON body", false
	}
	if result.Valid() {
		return "", true
	}
	var msgs []string
	for i, desc := range result.Errors() {
		if i == 3 {
			break
		}
		msgs = append(msgs, desc.String())
	}
	return strings.Join(msgs, "; "), false
}

// CreateJobHandler stores a new posting.
func CreateJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if msg, ok := validateJobBody(body); !ok {
			return errBadRequest(c, msg)
		}

		var job domain.JobPosting
		if err := json.Unmarshal(body, &job); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		if err := deps.Jobs.Create(c.UserContext(), &job); err != nil {
			return serviceError(c, err)
		}

		c.Location("/v1/jobs/" + job.ID)
		return c.Status(fiber.StatusCreated).JSON(job)
	}
}

// DeleteJobHandler removes a posting.
func DeleteJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Jobs.Delete(c.UserContext(), c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
