package postgres

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// Postings are stored as loosely-typed JSONB documents. decodeJobDocument is
// the only place that turns one back into a domain.JobPosting: unknown keys
// are ignored, wrongly-typed fields read as empty, and a missing or malformed
// coordinate reads as "not geotagged" rather than as an error.
func decodeJobDocument(id string, postedAt time.Time, doc map[string]any) domain.JobPosting {
	job := domain.JobPosting{
		ID:             id,
		PostedAt:       postedAt,
		Title:          stringField(doc, "title"),
		Company:        stringField(doc, "company"),
		Description:    stringField(doc, "description"),
		LocationText:   stringField(doc, "location_text"),
		EmploymentType: stringField(doc, "employment_type"),
		Salary:         stringField(doc, "salary"),
		EmployerID:     stringField(doc, "employer_id"),
		Coordinate:     coordinateField(doc),
	}
	return job
}

// encodeJobDocument is the inverse of decodeJobDocument. ID and PostedAt live
// in their own columns.
func encodeJobDocument(job *domain.JobPosting) ([]byte, error) {
	doc := map[string]any{
		"title": job.Title,
	}
	putString(doc, "company", job.Company)
	putString(doc, "description", job.Description)
	putString(doc, "location_text", job.LocationText)
	putString(doc, "employment_type", job.EmploymentType)
	putString(doc, "salary", job.Salary)
	putString(doc, "employer_id", job.EmployerID)
	if job.Coordinate != nil {
		doc["coordinate"] = map[string]float64{"lat": job.Coordinate.Lat, "lon": job.Coordinate.Lon}
	}
	return json.Marshal(doc)
}

func encodeCoordinate(c domain.Coordinate) ([]byte, error) {
	return json.Marshal(map[string]float64{"lat": c.Lat, "lon": c.Lon})
}

func putString(doc map[string]any, key, v string) {
	if v != "" {
		doc[key] = v
	}
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

// coordinateField accepts {"coordinate":{"lat","lon"}}, the older
// {"location":{"latitude","longitude"}} shape, and flat latitude/longitude keys.
func coordinateField(doc map[string]any) *domain.Coordinate {
	if m, ok := doc["coordinate"].(map[string]any); ok {
		return pair(m["lat"], m["lon"])
	}
	if m, ok := doc["location"].(map[string]any); ok {
		return pair(m["latitude"], m["longitude"])
	}
	return pair(doc["latitude"], doc["longitude"])
}

func pair(lat, lon any) *domain.Coordinate {
	la, ok1 := number(lat)
	lo, ok2 := number(lon)
	if !ok1 || !ok2 {
		return nil
	}
	return &domain.Coordinate{Lat: la, Lon: lo}
}

func number(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	// NaN and Inf cannot be marshalled back to JSON.
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
