package domain

import (
	"time"
)

// JobPosting is a job listing as published by an employer.
type JobPosting struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Company        string      `json:"company,omitempty"`
	Description    string      `json:"description,omitempty"`
	LocationText   string      `json:"location_text,omitempty"`
	EmploymentType string      `json:"employment_type,omitempty"`
	Salary         string      `json:"salary,omitempty"`
	EmployerID     string      `json:"employer_id,omitempty"`
	Coordinate     *Coordinate `json:"coordinate,omitempty"` // nil when never geotagged
	PostedAt       time.Time   `json:"posted_at"`
}

// HasCoordinate reports whether the posting is geotagged.
func (j *JobPosting) HasCoordinate() bool {
	return j.Coordinate != nil
}

// RankedJobPosting is a posting paired with its distance from a seeker.
type RankedJobPosting struct {
	JobPosting
	DistanceKm float64 `json:"distance_km"`
}

// JobEvent is published when a posting is created or geotagged.
type JobEvent struct {
	Type string     `json:"type"` // "posted" | "geotagged"
	Job  JobPosting `json:"job"`
	Time time.Time  `json:"time"`
}

const (
	JobEventPosted    = "posted"
	JobEventGeotagged = "geotagged"
)
