package domain

import "errors"

var (
	// ErrNotFound is returned when a posting does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCandidateFetch marks a failure of the store to return a candidate pool.
	ErrCandidateFetch = errors.New("candidate fetch failed")

	// ErrInvalidJob is returned for postings that fail validation.
	ErrInvalidJob = errors.New("invalid job posting")
)
