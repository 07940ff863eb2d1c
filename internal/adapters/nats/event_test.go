package natsadapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/workradius/internal/core/domain"
)

func TestEventRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	job := &domain.JobPosting{
		ID:         "job-1",
		Title:      "Cook",
		Coordinate: &domain.Coordinate{Lat: 43.26, Lon: -2.93},
	}

	data, err := encodeEvent(domain.JobEventGeotagged, job, at)
	require.NoError(t, err)

	event, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, domain.JobEventGeotagged, event.Type)
	assert.Equal(t, "job-1", event.Job.ID)
	assert.Equal(t, job.Coordinate, event.Job.Coordinate)
	assert.True(t, at.Equal(event.Time))
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"type":"posted","job":{"title":"x"}}`))
	assert.Error(t, err)
}

func TestMsgID(t *testing.T) {
	job := &domain.JobPosting{ID: "job-1", Coordinate: &domain.Coordinate{Lat: 43.26, Lon: -2.93}}
	moved := &domain.JobPosting{ID: "job-1", Coordinate: &domain.Coordinate{Lat: 40.4168, Lon: -3.7038}}

	assert.Equal(t, "posted-job-1", msgID(domain.JobEventPosted, job))
	assert.Equal(t, msgID(domain.JobEventGeotagged, job), msgID(domain.JobEventGeotagged, job))
	assert.NotEqual(t, msgID(domain.JobEventGeotagged, job), msgID(domain.JobEventGeotagged, moved))
	assert.Equal(t, "geotagged-job-1", msgID(domain.JobEventGeotagged, &domain.JobPosting{ID: "job-1"}))
}
