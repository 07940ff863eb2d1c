package workflows

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/ports"
)

// GeotagInput is the input for the geotag workflow.
type GeotagInput struct {
	JobID        string
	LocationText string
}

// GeotagResult reports what the workflow stored.
type GeotagResult struct {
	JobID      string
	Coordinate *domain.Coordinate // nil when the text did not resolve
}

// GeotagWorkflow geocodes a posting's location text and stores the
// coordinate. Unresolvable text leaves the posting ungeotagged.
func GeotagWorkflow(ctx workflow.Context, input GeotagInput) (GeotagResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting geotag workflow", "jobID", input.JobID)

	result := GeotagResult{JobID: input.JobID}

	// Nominatim allows one request per second.
	geocodeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    5,
		},
	})

	var coord *domain.Coordinate
	if err := workflow.ExecuteActivity(geocodeCtx, "GeocodeLocation", input.LocationText).Get(ctx, &coord); err != nil {
		return result, err
	}
	if coord == nil {
		logger.Info("Location did not resolve", "jobID", input.JobID)
		return result, nil
	}

	storeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	if err := workflow.ExecuteActivity(storeCtx, "StoreCoordinate", input.JobID, *coord).Get(ctx, nil); err != nil {
		return result, err
	}

	result.Coordinate = coord
	logger.Info("Job geotagged", "jobID", input.JobID)
	return result, nil
}

// WorkflowID is the deduplication key for a posting's geotag run.
func WorkflowID(jobID string) string {
	return "geotag-" + jobID
}

// NeedsGeotag reports whether a posting has location text but no coordinate.
func NeedsGeotag(job *domain.JobPosting) bool {
	return !job.HasCoordinate() && strings.TrimSpace(job.LocationText) != ""
}

// Starter is the part of client.Client used to start workflows.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// StartGeotag starts GeotagWorkflow for job on taskQueue. Postings that do
// not need geotagging are skipped. A run already in progress for the same
// posting is reused, so redelivered events are harmless.
func StartGeotag(ctx context.Context, c Starter, taskQueue string, job *domain.JobPosting) (bool, error) {
	if !NeedsGeotag(job) {
		return false, nil
	}
	_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(job.ID),
		TaskQueue: taskQueue,
	}, GeotagWorkflow, GeotagInput{JobID: job.ID, LocationText: job.LocationText})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListenForPostings starts a geotag workflow for every posted event that
// needs one. Start failures are returned to the subscriber for redelivery.
func ListenForPostings(ctx context.Context, sub ports.EventSubscriber, c Starter, taskQueue string) error {
	return sub.SubscribeJobPosted(ctx, func(ctx context.Context, event *domain.JobEvent) error {
		started, err := StartGeotag(ctx, c, taskQueue, &event.Job)
		if err != nil {
			return err
		}
		if started {
			slog.Info("geotag workflow started", "job_id", event.Job.ID)
		}
		return nil
	})
}
