package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/usecases"
)

// GeotagActivities holds the activity implementations for the geotag workflow.
type GeotagActivities struct {
	Geotag *usecases.GeotagService
}

// GeocodeLocation resolves location text. A nil result means no match.
func (a *GeotagActivities) GeocodeLocation(ctx context.Context, text string) (*domain.Coordinate, error) {
	return a.Geotag.Locate(ctx, text)
}

// StoreCoordinate writes the coordinate to the posting and announces it.
// A posting deleted in the meantime is not retried.
func (a *GeotagActivities) StoreCoordinate(ctx context.Context, jobID string, coord domain.Coordinate) error {
	err := a.Geotag.Store(ctx, jobID, coord)
	if errors.Is(err, domain.ErrNotFound) {
		activity.GetLogger(ctx).Info("job vanished before geotag", "job_id", jobID)
		return temporal.NewNonRetryableApplicationError("job not found", "JobNotFound", err)
	}
	return err
}
