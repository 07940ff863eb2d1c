package geocoder

import (
	"context"
	"fmt"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// Geocoder implements ports.Geocoder on top of a geo-golang resolver.
type Geocoder struct {
	resolver geo.Geocoder
}

// NewOpenStreetMap returns a Geocoder backed by Nominatim. An empty baseURL
// uses the public endpoint.
func NewOpenStreetMap(baseURL string) *Geocoder {
	if baseURL == "" {
		return New(openstreetmap.Geocoder())
	}
	return New(openstreetmap.GeocoderWithURL(baseURL))
}

// New wraps an arbitrary geo-golang resolver.
func New(resolver geo.Geocoder) *Geocoder {
	return &Geocoder{resolver: resolver}
}

type result struct {
	loc *geo.Location
	err error
}

// Geocode resolves text to a coordinate. It returns nil, nil when the
// resolver finds nothing.
func (g *Geocoder) Geocode(ctx context.Context, text string) (*domain.Coordinate, error) {
	// geo-golang has no context support; run the lookup so ctx can abandon it.
	ch := make(chan result, 1)
	go func() {
		loc, err := g.resolver.Geocode(text)
		ch <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("geocode %q: %w", text, r.err)
		}
		if r.loc == nil {
			return nil, nil
		}
		return &domain.Coordinate{Lat: r.loc.Lat, Lon: r.loc.Lng}, nil
	}
}
