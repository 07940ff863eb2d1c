package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/workradius/internal/core/domain"
)

var errSeekerRequired = errors.New("lat and lon are required")

// nearbyQuery is a validated proximity request.
type nearbyQuery struct {
	Seeker   domain.Coordinate
	RadiusKm float64
}

// parseNearbyQuery validates raw lat/lon/radius_km values. lat and lon must
// be present, zero is a valid value. An empty radius selects defRadius.
func parseNearbyQuery(rawLat, rawLon, rawRadius string, defRadius, maxRadius float64) (nearbyQuery, error) {
	var q nearbyQuery
	if strings.TrimSpace(rawLat) == "" || strings.TrimSpace(rawLon) == "" {
		return q, errSeekerRequired
	}
	lat, err := parseFloat("lat", rawLat)
	if err != nil {
		return q, err
	}
	lon, err := parseFloat("lon", rawLon)
	if err != nil {
		return q, err
	}

	var radius *float64
	if strings.TrimSpace(rawRadius) != "" {
		r, err := parseFloat("radius_km", rawRadius)
		if err != nil {
			return q, err
		}
		radius = &r
	}
	return newNearbyQuery(lat, lon, radius, defRadius, maxRadius)
}

// newNearbyQuery validates already-typed values. A nil radius selects defRadius.
func newNearbyQuery(lat, lon float64, radius *float64, defRadius, maxRadius float64) (nearbyQuery, error) {
	q := nearbyQuery{Seeker: domain.Coordinate{Lat: lat, Lon: lon}, RadiusKm: defRadius}
	if !q.Seeker.Valid() {
		return q, errors.New("lat must be within [-90, 90] and lon within [-180, 180]")
	}
	if radius != nil {
		q.RadiusKm = *radius
	}
	if !(q.RadiusKm > 0) || (maxRadius > 0 && q.RadiusKm > maxRadius) {
		return q, fmt.Errorf("radius_km must be greater than 0 and at most %g", maxRadius)
	}
	return q, nil
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}
