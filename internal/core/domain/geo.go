package domain

import "github.com/samirrijal/workradius/internal/pkg/geospatial"

// Coordinate represents a geographic coordinate (WGS 84) in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Distance returns the great-circle distance between a and b in kilometres.
// Ranges are not validated.
func Distance(a, b Coordinate) float64 {
	return geospatial.HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}
