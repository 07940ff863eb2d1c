package usecases

import (
	"sort"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// RankByDistance keeps the geotagged candidates within radiusKm of the seeker
// and orders them nearest first. Ties keep their input order.
// Candidates are copied; the input slice is never modified.
func RankByDistance(seeker domain.Coordinate, candidates []domain.JobPosting, radiusKm float64) []domain.RankedJobPosting {
	ranked := make([]domain.RankedJobPosting, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasCoordinate() {
			continue
		}
		d := domain.Distance(seeker, *c.Coordinate)
		// also drops NaN from malformed coordinates
		if !(d <= radiusKm) {
			continue
		}
		coord := *c.Coordinate
		c.Coordinate = &coord
		ranked = append(ranked, domain.RankedJobPosting{JobPosting: c, DistanceKm: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}
