package aggregate

import (
	"fmt"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

// MinRadarPoints is the number of readings needed to draw a profile shape.
const MinRadarPoints = 3

// GroupRadar collects the readings of a group's members at angle. Every
// member must be a radius with an angular position. Members without a
// reading at angle are skipped; a group left with fewer than MinRadarPoints
// points is returned with Excluded set.
func GroupRadar(group domain.ProfileGroup, profiles map[string]domain.DimensionProfile, agg domain.AngularAggregate, angle float64) (domain.RadarResult, error) {
	for _, name := range group.Members {
		p, ok := profiles[name]
		if !ok {
			return domain.RadarResult{}, apierrors.NewNotFoundError("dimension", name)
		}
		if p.Type != domain.TypeRadius {
			return domain.RadarResult{}, apierrors.NewValidationError("members",
				fmt.Sprintf("dimension %q is %s, radar groups hold radii only", name, p.Type), name)
		}
		if !p.Angular.IsSet() {
			return domain.RadarResult{}, apierrors.NewValidationError("members",
				fmt.Sprintf("dimension %q has no angular position", name), name)
		}
	}

	series := make(map[string]domain.AngularSeries, len(agg.Series))
	for _, s := range agg.Series {
		series[s.Dimension] = s
	}

	result := domain.RadarResult{GroupID: group.ID, Angle: angle, Points: []domain.RadarPoint{}}
	for _, name := range group.Members {
		s, ok := series[name]
		if !ok {
			continue
		}
		v, ok := s.ValueAt(angle)
		if !ok {
			continue
		}
		result.Points = append(result.Points, domain.RadarPoint{
			Dimension:    name,
			Angle:        angle,
			Value:        v,
			Nominal:      s.Nominal,
			ToleranceMin: s.ToleranceMin,
			ToleranceMax: s.ToleranceMax,
		})
	}

	if len(result.Points) < MinRadarPoints {
		result.Excluded = true
		result.Reason = fmt.Sprintf("%d of %d members have a reading at %g°, at least %d are needed",
			len(result.Points), len(group.Members), angle, MinRadarPoints)
	}
	return result, nil
}
