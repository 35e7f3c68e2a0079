package aggregate

import (
	"sort"

	"metrolog/internal/registry"
	"metrolog/pkg/contracts/domain"
)

// Options scope an aggregation.
type Options struct {
	// Order restricts rows to one manufacturing order when set.
	Order *string
	// SlotCount is the number of angular slots on the part, 12 when zero.
	SlotCount int
}

func (o Options) slotCount() int {
	if o.SlotCount <= 0 {
		return registry.DefaultSlotCount
	}
	return o.SlotCount
}

func (o Options) scope(rows []domain.Measurement) []domain.Measurement {
	if o.Order == nil {
		return rows
	}
	var out []domain.Measurement
	for _, m := range rows {
		if m.OrderID == *o.Order {
			out = append(out, m)
		}
	}
	return out
}

type angularReading struct {
	value float64
	order string
}

type angularDimension struct {
	first    domain.Measurement
	angle    float64
	readings []angularReading
}

// Angular builds one series per dimension whose profile has an angular
// position. Series share one ascending angle axis. When several rows of a
// dimension fall on the same angle the last one is kept and the others are
// listed in Duplicates.
func Angular(rows []domain.Measurement, profiles map[string]domain.DimensionProfile, opts Options) domain.AngularAggregate {
	dims := make(map[string]*angularDimension)
	var names []string

	for _, m := range opts.scope(rows) {
		d, ok := dims[m.DimensionName]
		if !ok {
			p, known := profiles[m.DimensionName]
			if !known {
				continue
			}
			angle, placed := registry.Angle(p, opts.slotCount())
			if !placed {
				continue
			}
			d = &angularDimension{first: m, angle: angle}
			dims[m.DimensionName] = d
			names = append(names, m.DimensionName)
		}
		d.readings = append(d.readings, angularReading{value: m.Measured, order: m.OrderID})
	}
	sort.Strings(names)

	angleSet := make(map[float64]struct{})
	for _, d := range dims {
		angleSet[d.angle] = struct{}{}
	}
	angles := make([]float64, 0, len(angleSet))
	for a := range angleSet {
		angles = append(angles, a)
	}
	sort.Float64s(angles)

	agg := domain.AngularAggregate{
		Angles:     angles,
		Series:     make([]domain.AngularSeries, 0, len(names)),
		Duplicates: []domain.DuplicateReading{},
	}
	for _, name := range names {
		d := dims[name]
		kept := d.readings[len(d.readings)-1]
		for _, r := range d.readings[:len(d.readings)-1] {
			agg.Duplicates = append(agg.Duplicates, domain.DuplicateReading{
				Dimension: name,
				Angle:     d.angle,
				OrderID:   r.order,
				Kept:      kept.value,
				Dropped:   r.value,
			})
		}

		values := make([]*float64, len(angles))
		for i, a := range angles {
			if a == d.angle {
				v := kept.value
				values[i] = &v
			}
		}

		var groupID *int
		if p := profiles[name]; p.GroupID != nil {
			id := *p.GroupID
			groupID = &id
		}

		agg.Series = append(agg.Series, domain.AngularSeries{
			Dimension:    name,
			GroupID:      groupID,
			Angles:       angles,
			Values:       values,
			Nominal:      d.first.Nominal,
			ToleranceMin: d.first.ToleranceMin,
			ToleranceMax: d.first.ToleranceMax,
		})
	}
	return agg
}

// Deviations returns the deviation from nominal of every series with a
// reading at angle, in series order.
func Deviations(agg domain.AngularAggregate, angle float64) []domain.DeviationPoint {
	points := []domain.DeviationPoint{}
	for _, s := range agg.Series {
		v, ok := s.ValueAt(angle)
		if !ok {
			continue
		}
		points = append(points, domain.DeviationPoint{
			Dimension:      s.Dimension,
			Measured:       v,
			Deviation:      v - s.Nominal,
			OutOfTolerance: v < s.ToleranceMin || v > s.ToleranceMax,
		})
	}
	return points
}
