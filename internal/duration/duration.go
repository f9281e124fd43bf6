// Package duration assigns each cleaned activity a default execution
// duration in whole days. Durations scale a per-type base by the
// activity's size relative to the median of its peers, with a per-type
// exponent damping the growth.
package duration

import (
	"fmt"
	"math"
	"sort"

	"github.com/johns/sitewise/internal/activity"
	"github.com/johns/sitewise/internal/classify"
)

// installExponents damp size scaling per install type.
var installExponents = map[string]float64{
	"Concrete":          0.90,
	"Grout":             0.80,
	"Piling":            0.80,
	"Cable Tray":        0.60,
	"Electrical":        0.50,
	"Instrumentation":   0.50,
	"Piping":            0.70,
	"Piping Insulation": 0.65,
	"UG Conduit":        0.70,
	"Transformer":       0.50,
	"Civil Works":       0.90,
}

// installBaseDays is the duration of a median-sized activity per type.
var installBaseDays = map[string]float64{
	"Concrete":          3.0,
	"Grout":             0.5,
	"Piling":            2.0,
	"Cable Tray":        3.0,
	"Electrical":        5.0,
	"Instrumentation":   4.0,
	"Piping":            4.0,
	"Piping Insulation": 3.0,
	"UG Conduit":        3.0,
	"Transformer":       1.5,
	"Civil Works":       3.0,
}

var installBounds = map[string][2]float64{
	"Concrete":          {0.5, 10.0},
	"Civil Works":       {0.5, 10.0},
	"Grout":             {0.25, 2.0},
	"Piling":            {0.5, 8.0},
	"Piping":            {1.0, 10.0},
	"Piping Insulation": {0.5, 8.0},
	"Cable Tray":        {0.5, 8.0},
	"UG Conduit":        {1.0, 8.0},
	"Electrical":        {1.0, 12.0},
	"Instrumentation":   {1.0, 10.0},
	"Transformer":       {0.5, 5.0},
}

var equipmentBaseDays = map[string]float64{
	"module_valve":              0.5,
	"module_motor_pump_fan":     1.5,
	"module_ahu":                1.5,
	"module_transformer":        1.5,
	"module_switchgear":         2.0,
	"module_vessel":             2.0,
	"module_tank":               2.5,
	"module_vaporizer_heater":   2.0,
	"module_compressor":         2.5,
	"module_crane":              1.0,
	"module_weighscale":         1.0,
	"module_building_equipment": 3.0,
	"module_other":              1.5,
}

// Equipment sets scale shallowly on volume.
var equipmentExponents = map[string]float64{
	"module_valve":              0.40,
	"module_motor_pump_fan":     0.50,
	"module_ahu":                0.50,
	"module_transformer":        0.50,
	"module_switchgear":         0.60,
	"module_vessel":             0.60,
	"module_tank":               0.60,
	"module_vaporizer_heater":   0.60,
	"module_compressor":         0.60,
	"module_crane":              0.40,
	"module_weighscale":         0.40,
	"module_building_equipment": 0.60,
	"module_other":              0.50,
}

// Assign classifies each activity's type from its name and sets a duration
// in whole days. It returns a new slice; the input is not modified.
// A non-Set activity whose type has no configured exponent is a data error:
// the upstream export must only contain the known install types.
func Assign(acts []activity.Activity) ([]activity.Activity, error) {
	// First pass: collect the per-type size metrics so medians reflect the
	// whole input set.
	metricsByType := make(map[string][]float64)
	var setVolumes []float64
	for i := range acts {
		a := &acts[i]
		if classify.IsSet(a.Name) {
			setVolumes = append(setVolumes, volume(a))
			continue
		}
		if t := classify.TypeFromName(a.Name); t != "" {
			metricsByType[t] = append(metricsByType[t], metric(a, t))
		}
	}

	medianByType := make(map[string]float64, len(metricsByType))
	for t, vs := range metricsByType {
		medianByType[t] = median(vs)
	}
	setMedian := median(setVolumes)

	out := make([]activity.Activity, len(acts))
	for i := range acts {
		a := acts[i]
		actType := classify.TypeFromName(a.Name)

		var days float64
		if classify.IsSet(a.Name) {
			subtype := classify.EquipmentSubtype(a.Name)
			days = scale(volume(&a), setMedian, equipmentBaseDays[subtype], equipmentExponents[subtype])
			days = clamp(days, 0.25, 7.0)
		} else {
			beta, ok := installExponents[actType]
			if !ok {
				return nil, fmt.Errorf("no duration exponent configured for type %q (activity %q)", actType, a.Name)
			}
			days = scale(metric(&a, actType), medianByType[actType], installBaseDays[actType], beta)
			bounds, ok := installBounds[actType]
			if !ok {
				bounds = [2]float64{0.25, 15.0}
			}
			days = clamp(days, bounds[0], bounds[1])
		}

		// Field calibration: concrete pours run half the modeled time, and
		// everything gets a 50% contingency with a one-day floor.
		if actType == "Concrete" {
			days *= 0.5
		}
		days = math.Ceil(math.Max(1.0, days*1.5))

		a.Type = actType
		a.Duration = int(days)
		out[i] = a
	}
	return out, nil
}

// scale computes base * (value/median)^beta, treating a missing or
// zero median as neutral.
func scale(value, med, base, beta float64) float64 {
	if med <= 0 {
		return base
	}
	return base * math.Pow(value/med, beta)
}

// metric picks the size measure that drives a type's duration: bulk trades
// go by volume, linear trades by run length, area trades by plan area, and
// piling by driven height.
func metric(a *activity.Activity, actType string) float64 {
	switch actType {
	case "Concrete", "Grout", "Civil Works", "Transformer":
		return volume(a)
	case "Piping", "Piping Insulation", "Cable Tray", "UG Conduit":
		return math.Max(deref(a.Length), deref(a.Width))
	case "Electrical", "Instrumentation":
		return math.Max(0, deref(a.Length)*deref(a.Width))
	case "Piling":
		return deref(a.Height)
	default:
		return volume(a)
	}
}

// volume prefers the precomputed Volume, then H*L*W, then the bounding box.
func volume(a *activity.Activity) float64 {
	if a.Volume != nil {
		return math.Max(0, *a.Volume)
	}
	if a.Height != nil && a.Length != nil && a.Width != nil {
		return math.Max(0, *a.Height**a.Length**a.Width)
	}
	if a.MinX != nil && a.MaxX != nil && a.MinY != nil && a.MaxY != nil && a.MinZ != nil && a.MaxZ != nil {
		dx := math.Max(0, *a.MaxX-*a.MinX)
		dy := math.Max(0, *a.MaxY-*a.MinY)
		dz := math.Max(0, *a.MaxZ-*a.MinZ)
		return dx * dy * dz
	}
	return 0
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return 0.5 * (vals[mid-1] + vals[mid])
}
