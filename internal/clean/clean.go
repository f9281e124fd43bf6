// Package clean normalizes the raw CAD property export into the flat
// activity records the rest of the pipeline consumes. The export mixes
// "Layer" rows (the schedulable activities) with "3D Solid" rows (the
// geometry); cleaning joins each layer to its first solid by normalized
// layer name and derives the CWA code, volume, and bounding box.
package clean

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/johns/sitewise/internal/activity"
	"github.com/johns/sitewise/internal/classify"
)

const geomPrefix = "AutoCAD Geometry."

// Record is one row of the raw export.
type Record map[string]any

// ReadFile loads raw export records from a JSON file.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw export: %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse raw export %s: %w", path, err)
	}
	return recs, nil
}

// Clean joins layers to solids and emits one cleaned activity per layer.
func Clean(records []Record) []activity.Activity {
	var layers, solids []Record
	for _, r := range records {
		switch strings.ToLower(strings.TrimSpace(str(r["Category/Class"]))) {
		case "layer":
			layers = append(layers, r)
		case "3d solid":
			solids = append(solids, r)
		}
	}

	solidsByLayer := make(map[string][]Record)
	for _, s := range solids {
		key := normKey(layerKey(s))
		if key == "" {
			continue
		}
		solidsByLayer[key] = append(solidsByLayer[key], s)
	}

	cleaned := make([]activity.Activity, 0, len(layers))
	for _, layer := range layers {
		name := layerKey(layer)

		cwa := classify.CWAFromName(name)
		if cwa == "" {
			cwa = classify.CWAFromName(str(layer["Element Name"]))
		}

		var geom geometry
		for _, s := range solidsByLayer[normKey(name)] {
			geom = collectGeometry(s)
			if !geom.empty() {
				break
			}
		}

		a := activity.Activity{
			Name:   str(layer["Element Name"]),
			CWA:    cwa,
			GUID:   str(layer["GUID"]),
			Height: geom.height,
			Length: geom.length,
			Width:  geom.width,
		}

		if geom.height != nil && geom.length != nil && geom.width != nil {
			a.Volume = activity.Float(*geom.height * *geom.length * *geom.width)
		}

		// Bounding box: position is the footprint center; Z spans the
		// element height upward from its base elevation.
		if geom.posX != nil && geom.length != nil {
			half := *geom.length / 2
			a.MinX = activity.Float(*geom.posX - half)
			a.MaxX = activity.Float(*geom.posX + half)
		}
		if geom.posY != nil && geom.width != nil {
			half := *geom.width / 2
			a.MinY = activity.Float(*geom.posY - half)
			a.MaxY = activity.Float(*geom.posY + half)
		}
		if geom.posZ != nil && geom.height != nil {
			a.MinZ = activity.Float(*geom.posZ)
			a.MaxZ = activity.Float(*geom.posZ + *geom.height)
		}

		cleaned = append(cleaned, a)
	}
	return cleaned
}

type geometry struct {
	posX, posY, posZ      *float64
	height, length, width *float64
}

func (g geometry) empty() bool {
	return g.posX == nil && g.posY == nil && g.posZ == nil &&
		g.height == nil && g.length == nil && g.width == nil
}

// collectGeometry pulls the AutoCAD Geometry.* properties from a solid row.
// Solid type and Rotation rows (including numbered duplicates) carry no
// scheduling signal and are skipped.
func collectGeometry(rec Record) geometry {
	var g geometry
	for k, v := range rec {
		if !strings.HasPrefix(k, geomPrefix) {
			continue
		}
		short := strings.ToLower(k[len(geomPrefix):])
		switch {
		case strings.HasPrefix(short, "solid type"), strings.HasPrefix(short, "rotation"):
			continue
		case strings.HasPrefix(short, "position x"):
			g.posX = toFloat(v)
		case strings.HasPrefix(short, "position y"):
			g.posY = toFloat(v)
		case strings.HasPrefix(short, "position z"):
			g.posZ = toFloat(v)
		case strings.HasPrefix(short, "height"):
			g.height = toFloat(v)
		case strings.HasPrefix(short, "length"):
			g.length = toFloat(v)
		case strings.HasPrefix(short, "width"):
			g.width = toFloat(v)
		}
	}
	return g
}

// layerKey picks the best available name for a row, in priority order.
func layerKey(rec Record) string {
	for _, k := range []string{"Item.Layer", "General.Layer", "Item.Name", "General.Name", "Element Name"} {
		if v := str(rec[k]); v != "" {
			return v
		}
	}
	return ""
}

var keyCollapse = regexp.MustCompile(`[\s_]+`)

// normKey normalizes a layer name for joining: lowercased, whitespace and
// underscore runs unified to a single underscore.
func normKey(s string) string {
	if s == "" {
		return ""
	}
	return keyCollapse.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// toFloat coerces export values to float64, handling strings in scientific
// notation like "9.99999974737875E-06". Returns nil when not numeric.
func toFloat(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return activity.Float(x)
	case int:
		return activity.Float(float64(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return activity.Float(f)
	default:
		return nil
	}
}
