package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Activity is one cleaned physical unit of work from the CAD export.
// Element Name doubles as the stable activity ID throughout the pipeline.
// Geometry fields are pointers so a missing value is distinguishable from
// zero; the upstream export routinely omits them.
type Activity struct {
	Name     string `json:"Element Name"`
	CWA      string `json:"CWA"`
	GUID     string `json:"GUID,omitempty"`
	Type     string `json:"Type,omitempty"`
	Duration int    `json:"Duration,omitempty"`

	Height *float64 `json:"Height,omitempty"`
	Length *float64 `json:"Length,omitempty"`
	Width  *float64 `json:"Width,omitempty"`
	Volume *float64 `json:"Volume,omitempty"`

	MinX *float64 `json:"MinOfMinX,omitempty"`
	MaxX *float64 `json:"MaxOfMaxX,omitempty"`
	MinY *float64 `json:"MinOfMinY,omitempty"`
	MaxY *float64 `json:"MaxOfMaxY,omitempty"`
	MinZ *float64 `json:"MinOfMinZ,omitempty"`
	MaxZ *float64 `json:"MaxOfMaxZ,omitempty"`
}

// Box is a horizontal (plan-view) bounding rectangle.
type Box struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// HorizontalBox returns the activity's plan-view footprint. The second
// return is false when any horizontal bound is missing.
func (a *Activity) HorizontalBox() (Box, bool) {
	if a.MinX == nil || a.MaxX == nil || a.MinY == nil || a.MaxY == nil {
		return Box{}, false
	}
	return Box{
		MinX: *a.MinX, MaxX: *a.MaxX,
		MinY: *a.MinY, MaxY: *a.MaxY,
	}, true
}

// ReadFile loads a list of cleaned activity records from a JSON file.
func ReadFile(path string) ([]Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}
	var acts []Activity
	if err := json.Unmarshal(data, &acts); err != nil {
		return nil, fmt.Errorf("parse activities %s: %w", path, err)
	}
	return acts, nil
}

// WriteFile writes activity records as indented JSON.
func WriteFile(path string, acts []Activity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(acts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal activities: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Float returns a pointer to v, for building records in tests and cleaning.
func Float(v float64) *float64 {
	return &v
}
