package clean

import (
	"math"
	"testing"
)

func layerRecord(name string) Record {
	return Record{
		"Category/Class": "Layer",
		"Element Name":   name,
		"Item.Layer":     name,
		"GUID":           "guid-" + name,
	}
}

func solidRecord(layer string, x, y, z, h, l, w float64) Record {
	return Record{
		"Category/Class":              "3D Solid",
		"Item.Layer":                  layer,
		"AutoCAD Geometry.Position X": x,
		"AutoCAD Geometry.Position Y": y,
		"AutoCAD Geometry.Position Z": z,
		"AutoCAD Geometry.Height":     h,
		"AutoCAD Geometry.Length":     l,
		"AutoCAD Geometry.Width":      w,
	}
}

func TestClean_JoinAndGeometry(t *testing.T) {
	name := "CWA_ASU-1A01_-_Install_Concrete"
	records := []Record{
		layerRecord(name),
		solidRecord(name, 100, 200, 10, 2, 8, 4),
	}

	cleaned := Clean(records)
	if len(cleaned) != 1 {
		t.Fatalf("cleaned = %d records, want 1", len(cleaned))
	}

	a := cleaned[0]
	if a.Name != name {
		t.Errorf("Name = %q", a.Name)
	}
	if a.CWA != "1A01" {
		t.Errorf("CWA = %q, want 1A01", a.CWA)
	}
	if a.GUID != "guid-"+name {
		t.Errorf("GUID = %q", a.GUID)
	}
	if a.Volume == nil || *a.Volume != 2*8*4 {
		t.Errorf("Volume = %v, want 64", a.Volume)
	}

	// Footprint centered on position, Z spanning [z, z+h].
	if a.MinX == nil || *a.MinX != 96 || *a.MaxX != 104 {
		t.Errorf("X bounds = %v..%v, want 96..104", a.MinX, a.MaxX)
	}
	if a.MinY == nil || *a.MinY != 198 || *a.MaxY != 202 {
		t.Errorf("Y bounds = %v..%v, want 198..202", a.MinY, a.MaxY)
	}
	if a.MinZ == nil || *a.MinZ != 10 || *a.MaxZ != 12 {
		t.Errorf("Z bounds = %v..%v, want 10..12", a.MinZ, a.MaxZ)
	}
}

func TestClean_JoinIsSeparatorTolerant(t *testing.T) {
	records := []Record{
		layerRecord("CWA_ASU-1A01_-_Install_Piping"),
		solidRecord("CWA ASU-1A01 - Install Piping", 0, 0, 0, 1, 2, 3),
	}

	cleaned := Clean(records)
	if len(cleaned) != 1 {
		t.Fatalf("cleaned = %d records, want 1", len(cleaned))
	}
	if cleaned[0].Volume == nil {
		t.Error("solid not joined across separator variants")
	}
}

func TestClean_LayerWithoutSolid(t *testing.T) {
	cleaned := Clean([]Record{layerRecord("CWA_ASU-1A02_-_Install_Piling")})
	if len(cleaned) != 1 {
		t.Fatalf("cleaned = %d records, want 1", len(cleaned))
	}
	a := cleaned[0]
	if a.Volume != nil || a.MinX != nil || a.MinZ != nil {
		t.Error("geometry present for a layer with no solid")
	}
	if a.CWA != "1A02" {
		t.Errorf("CWA = %q, want 1A02", a.CWA)
	}
}

func TestClean_SkipsNonLayerRows(t *testing.T) {
	records := []Record{
		solidRecord("some_layer", 0, 0, 0, 1, 1, 1),
		{"Category/Class": "Block Reference", "Element Name": "x"},
	}
	if got := Clean(records); len(got) != 0 {
		t.Errorf("cleaned = %d records, want 0", len(got))
	}
}

func TestClean_ScientificNotationStrings(t *testing.T) {
	name := "CWA_ASU-1A01_-_Install_Grout"
	solid := solidRecord(name, 0, 0, 0, 0, 0, 0)
	solid["AutoCAD Geometry.Height"] = "9.99999974737875E-06"
	solid["AutoCAD Geometry.Length"] = "2.0"
	solid["AutoCAD Geometry.Width"] = "1.0"

	cleaned := Clean([]Record{layerRecord(name), solid})
	a := cleaned[0]
	if a.Height == nil || math.Abs(*a.Height-9.99999974737875e-06) > 1e-18 {
		t.Errorf("Height = %v", a.Height)
	}
	if a.Volume == nil {
		t.Error("Volume not computed from string-typed extents")
	}
}

func TestClean_ExcludedGeometryKeys(t *testing.T) {
	name := "CWA_ASU-1A01_-_Install_Concrete"
	solid := solidRecord(name, 1, 1, 1, 1, 1, 1)
	solid["AutoCAD Geometry.Solid type"] = "Box"
	solid["AutoCAD Geometry.Solid type (2)"] = "Box"
	solid["AutoCAD Geometry.Rotation"] = 45.0

	cleaned := Clean([]Record{layerRecord(name), solid})
	if cleaned[0].Volume == nil || *cleaned[0].Volume != 1 {
		t.Errorf("Volume = %v, want 1", cleaned[0].Volume)
	}
}
