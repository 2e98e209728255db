package bearing

import (
	"math"
	"sort"
	"strings"
)

// CatalogEntry is one bearing in the built-in designation catalog.
type CatalogEntry struct {
	Designation string   `json:"designation"`
	Name        string   `json:"name"`
	Geometry    Geometry `json:"geometry"`
}

func degrees(d float64) float64 { return d * math.Pi / 180 }

// catalog maps upper-case designations to geometry. Dimensions follow the
// manufacturers' published values for common deep-groove, cylindrical-roller
// and angular-contact bearings.
var catalog = map[string]CatalogEntry{
	"6205":  {Designation: "6205", Name: "6205 (Deep groove)", Geometry: Geometry{NumRollers: 9, BallDiameter: 7.938, PitchDiameter: 38.5}},
	"6206":  {Designation: "6206", Name: "6206 (Deep groove)", Geometry: Geometry{NumRollers: 9, BallDiameter: 9.525, PitchDiameter: 46.0}},
	"6207":  {Designation: "6207", Name: "6207 (Deep groove)", Geometry: Geometry{NumRollers: 9, BallDiameter: 11.112, PitchDiameter: 53.5}},
	"6208":  {Designation: "6208", Name: "6208 (Deep groove)", Geometry: Geometry{NumRollers: 9, BallDiameter: 12.7, PitchDiameter: 60.0}},
	"6305":  {Designation: "6305", Name: "6305 (Deep groove)", Geometry: Geometry{NumRollers: 8, BallDiameter: 10.319, PitchDiameter: 39.04}},
	"6306":  {Designation: "6306", Name: "6306 (Deep groove)", Geometry: Geometry{NumRollers: 8, BallDiameter: 12.303, PitchDiameter: 46.36}},
	"NU205": {Designation: "NU205", Name: "NU205 (Cylindrical roller)", Geometry: Geometry{NumRollers: 13, BallDiameter: 7.5, PitchDiameter: 38.5}},
	"NU206": {Designation: "NU206", Name: "NU206 (Cylindrical roller)", Geometry: Geometry{NumRollers: 13, BallDiameter: 9.0, PitchDiameter: 46.0}},
	"7205":  {Designation: "7205", Name: "7205 (Angular contact)", Geometry: Geometry{NumRollers: 12, BallDiameter: 7.144, PitchDiameter: 38.0, ContactAngle: degrees(25)}},
}

// Lookup finds a catalog entry by designation, case-insensitively.
func Lookup(designation string) (CatalogEntry, bool) {
	entry, ok := catalog[strings.ToUpper(strings.TrimSpace(designation))]
	return entry, ok
}

// ListCatalog returns all catalog entries sorted by designation.
func ListCatalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(catalog))
	for _, e := range catalog {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Designation < entries[j].Designation })
	return entries
}
