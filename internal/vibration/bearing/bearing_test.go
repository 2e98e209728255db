package bearing

import (
	"errors"
	"math"
	"testing"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
)

// geometry6205 matches the 6205 catalog entry: 9 balls, 7.938 mm ball
// diameter, 38.5 mm pitch diameter, radial contact.
var geometry6205 = Geometry{
	NumRollers:    9,
	BallDiameter:  7.938,
	PitchDiameter: 38.5,
	ContactAngle:  0,
}

func assertWithin(t *testing.T, name string, got, want, relTol float64) {
	t.Helper()
	if math.Abs(got-want) > relTol*want {
		t.Errorf("%s = %.4f Hz, want %.4f (within %.1f%%)", name, got, want, relTol*100)
	}
}

func TestFromGeometry(t *testing.T) {
	t.Run("published 6205 values at 1470 RPM", func(t *testing.T) {
		set, err := FromGeometry(geometry6205, 1470)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Reference values from bearing manufacturer fault-frequency tables.
		assertWithin(t, "ShaftHz", set.ShaftHz, 24.5, 0.001)
		assertWithin(t, "BPFO", set.BPFO, 87.5, 0.01)
		assertWithin(t, "BPFI", set.BPFI, 133.0, 0.01)
		assertWithin(t, "FTF", set.FTF, 9.72, 0.01)
		assertWithin(t, "BSF", set.BSF, 56.9, 0.01)
	})

	t.Run("identities hold for any geometry", func(t *testing.T) {
		g := Geometry{NumRollers: 12, BallDiameter: 10, PitchDiameter: 60, ContactAngle: degrees(15)}
		set, err := FromGeometry(g, 3000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		n := float64(g.NumRollers)
		// BPFO + BPFI = N * shaft frequency.
		if got, want := set.BPFO+set.BPFI, n*set.ShaftHz; math.Abs(got-want) > 1e-9 {
			t.Errorf("BPFO+BPFI = %.6f, want N*shaftHz = %.6f", got, want)
		}
		// BPFO = N * FTF.
		if got, want := set.BPFO, n*set.FTF; math.Abs(got-want) > 1e-9 {
			t.Errorf("BPFO = %.6f, want N*FTF = %.6f", got, want)
		}
		// Ordering: FTF < shaft < BPFO < BPFI for typical geometries.
		if !(set.FTF < set.ShaftHz && set.ShaftHz < set.BPFO && set.BPFO < set.BPFI) {
			t.Errorf("unexpected frequency ordering: %+v", set)
		}
	})

	t.Run("contact angle reduces the spread", func(t *testing.T) {
		radial := Geometry{NumRollers: 9, BallDiameter: 8, PitchDiameter: 40}
		angular := radial
		angular.ContactAngle = degrees(25)

		setR, err := FromGeometry(radial, 1800)
		if err != nil {
			t.Fatal(err)
		}
		setA, err := FromGeometry(angular, 1800)
		if err != nil {
			t.Fatal(err)
		}
		if setA.BPFI-setA.BPFO >= setR.BPFI-setR.BPFO {
			t.Errorf("contact angle should narrow BPFI-BPFO spread: radial %.3f, angular %.3f",
				setR.BPFI-setR.BPFO, setA.BPFI-setA.BPFO)
		}
	})

	t.Run("invalid inputs", func(t *testing.T) {
		cases := map[string]struct {
			g   Geometry
			rpm float64
		}{
			"zero rpm":         {geometry6205, 0},
			"negative rpm":     {geometry6205, -100},
			"no rollers":       {Geometry{NumRollers: 0, BallDiameter: 8, PitchDiameter: 40}, 1000},
			"zero pitch":       {Geometry{NumRollers: 9, BallDiameter: 8, PitchDiameter: 0}, 1000},
			"ball above pitch": {Geometry{NumRollers: 9, BallDiameter: 50, PitchDiameter: 40}, 1000},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := FromGeometry(tc.g, tc.rpm)
				if !errors.Is(err, vibration.ErrInvalidInput) {
					t.Fatalf("error = %v, want ErrInvalidInput", err)
				}
			})
		}
	})
}

func TestFromCatalog(t *testing.T) {
	t.Run("matches geometry path", func(t *testing.T) {
		fromCat, err := FromCatalog("6205", 1470)
		if err != nil {
			t.Fatal(err)
		}
		fromGeo, err := FromGeometry(geometry6205, 1470)
		if err != nil {
			t.Fatal(err)
		}
		if fromCat != fromGeo {
			t.Errorf("catalog path %+v != geometry path %+v", fromCat, fromGeo)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		a, err := FromCatalog("nu205", 1000)
		if err != nil {
			t.Fatal(err)
		}
		b, err := FromCatalog("NU205", 1000)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("lookup should be case insensitive: %+v vs %+v", a, b)
		}
	})

	t.Run("unknown designation", func(t *testing.T) {
		_, err := FromCatalog("9999", 1000)
		if !errors.Is(err, vibration.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestPerRPM(t *testing.T) {
	coeffs, err := PerRPM("6205")
	if err != nil {
		t.Fatal(err)
	}
	at1470, err := FromCatalog("6205", 1470)
	if err != nil {
		t.Fatal(err)
	}
	// Frequencies scale linearly with RPM.
	assertWithin(t, "BPFO", coeffs.BPFO*1470, at1470.BPFO, 1e-9)
	assertWithin(t, "BPFI", coeffs.BPFI*1470, at1470.BPFI, 1e-9)
}

func TestDirect(t *testing.T) {
	t.Run("passes values through", func(t *testing.T) {
		set, err := Direct(24.5, 9.7, 87.5, 133.0, 56.9)
		if err != nil {
			t.Fatal(err)
		}
		if set.BPFO != 87.5 || set.ShaftHz != 24.5 {
			t.Errorf("unexpected set %+v", set)
		}
	})

	t.Run("rejects non-finite and negative", func(t *testing.T) {
		for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
			if _, err := Direct(0, 0, bad, 0, 0); !errors.Is(err, vibration.ErrInvalidInput) {
				t.Errorf("bpfo=%v: error = %v, want ErrInvalidInput", bad, err)
			}
		}
	})
}

func TestSource(t *testing.T) {
	t.Run("needs rpm", func(t *testing.T) {
		direct := Source{Direct: &FrequencySet{BPFO: 87.5}}
		if direct.NeedsRPM() {
			t.Error("direct source should not need rpm")
		}
		catalog := Source{Designation: "6205"}
		if !catalog.NeedsRPM() {
			t.Error("catalog source should need rpm")
		}
		geo := Source{Geometry: &geometry6205}
		if !geo.NeedsRPM() {
			t.Error("geometry source should need rpm")
		}
	})

	t.Run("resolve all paths agree", func(t *testing.T) {
		want, err := FromGeometry(geometry6205, 1470)
		if err != nil {
			t.Fatal(err)
		}
		sources := map[string]Source{
			"geometry":    {Geometry: &geometry6205},
			"designation": {Designation: "6205"},
			"direct":      {Direct: &want},
		}
		for name, src := range sources {
			t.Run(name, func(t *testing.T) {
				got, err := src.Resolve(1470)
				if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Errorf("resolved %+v, want %+v", got, want)
				}
			})
		}
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := Source{}.Resolve(1000)
		if !errors.Is(err, vibration.ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestCatalog(t *testing.T) {
	t.Run("list is sorted and complete", func(t *testing.T) {
		entries := ListCatalog()
		if len(entries) < 5 {
			t.Fatalf("catalog has %d entries, expected several", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i-1].Designation >= entries[i].Designation {
				t.Errorf("catalog not sorted at %d: %q >= %q", i, entries[i-1].Designation, entries[i].Designation)
			}
		}
	})

	t.Run("every entry has valid geometry", func(t *testing.T) {
		for _, entry := range ListCatalog() {
			if err := entry.Geometry.Validate(); err != nil {
				t.Errorf("%s: %v", entry.Designation, err)
			}
		}
	})
}
