package main

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/windglobe/field"
)

func TestSummarizeUniform(t *testing.T) {
	f, err := field.Uniform(8, 6, 30, 40, 100)
	if err != nil {
		t.Fatal(err)
	}
	s := Summarize(f)

	// Channels are stored as float32, so allow a little slack
	const tol = 1e-4
	if math.Abs(s.SpeedMean-50) > tol || math.Abs(s.SpeedMax-50) > tol {
		t.Errorf("speed mean/max = %v/%v, want 50", s.SpeedMean, s.SpeedMax)
	}
	for name, z := range map[string]float64{"tropics": s.ZonalTropics, "mid": s.ZonalMid, "polar": s.ZonalPolar} {
		if math.Abs(z-30) > tol {
			t.Errorf("%s zonal = %v, want 30", name, z)
		}
	}
	if s.Saturated != 0 {
		t.Errorf("saturated = %v, want 0", s.Saturated)
	}
	if s.Time != "" {
		t.Errorf("time = %q for an untimed field", s.Time)
	}
}

func TestSummarizeSaturationAndBands(t *testing.T) {
	f, err := field.New(2, 6, 10)
	if err != nil {
		t.Fatal(err)
	}
	f.Time = time.Date(2017, 8, 1, 12, 0, 0, 0, time.UTC)

	// Rows 2 and 3 straddle the equator; push one of them past the range
	f.SetWind(0, 2, 25, 0)
	f.SetWind(1, 2, 25, 0)

	s := Summarize(f)
	if s.Time != "2017-08-01T12" {
		t.Errorf("time = %q", s.Time)
	}
	if math.Abs(s.Saturated-2.0/12.0) > 1e-9 {
		t.Errorf("saturated = %v, want 1/6", s.Saturated)
	}
	if s.ZonalTropics <= 0 {
		t.Errorf("tropics zonal = %v, want eastward", s.ZonalTropics)
	}
	if s.ZonalPolar != 0 {
		t.Errorf("polar zonal = %v, want calm", s.ZonalPolar)
	}
}
