package main

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/windglobe/field"
	"github.com/pthm-cable/windglobe/systems"
)

// Latitude band edges in degrees.
const (
	tropicsLat = 30.0
	polarLat   = 60.0
)

// Summary describes one decoded wind slice.
type Summary struct {
	Time     string  `csv:"time"`
	Width    int     `csv:"width"`
	Height   int     `csv:"height"`
	RangeMPS float64 `csv:"range_mps"`

	SpeedMean float64 `csv:"speed_mean"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`

	// Mean eastward wind per latitude band, both hemispheres together
	ZonalTropics float64 `csv:"zonal_tropics"`
	ZonalMid     float64 `csv:"zonal_mid"`
	ZonalPolar   float64 `csv:"zonal_polar"`

	// Share of channel values at 0 or 1, a sign the range is too small
	Saturated float64 `csv:"saturated"`
}

// Summarize computes the Summary of f.
func Summarize(f *field.Field) Summary {
	s := Summary{
		Width:    f.W,
		Height:   f.H,
		RangeMPS: f.Range,
	}
	if !f.Time.IsZero() {
		s.Time = f.Time.Format("2006-01-02T15")
	}

	speeds := make([]float64, 0, f.W*f.H)
	var zonal [3][]float64
	saturated := 0
	for y := 0; y < f.H; y++ {
		lat := math.Abs(systems.Latitude((float64(y) + 0.5) / float64(f.H)))
		band := 0
		switch {
		case lat >= polarLat:
			band = 2
		case lat >= tropicsLat:
			band = 1
		}
		for x := 0; x < f.W; x++ {
			i := f.Index(x, y)
			east := (2*float64(f.U[i]) - 1) * f.Range
			north := (2*float64(f.V[i]) - 1) * f.Range
			speeds = append(speeds, math.Hypot(east, north))
			zonal[band] = append(zonal[band], east)
			if clipped(f.U[i]) || clipped(f.V[i]) {
				saturated++
			}
		}
	}

	sort.Float64s(speeds)
	s.SpeedMean = stat.Mean(speeds, nil)
	s.SpeedP50 = stat.Quantile(0.5, stat.Empirical, speeds, nil)
	s.SpeedP90 = stat.Quantile(0.9, stat.Empirical, speeds, nil)
	s.SpeedMax = floats.Max(speeds)
	s.ZonalTropics = bandMean(zonal[0])
	s.ZonalMid = bandMean(zonal[1])
	s.ZonalPolar = bandMean(zonal[2])
	s.Saturated = float64(saturated) / float64(len(speeds))
	return s
}

func bandMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func clipped(c float32) bool {
	return c <= 0 || c >= 1
}
