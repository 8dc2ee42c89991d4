package field

import (
	"fmt"
	"math"
	"time"
)

// Uniform returns a field with the same eastward and northward wind everywhere.
func Uniform(w, h int, east, north, rangeMPS float64) (*Field, error) {
	f, err := New(w, h, rangeMPS)
	if err != nil {
		return nil, err
	}
	cu, cv := f.Encode(east), f.Encode(north)
	for i := range f.U {
		f.U[i] = cu
		f.V[i] = cv
	}
	return f, nil
}

// Band speeds in m/s for the idealized circulation cells.
const (
	tradeSpeed     = 7.0
	westerlySpeed  = 15.0
	polarSpeed     = 5.0
	meanderNorth   = 0.35 // meridional meander amplitude relative to band speed
	meanderWaveNum = 4    // meander wavelengths around a parallel
)

// globalWindDirection returns the unit wind direction (east, north) of the
// three-cell circulation at latitude lat in degrees.
func globalWindDirection(lat float64) (float64, float64) {
	var degree float64
	latAbs := math.Abs(lat)
	switch {
	case latAbs <= 30:
		// Hadley cell: turns toward parallel with the equator as lat -> 0
		change := 90 * latAbs / 30
		if lat > 0 {
			degree = 180 + change
		} else {
			degree = 180 - change
		}
	case latAbs <= 60:
		// Ferrel cell: westerlies
		change := 90 * (latAbs - 30) / 30
		if lat > 0 {
			degree = 90 - change
		} else {
			degree = 270 + change
		}
	default:
		// Polar cell: polar easterlies
		change := 90 * (latAbs - 60) / 30
		if lat > 0 {
			degree = 180 + change
		} else {
			degree = 180 - change
		}
	}
	rad := degree * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}

func bandSpeed(lat float64) float64 {
	latAbs := math.Abs(lat)
	switch {
	case latAbs <= 30:
		return tradeSpeed
	case latAbs <= 60:
		return westerlySpeed
	default:
		return polarSpeed
	}
}

// TradeWinds returns an idealized three-cell circulation with a travelling
// meander. phase shifts the meander eastward (radians).
func TradeWinds(w, h int, rangeMPS, phase float64) (*Field, error) {
	f, err := New(w, h, rangeMPS)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		lat := 90 - 180*(float64(y)+0.5)/float64(h)
		dirE, dirN := globalWindDirection(lat)
		speed := bandSpeed(lat)
		for x := 0; x < w; x++ {
			lon := -math.Pi + 2*math.Pi*(float64(x)+0.5)/float64(w)
			meander := meanderNorth * speed * math.Sin(meanderWaveNum*lon-phase)
			f.SetWind(x, y, dirE*speed, dirN*speed+meander)
		}
	}
	return f, nil
}

// TradeWindSequence builds n synthetic slices spaced step apart, with the
// meander completing one full revolution over the sequence.
func TradeWindSequence(w, h, n int, rangeMPS float64, step time.Duration, start time.Time) (*Sequence, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least one synthetic slice", ErrEmpty)
	}
	slices := make([]*Field, n)
	for i := range slices {
		f, err := TradeWinds(w, h, rangeMPS, 2*math.Pi*float64(i)/float64(n))
		if err != nil {
			return nil, err
		}
		f.Time = start.Add(time.Duration(i) * step)
		slices[i] = f
	}
	return NewSequence(slices)
}
