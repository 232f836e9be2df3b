package chart

import (
	"errors"
	"math"
)

var errNoFiniteValues = errors.New("no finite values")

// ValueRange scans values and returns the low and high over finite entries.
func ValueRange(values []float64) (low, high float64, err error) {
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	if !finite(low) || !finite(high) {
		return 0, 0, errNoFiniteValues
	}
	return low, high, nil
}

// PaddedRange widens the finite value range so the scale is never flat:
// equal bounds get ±1, otherwise both ends move out by 6% of the span.
func PaddedRange(values []float64) (low, high float64, err error) {
	low, high, err = ValueRange(values)
	if err != nil {
		return 0, 0, err
	}
	if low == high {
		return low - 1, high + 1, nil
	}
	pad := (high - low) * 0.06
	return low - pad, high + pad, nil
}

// Position returns where v sits within [low, high] as 0.0 (low) to 1.0 (high).
func Position(v, low, high float64) float64 {
	if high == low {
		return 0.5
	}
	return (v - low) / (high - low)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Padding is the plot inset in CSS pixels.
type Padding struct {
	Left, Right, Top, Bottom float64
}

// DefaultPadding leaves room for value labels on the left and time labels below.
var DefaultPadding = Padding{Left: 56, Right: 14, Top: 14, Bottom: 32}

// frame maps series indexes and values to CSS-pixel coordinates.
type frame struct {
	pad        Padding
	width      float64
	height     float64
	n          int
	minY, maxY float64
}

func (f frame) plotWidth() float64  { return f.width - f.pad.Left - f.pad.Right }
func (f frame) plotHeight() float64 { return f.height - f.pad.Top - f.pad.Bottom }

func (f frame) x(i int) float64 {
	return f.pad.Left + float64(i)/float64(f.n-1)*f.plotWidth()
}

func (f frame) y(v float64) float64 {
	return f.pad.Top + (1-Position(v, f.minY, f.maxY))*f.plotHeight()
}
