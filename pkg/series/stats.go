// Package series holds the numeric primitives shared by the analytics
// packages: least-squares fitting, dispersion, percentiles, clamping and
// tolerance comparisons. Every function is pure.
package series

import (
	"math"
	"sort"
)

const (
	// closeRelTol and closeAbsTol are the tolerances used by IsClose.
	closeRelTol = 1e-5
	closeAbsTol = 1e-8

	// ReturnFloor is the smallest denominator used for period-over-period returns.
	ReturnFloor = 1e-8
)

// Line is an ordinary least-squares fit y = Intercept + Slope*x.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Solve returns the x at which the line reaches y. The caller must ensure the
// slope is non-zero.
func (l Line) Solve(y float64) float64 {
	return (y - l.Intercept) / l.Slope
}

// Fit computes the least-squares line through (x[i], y[i]) and its in-sample
// coefficient of determination. A single point yields a flat line through it.
func Fit(x, y []float64) (Line, float64) {
	n := len(x)
	if n == 0 || n != len(y) {
		return Line{}, 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var sxy, sxx float64
	for i := range x {
		dx := x[i] - meanX
		sxy += dx * (y[i] - meanY)
		sxx += dx * dx
	}

	var line Line
	if sxx != 0 {
		line.Slope = sxy / sxx
	}
	line.Intercept = meanY - line.Slope*meanX

	predicted := make([]float64, n)
	for i, xi := range x {
		predicted[i] = line.At(xi)
	}
	return line, R2(y, predicted)
}

// R2 returns 1 - SSres/SStot. A constant target scores 1 when predicted
// exactly and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	mean := Mean(actual)

	var ssRes, ssTot float64
	for i, a := range actual {
		r := a - predicted[i]
		ssRes += r * r
		d := a - mean
		ssTot += d * d
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Diff returns the first differences values[i+1]-values[i].
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// Returns computes period-over-period changes divided by the previous value,
// with the denominator floored at ReturnFloor.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = (values[i] - values[i-1]) / math.Max(values[i-1], ReturnFloor)
	}
	return out
}

// Percentile returns the p-th percentile (0..100) using linear interpolation
// between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	out[n-1] = stop
	return out
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Score clamps v to [0, 100] and rounds it to four decimal places.
func Score(v float64) float64 {
	return Round(Clamp(v, 0, 100), 4)
}

// IsClose reports whether a and b are equal within a relative tolerance of
// 1e-5 of b plus an absolute tolerance of 1e-8.
func IsClose(a, b float64) bool {
	return math.Abs(a-b) <= closeAbsTol+closeRelTol*math.Abs(b)
}

// AllClose reports whether every value IsClose to ref.
func AllClose(values []float64, ref float64) bool {
	for _, v := range values {
		if !IsClose(v, ref) {
			return false
		}
	}
	return true
}

// Round rounds v to the given number of decimal places, halves to even.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}

// Years returns n consecutive years as floats starting at start.
func Years(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}
