package analysis

import (
	"math"
	"sort"
)

// welford accumulates count, mean and variance in one pass.
type welford struct {
	n        int
	mean, m2 float64
	min, max float64
}

func newWelford() welford { return welford{min: math.Inf(1), max: math.Inf(-1)} }

func (w *welford) add(x float64) {
	w.n++
	if x < w.min {
		w.min = x
	}
	if x > w.max {
		w.max = x
	}
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

func (w *welford) std() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// pearson returns r over the pairs where both inputs are present.
func pearson(xs, ys []float64, ok []bool) (float64, int) {
	var n, sx, sy, sxx, syy, sxy float64
	for i := range xs {
		if !ok[i] {
			continue
		}
		x, y := xs[i], ys[i]
		n++
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
	}
	if n < 2 {
		return 0, int(n)
	}
	denom := math.Sqrt((n*sxx - sx*sx) * (n*syy - sy*sy))
	if denom == 0 || math.IsNaN(denom) {
		return 0, int(n)
	}
	r := (n*sxy - sx*sy) / denom
	return math.Max(-1, math.Min(1, r)), int(n)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
