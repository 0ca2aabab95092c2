package analysis

import (
	"math"
	"sort"
)

// Bin is one histogram bucket covering [Lo, Hi); the last bin is closed.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// ValueCount is the frequency of one exact value.
type ValueCount struct {
	Value float64
	Count int
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Box summarizes a distribution the way a box plot draws it.
type Box struct {
	N              int
	Min, Max       float64
	Q1, Median, Q3 float64
	// Whiskers reach the most extreme values within 1.5 IQR of the box.
	LowerWhisker, UpperWhisker float64
	Outliers                   []float64
}

// Point is a pair of values taken from the same row. C carries the
// color-by value, or NaN when none was requested.
type Point struct {
	X, Y, C float64
}

// Histogram bins a numeric column into equal-width buckets over [min, max].
// bins <= 0 picks a bin count with Sturges' rule.
func (d *Dataset) Histogram(name string, bins int) ([]Bin, error) {
	c, err := d.NumericColumn(name)
	if err != nil {
		return nil, err
	}
	vals := c.Numeric()
	return histogram(vals, bins), nil
}

func histogram(vals []float64, bins int) []Bin {
	if len(vals) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = int(math.Ceil(math.Log2(float64(len(vals))))) + 1
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return []Bin{{Lo: lo, Hi: hi, Count: len(vals)}}
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, v := range vals {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

// Counts returns the frequency of each distinct value of a numeric column, ordered by value.
func (d *Dataset) Counts(name string) ([]ValueCount, error) {
	c, err := d.NumericColumn(name)
	if err != nil {
		return nil, err
	}
	m := map[float64]int{}
	for _, v := range c.Numeric() {
		m[v]++
	}
	out := make([]ValueCount, 0, len(m))
	for v, n := range m {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// BoxStats computes quartiles, whiskers and outliers of a numeric column.
func (d *Dataset) BoxStats(name string) (Box, error) {
	c, err := d.NumericColumn(name)
	if err != nil {
		return Box{}, err
	}
	return boxStats(c.Numeric()), nil
}

func boxStats(vals []float64) Box {
	if len(vals) == 0 {
		return Box{}
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	b := Box{
		N:      len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
	}
	iqr := b.Q3 - b.Q1
	loFence, hiFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = b.Q1, b.Q3
	for _, v := range sorted {
		if v >= loFence {
			b.LowerWhisker = v
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= hiFence {
			b.UpperWhisker = sorted[i]
			break
		}
	}
	for _, v := range sorted {
		if v < loFence || v > hiFence {
			b.Outliers = append(b.Outliers, v)
		}
	}
	return b
}

// Points pairs x and y from rows where both parse as numbers. When color
// is non-empty the row must also carry a numeric color value.
func (d *Dataset) Points(x, y, color string) ([]Point, error) {
	cx, err := d.NumericColumn(x)
	if err != nil {
		return nil, err
	}
	cy, err := d.NumericColumn(y)
	if err != nil {
		return nil, err
	}
	var cc *Column
	if color != "" {
		if cc, err = d.NumericColumn(color); err != nil {
			return nil, err
		}
	}
	out := make([]Point, 0, len(cx.Values))
	for i := range cx.Values {
		if i >= len(cy.Values) {
			break
		}
		p := Point{X: cx.Values[i], Y: cy.Values[i], C: math.NaN()}
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		if cc != nil {
			if i >= len(cc.Values) || math.IsNaN(cc.Values[i]) {
				continue
			}
			p.C = cc.Values[i]
		}
		out = append(out, p)
	}
	return out, nil
}

type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	pa.sumX += x
	pa.sumY += y
	pa.sumXX += x * x
	pa.sumYY += y * y
	pa.sumXY += x * y
}

// r returns the Pearson coefficient clamped to [-1, 1]; undefined results are 0.
func (pa *pairAcc) r() float64 {
	if pa.n < 2 {
		return 0
	}
	denom := math.Sqrt((pa.n*pa.sumXX - pa.sumX*pa.sumX) * (pa.n*pa.sumYY - pa.sumY*pa.sumY))
	if denom == 0 {
		return 0
	}
	r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Correlations computes the Pearson matrix across numeric columns using
// pairwise-complete rows. It returns nil with fewer than two numeric columns.
func (d *Dataset) Correlations() *CorrMatrix {
	return d.CorrelationsOf(d.NumericColumns())
}

// CorrelationsOf is Correlations restricted to the named numeric columns, in
// the given order. Names that are not numeric columns are skipped.
func (d *Dataset) CorrelationsOf(names []string) *CorrMatrix {
	var cols []*Column
	for _, name := range names {
		if c, err := d.NumericColumn(name); err == nil {
			cols = append(cols, c)
		}
	}
	if len(cols) < 2 {
		return nil
	}
	names = make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 1; a < n; a++ {
		for b := 0; b < a; b++ {
			var pa pairAcc
			xs, ys := cols[a].Values, cols[b].Values
			for i := 0; i < len(xs) && i < len(ys); i++ {
				if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
					continue
				}
				pa.add(xs[i], ys[i])
			}
			r := pa.r()
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
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
