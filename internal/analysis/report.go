package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Report is a markdown-friendly summary of a Dataset.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
	Corr      *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// Summarize computes per-column statistics, optional group-by metrics and
// correlations for a loaded dataset.
func Summarize(ds *Dataset, opt Options) *Report {
	rep := &Report{Name: ds.Name, Rows: ds.TotalRows, Processed: ds.Rows}
	rep.Warnings = append(rep.Warnings, ds.Warnings...)
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	rep.Samples = ds.Head(sampleRows)

	for i := range ds.Columns {
		c := &ds.Columns[i]
		s := ColumnSummary{Name: c.Name, Kind: c.Kind, Unit: c.Unit}
		for _, v := range c.Raw {
			if v == "" {
				s.Missing++
			} else {
				s.NonNull++
			}
		}
		switch c.Kind {
		case KindNumeric:
			vals := c.Numeric()
			s.Min, s.Max, s.Mean, s.Std = welford(vals)
			if opt.Outliers && len(vals) >= 8 {
				thr := opt.OutlierThreshold
				if thr <= 0 {
					thr = 3.5
				}
				s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(vals, thr)
				s.OutlierThreshold = thr
			}
		case KindCategorical:
			s.TopValues, s.Unique = c.topValues(8)
		case KindText:
			for _, v := range c.Raw {
				if v != "" && len(s.ExampleTexts) < 3 {
					s.ExampleTexts = append(s.ExampleTexts, v)
				}
			}
		}
		rep.Cols = append(rep.Cols, s)
	}

	if len(opt.GroupBy) > 0 {
		rep.Groups = groupBy(ds, opt.GroupBy)
	}
	if opt.Correlations {
		rep.Corr = ds.Correlations()
	}
	return rep
}

// welford returns min, max, mean and sample standard deviation in one pass.
func welford(vals []float64) (lo, hi, mean, std float64) {
	if len(vals) == 0 {
		return 0, 0, 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	var m2 float64
	for i, x := range vals {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	if len(vals) > 1 {
		std = math.Sqrt(m2 / float64(len(vals)-1))
	}
	return lo, hi, mean, std
}

func robustOutliers(vals []float64, thr float64) (cnt int, maxAbsZ float64) {
	median, mad := medianMAD(vals)
	if mad <= 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			cnt++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return cnt, maxAbsZ
}

func groupBy(ds *Dataset, names []string) []GroupResult {
	var keyCols []*Column
	for _, n := range names {
		if c, ok := ds.Column(n); ok {
			keyCols = append(keyCols, c)
		}
	}
	if len(keyCols) == 0 {
		return nil
	}
	type gAcc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	groups := map[string]*gAcc{}
	for row := 0; row < ds.Rows; row++ {
		parts := make([]string, 0, len(keyCols))
		for _, kc := range keyCols {
			if row < len(kc.Raw) {
				parts = append(parts, fmt.Sprintf("%s=%s", kc.Name, safeVal(kc.Raw[row])))
			}
		}
		key := strings.Join(parts, " | ")
		ga := groups[key]
		if ga == nil {
			ga = &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[key] = ga
		}
		ga.size++
		for j := range ds.Columns {
			c := &ds.Columns[j]
			if c.Kind != KindNumeric || row >= len(c.Values) || math.IsNaN(c.Values[row]) {
				continue
			}
			x := c.Values[row]
			ga.sum[j] += x
			ga.cnt[j]++
			if _, ok := ga.min[j]; !ok || x < ga.min[j] {
				ga.min[j] = x
			}
			if _, ok := ga.max[j]; !ok || x > ga.max[j] {
				ga.max[j] = x
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for j, n := range ga.cnt {
			gr.Metrics[ds.Columns[j].Name] = NumSummary{Count: n, Min: ga.min[j], Max: ga.max[j], Mean: ga.sum[j] / float64(n)}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

// TopPairs lists the strongest off-diagonal correlations by |r|.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", r.Rows, r.Processed))
		} else {
			b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
		}
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" — e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				b.WriteString(safeVal(truncateRunes(val, 80)))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// truncateRunes shortens s to at most n runes, ending in "..." when cut.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
