package analysis

import (
	"encoding/csv"
	"math"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"
)

var csvRows = []string{
	"Group;Concentration (g/L);Temp (°F);Score;LocaleNumber;Category;Note",
	"A;0,5;70;10,0;1.000,0;alpha;first",
	"A;0,6;71;11,0;1.100,0;alpha;second",
	"A;0,55;69;9,5;0.900,0;beta;third",
	"B;0,7;75;10,5;1.050,0;alpha;fourth",
	"B;0,65;74;9,8;0.980,0;beta;fifth",
	"B;0,68;73;10,2;1.020,0;alpha;sixth",
	"A;0,52;68;8,8;0.880,0;gamma;seventh",
	"B;0,75;76;9,7;0.970,0;beta;eighth",
	"A;3,0;95;50,0;5.000,0;alpha;ninth",
	"B;0,66;72;10,1;1.010,0;gamma;tenth",
}

var (
	processedConcentration = []float64{
		mgPerL(0.5), mgPerL(0.6), mgPerL(0.55), mgPerL(0.7), mgPerL(0.65), mgPerL(0.68), mgPerL(0.52), mgPerL(0.75), mgPerL(3.0),
	}
	processedTemp = []float64{
		toC(70), toC(71), toC(69), toC(75), toC(74), toC(73), toC(68), toC(76), toC(95),
	}
	processedScore  = []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}
	processedLocale = []float64{1000, 1100, 900, 1050, 980, 1020, 880, 970, 5000}
)

func buildFromText(t *testing.T, name, text string, comma rune, opt Options) *Dataset {
	t.Helper()
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	ds, err := Build(name, r, opt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ds
}

func TestSummarizeAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.SampleRows = 3
	opt.MaxRows = 9
	opt.GroupBy = []string{"Group"}
	opt.Correlations = true
	opt.Outliers = true
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'

	ds := buildFromText(t, "metrics.csv", strings.Join(csvRows, "\n"), ';', opt)
	rep := Summarize(ds, opt)
	assertReport(t, rep, "metrics.csv")

	md := rep.Markdown()
	if !strings.Contains(md, "[DATASET SUMMARY]") {
		t.Fatalf("markdown missing summary: %s", md)
	}
	if !strings.Contains(md, "File: metrics.csv") {
		t.Fatalf("markdown missing file: %s", md)
	}
	if !strings.Contains(md, "Rows: ~10 (processed 9)") {
		t.Fatalf("markdown missing row note: %s", md)
	}
	if !strings.Contains(md, "Concentration [mg/L]: numeric") {
		t.Fatalf("markdown missing concentration schema: %s", md)
	}
	if !strings.Contains(md, "outliers: 1 above |z|>3.5") {
		t.Fatalf("markdown missing outlier info: %s", md)
	}
	if !strings.Contains(md, "[GROUP-BY SUMMARY]") || !strings.Contains(md, "Group=A (n=5)") {
		t.Fatalf("markdown missing group summary: %s", md)
	}
	if !strings.Contains(md, "[CORRELATIONS]") || !strings.Contains(md, "Score ~ LocaleNumber") {
		t.Fatalf("markdown missing global correlations: %s", md)
	}
	if !strings.Contains(md, "[NOTES]") || !strings.Contains(md, "processed only 9/10 rows due to MaxRows") {
		t.Fatalf("markdown missing notes: %s", md)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	ds := buildFromText(t, "empty.csv", "", ',', DefaultOptions())
	if !ds.Empty() {
		t.Fatalf("expected empty dataset, got %#v", ds)
	}
	ds = buildFromText(t, "header.csv", "a,b\n", ',', DefaultOptions())
	if !ds.Empty() || len(ds.Columns) != 2 {
		t.Fatalf("header-only dataset = %#v", ds)
	}
}

func TestBuildDropsIDColumn(t *testing.T) {
	text := "fixed acidity,quality,Id\n7.4,5,0\n7.8,5,1\n"
	ds := buildFromText(t, "wine.csv", text, ',', DefaultOptions())
	if !equalStrings(ds.ColumnNames(), []string{"fixed acidity", "quality"}) {
		t.Fatalf("columns = %#v", ds.ColumnNames())
	}

	opt := DefaultOptions()
	opt.DropID = false
	ds = buildFromText(t, "wine.csv", text, ',', opt)
	if !equalStrings(ds.ColumnNames(), []string{"fixed acidity", "quality", "Id"}) {
		t.Fatalf("columns with DropID=false = %#v", ds.ColumnNames())
	}
}

func TestBuildKinds(t *testing.T) {
	text := "date,plot,alpha_acids,moisture,note\n" +
		"2024-08-10,A1,12.5%,74,dry spell\n" +
		"2024-08-12,A1,11.8%,,heavy rain overnight\n" +
		"2024-08-15,B3,10.2%,68,n/a\n"
	ds := buildFromText(t, "hop_harvest.csv", text, ',', DefaultOptions())
	want := map[string]string{
		"date":        KindDatetime,
		"plot":        KindCategorical,
		"alpha_acids": KindNumeric,
		"moisture":    KindNumeric,
		"note":        KindText,
	}
	for name, kind := range want {
		c, ok := ds.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if c.Kind != kind {
			t.Errorf("%s kind = %q, want %q", name, c.Kind, kind)
		}
	}
	alpha, _ := ds.Column("alpha_acids")
	if alpha.Unit != "%" {
		t.Errorf("alpha unit = %q, want %%", alpha.Unit)
	}
	moisture, _ := ds.Column("moisture")
	if !math.IsNaN(moisture.Values[1]) {
		t.Errorf("missing moisture cell should be NaN, got %v", moisture.Values[1])
	}
	if got := ds.NumericColumns(); !equalStrings(got, []string{"alpha_acids", "moisture"}) {
		t.Errorf("numeric columns = %#v", got)
	}
}

func assertReport(t *testing.T, rep *Report, expectName string) {
	t.Helper()
	if rep.Name != expectName {
		t.Fatalf("report name = %q, want %q", rep.Name, expectName)
	}
	if rep.Rows != 10 {
		t.Fatalf("rows = %d, want 10", rep.Rows)
	}
	if rep.Processed != 9 {
		t.Fatalf("processed = %d, want 9", rep.Processed)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "processed only 9/10 rows due to MaxRows" {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(rep.Samples))
	}
	expectFirst := []string{"A", "0,5", "70", "10,0", "1.000,0", "alpha", "first"}
	if !equalStrings(rep.Samples[0], expectFirst) {
		t.Fatalf("first sample = %#v, want %#v", rep.Samples[0], expectFirst)
	}

	conc := columnByName(t, rep, "Concentration")
	if conc.Unit != "mg/L" {
		t.Fatalf("concentration unit = %q", conc.Unit)
	}
	checkStats(t, conc, processedConcentration)
	count, maxZ := robustOutlierStats(processedScore, 3.5)

	score := columnByName(t, rep, "Score")
	if score.Unit != "" {
		t.Fatalf("score unit = %q", score.Unit)
	}
	checkStats(t, score, processedScore)
	if score.OutliersCount != count {
		t.Fatalf("score outliers = %d, want %d", score.OutliersCount, count)
	}
	if !almostEqual(score.OutliersMaxAbsZ, maxZ, 1e-6) {
		t.Fatalf("score max |z| = %f, want %f", score.OutliersMaxAbsZ, maxZ)
	}

	temp := columnByName(t, rep, "Temp")
	if temp.Unit != "°C" {
		t.Fatalf("temp unit = %q", temp.Unit)
	}
	checkStats(t, temp, processedTemp)

	locale := columnByName(t, rep, "LocaleNumber")
	checkStats(t, locale, processedLocale)

	cat := columnByName(t, rep, "Category")
	if cat.Kind != KindCategorical {
		t.Fatalf("category kind = %q", cat.Kind)
	}
	if len(cat.TopValues) == 0 || cat.TopValues[0].Value != "alpha" || cat.TopValues[0].Count != 5 {
		t.Fatalf("category top = %#v", cat.TopValues)
	}

	if len(rep.Groups) != 2 {
		t.Fatalf("groups len = %d, want 2", len(rep.Groups))
	}
	groupA := rep.Groups[0]
	groupB := rep.Groups[1]
	if groupA.Key != "Group=A" || groupA.Size != 5 {
		t.Fatalf("group A = %#v", groupA)
	}
	if groupB.Key != "Group=B" || groupB.Size != 4 {
		t.Fatalf("group B = %#v", groupB)
	}
	checkNumSummary(t, groupA.Metrics["Score"], subset(processedScore, []int{0, 1, 2, 6, 8}))
	checkNumSummary(t, groupB.Metrics["Score"], subset(processedScore, []int{3, 4, 5, 7}))
	checkNumSummary(t, groupA.Metrics["Concentration"], subset(processedConcentration, []int{0, 1, 2, 6, 8}))
	checkNumSummary(t, groupB.Metrics["Concentration"], subset(processedConcentration, []int{3, 4, 5, 7}))

	if rep.Corr == nil {
		t.Fatalf("corr matrix nil")
	}
	if !equalStrings(rep.Corr.Columns, []string{"Concentration", "Temp", "Score", "LocaleNumber"}) {
		t.Fatalf("corr columns = %#v", rep.Corr.Columns)
	}
	expCorr := correlation(processedScore, processedLocale)
	if !almostEqual(rep.Corr.Values[2][3], expCorr, 1e-6) {
		t.Fatalf("global corr score-locale = %f, want %f", rep.Corr.Values[2][3], expCorr)
	}
}

func columnByName(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return ColumnSummary{}
}

func checkStats(t *testing.T, col ColumnSummary, vals []float64) {
	t.Helper()
	if col.NonNull != len(vals) {
		t.Fatalf("non-null = %d, want %d", col.NonNull, len(vals))
	}
	if !almostEqual(col.Min, minFloat(vals), 1e-6) {
		t.Fatalf("min = %f, want %f", col.Min, minFloat(vals))
	}
	if !almostEqual(col.Max, maxFloat(vals), 1e-6) {
		t.Fatalf("max = %f, want %f", col.Max, maxFloat(vals))
	}
	if !almostEqual(col.Mean, mean(vals), 1e-6) {
		t.Fatalf("mean = %f, want %f", col.Mean, mean(vals))
	}
	if !almostEqual(col.Std, sampleStd(vals), 1e-6) {
		t.Fatalf("std = %f, want %f", col.Std, sampleStd(vals))
	}
}

func checkNumSummary(t *testing.T, s NumSummary, vals []float64) {
	t.Helper()
	if s.Count != len(vals) {
		t.Fatalf("summary count = %d, want %d", s.Count, len(vals))
	}
	if !almostEqual(s.Min, minFloat(vals), 1e-6) {
		t.Fatalf("summary min = %f, want %f", s.Min, minFloat(vals))
	}
	if !almostEqual(s.Max, maxFloat(vals), 1e-6) {
		t.Fatalf("summary max = %f, want %f", s.Max, maxFloat(vals))
	}
	if !almostEqual(s.Mean, mean(vals), 1e-6) {
		t.Fatalf("summary mean = %f, want %f", s.Mean, mean(vals))
	}
}

func robustOutlierStats(vals []float64, threshold float64) (count int, maxAbs float64) {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	med := quantileValue(cp, 0.5)
	devs := make([]float64, len(cp))
	for i, v := range cp {
		d := math.Abs(v - med)
		devs[i] = d
	}
	sort.Float64s(devs)
	mad := quantileValue(devs, 0.5)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range cp {
		z := 0.6745 * (v - med) / mad
		az := math.Abs(z)
		if az > threshold {
			count++
		}
		if az > maxAbs {
			maxAbs = az
		}
	}
	return
}

func quantileValue(sortedVals []float64, q float64) float64 {
	if len(sortedVals) == 0 {
		return 0
	}
	if q <= 0 {
		return sortedVals[0]
	}
	if q >= 1 {
		return sortedVals[len(sortedVals)-1]
	}
	pos := q * float64(len(sortedVals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sortedVals[lo]
	}
	w := pos - float64(lo)
	return sortedVals[lo]*(1-w) + sortedVals[hi]*w
}

func subset(vals []float64, idxs []int) []float64 {
	out := make([]float64, len(idxs))
	for i, idx := range idxs {
		out[i] = vals[idx]
	}
	return out
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func correlation(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("length mismatch")
	}
	ma := mean(a)
	mb := mean(b)
	var num, da2, db2 float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		da2 += da * da
		db2 += db * db
	}
	if da2 == 0 || db2 == 0 {
		return 0
	}
	return num / math.Sqrt(da2*db2)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func mgPerL(v float64) float64 { return v * 1000 }
func toC(f float64) float64    { return (f - 32) * 5.0 / 9.0 }

func TestMarkdownTruncatesLongCellsByRune(t *testing.T) {
	long := strings.Repeat("é", 90)
	ds := buildFromText(t, "notes.csv", "note,score\n"+long+",1\n", ',', DefaultOptions())
	md := Summarize(ds, DefaultOptions()).Markdown()
	if !utf8.ValidString(md) {
		t.Fatal("markdown is not valid UTF-8")
	}
	want := strings.Repeat("é", 77) + "..."
	if !strings.Contains(md, "| "+want+" |") {
		t.Fatalf("head table should hold the truncated cell:\n%s", md)
	}
	if got := truncateRunes("wine", 80); got != "wine" {
		t.Fatalf("short value changed: %q", got)
	}
}
