package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/winelens/internal/sections"
)

func TestChartFileName(t *testing.T) {
	cases := []struct {
		fig  sections.Figure
		want string
	}{
		{sections.Figure{Key: "heatmap"}, "heatmap.svg"},
		{sections.Figure{Key: "boxplot", Params: sections.Params{Col: "Free Sulfur Dioxide"}}, "boxplot_free-sulfur-dioxide.svg"},
		{sections.Figure{Key: "scatter", Params: sections.Params{X: "pH", Y: "density"}}, "scatter_ph_density.svg"},
		{sections.Figure{Key: "histograma", Params: sections.Params{Hist: "%%"}}, "histograma_col.svg"},
	}
	for _, c := range cases {
		if got := chartFileName(c.fig); got != c.want {
			t.Errorf("chartFileName(%+v) = %q, want %q", c.fig, got, c.want)
		}
	}
}

func TestChartFileNamesAreUnique(t *testing.T) {
	figs := []sections.Figure{
		{Key: "boxplot", Params: sections.Params{Col: "fixed acidity"}},
		{Key: "boxplot", Params: sections.Params{Col: "fixed_acidity"}},
		{Key: "boxplot", Params: sections.Params{Col: "alcohol"}},
		{Key: "boxplot", Params: sections.Params{Col: "Fixed-Acidity"}},
	}
	got := strings.Join(chartFileNames(figs), ",")
	want := "boxplot_fixed-acidity.svg,boxplot_fixed-acidity__2.svg,boxplot_alcohol.svg,boxplot_fixed-acidity__3.svg"
	if got != want {
		t.Fatalf("chartFileNames = %s, want %s", got, want)
	}
}

func TestSummaryPath(t *testing.T) {
	dir := t.TempDir()
	abQuiet = true
	defer func() { abQuiet = false }()

	first := summaryPath(dir, "/data/wine.csv", "")
	if filepath.Base(first) != "wine.summary.md" {
		t.Fatalf("first = %s", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(summaryPath(dir, "/other/wine.csv", "")); got != "wine__2.summary.md" {
		t.Fatalf("collision = %s", got)
	}
	if got := filepath.Base(summaryPath(dir, "book.xlsx", "Red Wines")); got != "book__sheet-red-wines.summary.md" {
		t.Fatalf("sheet = %s", got)
	}
}

func TestTableFlagsOptions(t *testing.T) {
	isolate(t)
	cfg = nil
	f := tableFlags{delimiter: "tab", decimal: "comma", thousands: "space", maxRows: 10, corr: true, keepID: true, sheetIndex: 2}
	opt, err := f.options()
	if err != nil {
		t.Fatal(err)
	}
	if opt.Delimiter != '\t' || opt.DecimalSeparator != ',' || opt.ThousandsSeparator != ' ' {
		t.Fatalf("separators: %+v", opt.Options)
	}
	if opt.MaxRows != 10 || opt.DropID || !opt.Correlations || opt.SheetIndex != 2 {
		t.Fatalf("options: %+v", opt)
	}

	for _, bad := range []tableFlags{{delimiter: "|"}, {decimal: "x"}, {thousands: "_"}} {
		if _, err := bad.options(); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}
