// Package sections defines the ordered chart blocks of the dashboard and
// turns a dataset plus query parameters into rendered figures.
package sections

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/KaramelBytes/winelens/internal/charts"
)

// All is the grafico value that selects every section.
const All = "all"

// Well-known column names of the wine-quality dataset.
const (
	ColQuality         = "quality"
	ColAlcohol         = "alcohol"
	ColVolatileAcidity = "volatile acidity"
)

// MaxChartColumns caps the numeric columns drawn by the heatmap and boxplot
// sections. Wider datasets show the first MaxChartColumns with a notice.
const MaxChartColumns = 25

// ErrUnknownSection is returned for a key that names no section.
var ErrUnknownSection = errors.New("unknown section")

// Section is one block of the page.
type Section struct {
	Key   string
	Title string
}

// Sections in page order.
var Sections = []Section{
	{Key: "dataframe", Title: "Initial data view"},
	{Key: "distribuicao", Title: "Wine quality distribution"},
	{Key: "histograma", Title: "Numeric variable histograms"},
	{Key: "heatmap", Title: "Correlation map"},
	{Key: "alcool_qualidade", Title: "Scatter: alcohol × quality"},
	{Key: "acidez_qualidade", Title: "Scatter: volatile acidity × quality"},
	{Key: "boxplot", Title: "Horizontal boxplots of the numeric variables"},
	{Key: "scatter", Title: "Relationship between variables (interactive scatter)"},
}

// Keys returns every selectable grafico value, All first.
func Keys() []string {
	out := []string{All}
	for _, s := range Sections {
		out = append(out, s.Key)
	}
	return out
}

// Lookup finds a section by key.
func Lookup(key string) (Section, bool) {
	for _, s := range Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Select returns the sections shown for a grafico value. Empty means All.
// Unknown values select nothing and report ok=false.
func Select(grafico string) (selected []Section, ok bool) {
	grafico = strings.TrimSpace(grafico)
	if grafico == "" || grafico == All {
		return Sections, true
	}
	if s, found := Lookup(grafico); found {
		return []Section{s}, true
	}
	return nil, false
}

// Params carries the per-request chart choices.
type Params struct {
	Hist string // histograma column
	X, Y string // scatter axes
	Col  string // boxplot column
	Bins int    // histograma bin count
}

// Table is the dataframe preview.
type Table struct {
	Header []string
	Rows   [][]string
}

// Figure references one chart of a block. Params are the values the chart
// endpoint needs to reproduce it.
type Figure struct {
	Key     string
	Caption string
	Params  Params
}

// Block is a planned section ready for display.
type Block struct {
	Section
	Table   *Table
	Figures []Figure
	Notice  string
	// Choices lists the numeric columns offered by the column pickers.
	Choices []string
	Params  Params
}

// Plan resolves the selected sections against ds. Missing columns turn into
// a per-block notice instead of an error.
func Plan(ds *analysis.Dataset, selected []Section, p Params) []Block {
	numeric := ds.NumericColumns()
	out := make([]Block, 0, len(selected))
	for _, s := range selected {
		b := Block{Section: s, Params: p}
		switch s.Key {
		case "dataframe":
			b.Table = &Table{Header: ds.ColumnNames(), Rows: ds.Head(5)}
		case "distribuicao":
			if missing := missingColumns(ds, ColQuality); missing != "" {
				b.Notice = missing
				break
			}
			b.Figures = []Figure{{Key: s.Key}}
		case "histograma":
			b.Choices = numeric
			b.Params.Hist = pick(ds, p.Hist, numeric, 0)
			if b.Params.Hist == "" {
				b.Notice = "No numeric columns to plot."
				break
			}
			b.Notice = fallbackNotice(ds, p.Hist, b.Params.Hist)
			b.Figures = []Figure{{Key: s.Key, Params: Params{Hist: b.Params.Hist, Bins: p.Bins}}}
		case "heatmap":
			if len(numeric) < 2 {
				b.Notice = "At least two numeric columns are needed for a correlation map."
				break
			}
			b.Notice = capNotice(len(numeric))
			b.Figures = []Figure{{Key: s.Key}}
		case "alcool_qualidade":
			if missing := missingColumns(ds, ColAlcohol, ColQuality); missing != "" {
				b.Notice = missing
				break
			}
			b.Figures = []Figure{{Key: s.Key}}
		case "acidez_qualidade":
			if missing := missingColumns(ds, ColVolatileAcidity, ColQuality); missing != "" {
				b.Notice = missing
				break
			}
			b.Figures = []Figure{{Key: s.Key}}
		case "boxplot":
			cols := boxColumns(numeric)
			b.Notice = capNotice(len(cols))
			for _, name := range limit(cols) {
				caption := ""
				if box, err := ds.BoxStats(name); err == nil {
					caption = boxCaption(box)
				}
				b.Figures = append(b.Figures, Figure{Key: s.Key, Caption: caption, Params: Params{Col: name}})
			}
			if len(b.Figures) == 0 {
				b.Notice = "No numeric columns besides quality."
			}
		case "scatter":
			b.Choices = numeric
			b.Params.X = pick(ds, p.X, numeric, 0)
			b.Params.Y = pick(ds, p.Y, numeric, 1)
			if b.Params.X == "" || b.Params.Y == "" {
				b.Notice = "At least two numeric columns are needed for a scatter plot."
				break
			}
			b.Notice = strings.TrimSpace(fallbackNotice(ds, p.X, b.Params.X) + " " + fallbackNotice(ds, p.Y, b.Params.Y))
			b.Figures = []Figure{{Key: s.Key, Params: Params{X: b.Params.X, Y: b.Params.Y}}}
		}
		out = append(out, b)
	}
	return out
}

// Render draws the chart of section key as SVG.
func Render(ds *analysis.Dataset, key string, p Params) ([]byte, error) {
	numeric := ds.NumericColumns()
	switch key {
	case "distribuicao":
		c, err := ds.NumericColumn(ColQuality)
		if err != nil {
			return nil, err
		}
		var bars []charts.Bar
		if c.Distinct() <= 20 {
			counts, err := ds.Counts(c.Name)
			if err != nil {
				return nil, err
			}
			bars = charts.CountBars(counts)
		} else {
			bins, err := ds.Histogram(c.Name, 0)
			if err != nil {
				return nil, err
			}
			bars = charts.HistogramBars(bins)
		}
		return charts.Bars("Quality distribution", "count", bars, charts.Wine)
	case "histograma":
		col := pick(ds, p.Hist, numeric, 0)
		if col == "" {
			return nil, fmt.Errorf("histogram: %w", analysis.ErrNoColumn)
		}
		bins, err := ds.Histogram(col, p.Bins)
		if err != nil {
			return nil, err
		}
		return charts.Bars("Histogram of "+col, "count", charts.HistogramBars(bins), charts.Plum)
	case "heatmap":
		m := ds.CorrelationsOf(limit(numeric))
		if m == nil {
			return nil, fmt.Errorf("heatmap: %w", analysis.ErrNoColumn)
		}
		return charts.Heatmap("Correlation", m, charts.ScaleRdPu)
	case "alcool_qualidade":
		return scatter(ds, ColAlcohol, ColQuality, charts.ScaleRdPu)
	case "acidez_qualidade":
		return scatter(ds, ColVolatileAcidity, ColQuality, charts.ScaleOrRd)
	case "boxplot":
		c, err := ds.NumericColumn(p.Col)
		if err != nil {
			return nil, err
		}
		return charts.Box(c.Name, c.Name, c.Values)
	case "scatter":
		x := pick(ds, p.X, numeric, 0)
		y := pick(ds, p.Y, numeric, 1)
		if x == "" || y == "" {
			return nil, fmt.Errorf("scatter: %w", analysis.ErrNoColumn)
		}
		return scatter(ds, x, y, charts.ScaleViridis)
	case "dataframe":
		return nil, fmt.Errorf("%s has no chart: %w", key, ErrUnknownSection)
	}
	return nil, fmt.Errorf("%q: %w", key, ErrUnknownSection)
}

// scatter colors by quality when the dataset has it.
func scatter(ds *analysis.Dataset, x, y, scale string) ([]byte, error) {
	color := ""
	if c, err := ds.NumericColumn(ColQuality); err == nil {
		color = c.Name
	}
	pts, err := ds.Points(x, y, color)
	if err != nil {
		return nil, err
	}
	return charts.Scatter(charts.ScatterSpec{
		Title:   fmt.Sprintf("%s × %s", x, y),
		XName:   x,
		YName:   y,
		Points:  pts,
		Scale:   scale,
		Opacity: 0.7,
	})
}

// pick returns want when it names a numeric column, otherwise the fallback
// column at index i, or "" when there is none.
func pick(ds *analysis.Dataset, want string, numeric []string, i int) string {
	if want != "" {
		if c, err := ds.NumericColumn(want); err == nil {
			return c.Name
		}
	}
	if i < len(numeric) {
		return numeric[i]
	}
	return ""
}

// fallbackNotice explains a column choice that was replaced by a default.
func fallbackNotice(ds *analysis.Dataset, want, got string) string {
	if want == "" {
		return ""
	}
	if _, err := ds.NumericColumn(want); err == nil {
		return ""
	}
	return fmt.Sprintf("Column %q is not numeric; showing %q.", want, got)
}

// boxColumns is every numeric column except quality.
func boxColumns(numeric []string) []string {
	out := make([]string, 0, len(numeric))
	for _, name := range numeric {
		if !strings.EqualFold(name, ColQuality) {
			out = append(out, name)
		}
	}
	return out
}

func limit(cols []string) []string {
	if len(cols) > MaxChartColumns {
		return cols[:MaxChartColumns]
	}
	return cols
}

func capNotice(n int) string {
	if n <= MaxChartColumns {
		return ""
	}
	return fmt.Sprintf("Showing the first %d of %d numeric columns.", MaxChartColumns, n)
}

func missingColumns(ds *analysis.Dataset, names ...string) string {
	var missing []string
	for _, n := range names {
		if _, err := ds.NumericColumn(n); err != nil {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("Missing numeric column(s): %s.", strings.Join(missing, ", "))
}

func boxCaption(b analysis.Box) string {
	return fmt.Sprintf("n=%d  median=%.3g  IQR=[%.3g, %.3g]  whiskers=[%.3g, %.3g]  outliers=%d",
		b.N, b.Median, b.Q1, b.Q3, b.LowerWhisker, b.UpperWhisker, len(b.Outliers))
}
