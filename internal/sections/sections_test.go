package sections

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/google/go-cmp/cmp"
)

const wineCSV = `fixed acidity,volatile acidity,citric acid,alcohol,quality,Id
7.4,0.70,0.00,9.4,5,0
7.8,0.88,0.00,9.8,5,1
7.8,0.76,0.04,9.8,5,2
11.2,0.28,0.56,9.8,6,3
7.4,0.66,0.00,9.4,5,4
7.9,0.60,0.06,9.4,5,5
7.3,0.65,0.00,10.0,7,6
7.8,0.58,0.02,9.5,7,7
`

func wine(t *testing.T, text string) *analysis.Dataset {
	t.Helper()
	ds, err := analysis.Build("wine.csv", csv.NewReader(strings.NewReader(text)), analysis.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestSelect(t *testing.T) {
	all, ok := Select("")
	if !ok || len(all) != len(Sections) {
		t.Fatalf("empty grafico should select all, got %d ok=%v", len(all), ok)
	}
	all, ok = Select(All)
	if !ok || len(all) != 8 || all[0].Key != "dataframe" || all[7].Key != "scatter" {
		t.Fatalf("all: %+v", all)
	}
	one, ok := Select("heatmap")
	if !ok || len(one) != 1 || one[0].Key != "heatmap" {
		t.Fatalf("heatmap: %+v", one)
	}
	none, ok := Select("pizza")
	if ok || len(none) != 0 {
		t.Fatalf("unknown grafico should select nothing, got %+v", none)
	}
	want := []string{"all", "dataframe", "distribuicao", "histograma", "heatmap", "alcool_qualidade", "acidez_qualidade", "boxplot", "scatter"}
	if diff := cmp.Diff(want, Keys()); diff != "" {
		t.Fatalf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanAll(t *testing.T) {
	ds := wine(t, wineCSV)
	blocks := Plan(ds, Sections, Params{Bins: 30})
	if len(blocks) != len(Sections) {
		t.Fatalf("blocks = %d", len(blocks))
	}
	byKey := map[string]Block{}
	for _, b := range blocks {
		byKey[b.Key] = b
		if b.Notice != "" {
			t.Errorf("%s: unexpected notice %q", b.Key, b.Notice)
		}
	}
	df := byKey["dataframe"].Table
	if df == nil || len(df.Rows) != 5 || len(df.Header) != 5 {
		t.Fatalf("dataframe table: %+v", df)
	}
	for _, h := range df.Header {
		if h == "Id" {
			t.Fatal("Id column must be dropped")
		}
	}
	if got := byKey["histograma"].Params.Hist; got != "fixed acidity" {
		t.Fatalf("default hist column = %q", got)
	}
	box := byKey["boxplot"].Figures
	if len(box) != 4 {
		t.Fatalf("boxplot figures = %d, want 4 (quality excluded)", len(box))
	}
	for _, f := range box {
		if f.Params.Col == ColQuality {
			t.Fatal("quality must not get a boxplot")
		}
		if !strings.Contains(f.Caption, "median=") {
			t.Fatalf("caption = %q", f.Caption)
		}
	}
	sc := byKey["scatter"].Params
	if sc.X != "fixed acidity" || sc.Y != "volatile acidity" {
		t.Fatalf("scatter defaults = %+v", sc)
	}
}

func TestPlanMissingColumns(t *testing.T) {
	ds := wine(t, "a,b\n1,2\n3,5\n4,4\n")
	blocks := Plan(ds, Sections, Params{})
	for _, b := range blocks {
		switch b.Key {
		case "distribuicao", "alcool_qualidade", "acidez_qualidade":
			if b.Notice == "" || len(b.Figures) != 0 {
				t.Errorf("%s: expected a notice, got %+v", b.Key, b)
			}
		case "heatmap", "scatter", "histograma":
			if b.Notice != "" {
				t.Errorf("%s: unexpected notice %q", b.Key, b.Notice)
			}
		}
	}
}

func TestPlanKeepsValidChoices(t *testing.T) {
	ds := wine(t, wineCSV)
	blocks := Plan(ds, []Section{{Key: "histograma"}, {Key: "scatter"}}, Params{Hist: "Alcohol", X: "quality", Y: "nope"})
	if got := blocks[0].Params.Hist; got != "alcohol" {
		t.Fatalf("hist = %q", got)
	}
	want := Params{Hist: "Alcohol", X: "quality", Y: "volatile acidity"}
	if diff := cmp.Diff(want, blocks[1].Params); diff != "" {
		t.Fatalf("scatter params (-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	ds := wine(t, wineCSV)
	cases := []struct {
		key string
		p   Params
	}{
		{"distribuicao", Params{}},
		{"histograma", Params{Hist: "alcohol", Bins: 30}},
		{"heatmap", Params{}},
		{"alcool_qualidade", Params{}},
		{"acidez_qualidade", Params{}},
		{"boxplot", Params{Col: "fixed acidity"}},
		{"scatter", Params{X: "alcohol", Y: "citric acid"}},
	}
	for _, c := range cases {
		b, err := Render(ds, c.key, c.p)
		if err != nil {
			t.Fatalf("%s: %v", c.key, err)
		}
		if !strings.Contains(string(b), "<svg") {
			t.Fatalf("%s: not svg", c.key)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	ds := wine(t, wineCSV)
	if _, err := Render(ds, "pizza", Params{}); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("unknown key: %v", err)
	}
	if _, err := Render(ds, "dataframe", Params{}); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("dataframe: %v", err)
	}
	if _, err := Render(ds, "boxplot", Params{Col: "nope"}); !errors.Is(err, analysis.ErrNoColumn) {
		t.Fatalf("missing col: %v", err)
	}
	noQuality := wine(t, "a,b\n1,2\n3,5\n")
	if _, err := Render(noQuality, "alcool_qualidade", Params{}); !errors.Is(err, analysis.ErrNoColumn) {
		t.Fatalf("missing alcohol: %v", err)
	}
}

func TestUnknownHistFallsBackEverywhere(t *testing.T) {
	ds := wine(t, wineCSV)
	blocks := Plan(ds, []Section{{Key: "histograma"}}, Params{Hist: "nope", Bins: 10})
	b := blocks[0]
	if b.Params.Hist != "fixed acidity" || len(b.Figures) != 1 {
		t.Fatalf("histograma block = %+v", b)
	}
	if !strings.Contains(b.Notice, `"nope" is not numeric`) {
		t.Fatalf("notice = %q", b.Notice)
	}

	got, err := Render(ds, "histograma", Params{Hist: "nope", Bins: 10})
	if err != nil {
		t.Fatalf("render unknown hist: %v", err)
	}
	want, err := Render(ds, "histograma", b.Figures[0].Params)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("unknown hist should draw the same chart the page plans")
	}
}

func TestWideDatasetIsCapped(t *testing.T) {
	const width = MaxChartColumns + 15
	var sb strings.Builder
	for i := 0; i < width; i++ {
		fmt.Fprintf(&sb, "col_%02d,", i)
	}
	sb.WriteString("quality\n")
	for r := 0; r < 3; r++ {
		for i := 0; i < width; i++ {
			fmt.Fprintf(&sb, "%d,", (r+1)*(i%7+1))
		}
		fmt.Fprintf(&sb, "%d\n", 5+r)
	}
	ds := wine(t, sb.String())

	blocks := Plan(ds, []Section{{Key: "heatmap"}, {Key: "boxplot"}}, Params{})
	heat, box := blocks[0], blocks[1]
	if want := fmt.Sprintf("Showing the first %d of %d numeric columns.", MaxChartColumns, width+1); heat.Notice != want {
		t.Fatalf("heatmap notice = %q, want %q", heat.Notice, want)
	}
	if len(heat.Figures) != 1 {
		t.Fatalf("heatmap figures = %d", len(heat.Figures))
	}
	if len(box.Figures) != MaxChartColumns {
		t.Fatalf("boxplot figures = %d, want %d", len(box.Figures), MaxChartColumns)
	}
	if want := fmt.Sprintf("Showing the first %d of %d numeric columns.", MaxChartColumns, width); box.Notice != want {
		t.Fatalf("boxplot notice = %q, want %q", box.Notice, want)
	}

	svg, err := Render(ds, "heatmap", Params{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(svg), fmt.Sprintf("col_%02d", MaxChartColumns)) {
		t.Fatal("heatmap should only draw the first columns")
	}
}
