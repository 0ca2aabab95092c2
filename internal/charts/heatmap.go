package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Rows are flipped
// so the first variable is drawn on top and the diagonal runs top-left to
// bottom-right.
type corrGrid struct {
	m *analysis.CorrMatrix
}

func (g corrGrid) Dims() (c, r int)   { return len(g.m.Columns), len(g.m.Columns) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
func (g corrGrid) Z(c, r int) float64 { return g.m.Values[len(g.m.Columns)-1-r][c] }

// rampPalette implements palette.Palette over a continuous color scale.
type rampPalette struct {
	scale string
	n     int
}

func (p rampPalette) Colors() []color.Color {
	out := make([]color.Color, p.n)
	for i := range out {
		out[i] = rgba(scaleColor(p.scale, float64(i), 0, float64(p.n-1)))
	}
	return out
}

// maxLabeledColumns is the widest matrix that still gets a value in every cell.
const maxLabeledColumns = 30

// Heatmap renders an annotated correlation heatmap with the color range
// pinned to [-1, 1].
func Heatmap(title string, m *analysis.CorrMatrix, scale string) ([]byte, error) {
	if m == nil || len(m.Columns) < 2 {
		return nil, errors.New("heatmap: need at least two numeric columns")
	}
	n := len(m.Columns)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Variables"
	p.Y.Label.Text = "Variables"
	p.BackgroundColor = rgba(hexColor(Background))

	hm := plotter.NewHeatMap(corrGrid{m: m}, rampPalette{scale: scale, n: 64})
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	if n <= maxLabeledColumns {
		lbl, err := cellLabels(corrGrid{m: m}, n)
		if err != nil {
			return nil, err
		}
		p.Add(lbl)
	}

	yNames := make([]string, n)
	for i, name := range m.Columns {
		yNames[n-1-i] = name
	}
	p.NominalX(m.Columns...)
	p.NominalY(yNames...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	return writeSVG(p, vg.Points(Width), vg.Points(Width*0.75))
}

func writeSVG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "svg")
	if err != nil {
		return nil, fmt.Errorf("svg writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write svg: %w", err)
	}
	return buf.Bytes(), nil
}

// cellLabels writes each correlation, rounded to two decimals, at the center
// of its cell. Dark cells get white text.
func cellLabels(grid corrGrid, n int) (*plotter.Labels, error) {
	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, fmt.Sprintf("%.2f", grid.Z(c, r)))
		}
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range lbl.TextStyle {
		z := grid.Z(i%n, i/n)
		lbl.TextStyle[i].XAlign = text.XCenter
		lbl.TextStyle[i].YAlign = text.YCenter
		lbl.TextStyle[i].Font.Size = vg.Points(8)
		lbl.TextStyle[i].Color = color.Black
		if (z+1)/2 > 0.6 {
			lbl.TextStyle[i].Color = color.White
		}
	}
	return lbl, nil
}
