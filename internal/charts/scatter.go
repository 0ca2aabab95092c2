package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ScatterSpec describes a scatter plot. Points with a non-NaN C are colored
// along Scale; the others use the wine color.
type ScatterSpec struct {
	Title   string
	XName   string
	YName   string
	Points  []analysis.Point
	Scale   string
	Opacity float64
}

// Scatter renders the points as dots without connecting lines.
func Scatter(spec ScatterSpec) ([]byte, error) {
	if len(spec.Points) == 0 {
		return nil, errors.New("scatter: no data")
	}
	xs := make([]float64, len(spec.Points))
	ys := make([]float64, len(spec.Points))
	cLo, cHi := math.Inf(1), math.Inf(-1)
	for i, p := range spec.Points {
		xs[i], ys[i] = p.X, p.Y
		if !math.IsNaN(p.C) {
			cLo = math.Min(cLo, p.C)
			cHi = math.Max(cHi, p.C)
		}
	}
	alpha := uint8(255)
	if spec.Opacity > 0 && spec.Opacity < 1 {
		alpha = uint8(math.Round(spec.Opacity * 255))
	}
	points := spec.Points
	dotColor := func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
		c := points[index].C
		if math.IsNaN(c) {
			return hexColor(Wine).WithAlpha(alpha)
		}
		return scaleColor(spec.Scale, c, cLo, cHi).WithAlpha(alpha)
	}

	bg := hexColor(Background)
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{FillColor: bg, Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Canvas:     chart.Style{FillColor: bg},
		XAxis: chart.XAxis{
			Name:           spec.XName,
			Range:          paddedRange(xs),
			ValueFormatter: formatValue,
		},
		YAxis: chart.YAxis{
			Name:           spec.YName,
			Range:          paddedRange(ys),
			ValueFormatter: formatValue,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    spec.YName,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth:      chart.Disabled,
					DotWidth:         4,
					DotColorProvider: dotColor,
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render scatter: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange widens [min, max] by 5% so edge dots stay inside the canvas.
// A constant series gets a unit-wide range around its value.
func paddedRange(vals []float64) *chart.ContinuousRange {
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 0.5
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
