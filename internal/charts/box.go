package charts

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Box renders a single horizontal box plot of vals. NaN entries are skipped.
func Box(title, name string, vals []float64) ([]byte, error) {
	clean := make(plotter.Values, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, errors.New("box plot: no data")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = name
	p.BackgroundColor = rgba(hexColor(Background))

	bp, err := plotter.NewBoxPlot(vg.Points(60), 0, clean)
	if err != nil {
		return nil, fmt.Errorf("box plot: %w", err)
	}
	bp.Horizontal = true
	bp.FillColor = rgba(hexColor(Wine).WithAlpha(160))
	bp.BoxStyle.Color = rgba(hexColor(Plum))
	bp.MedianStyle.Color = rgba(hexColor(Plum))
	bp.MedianStyle.Width = vg.Points(2)
	p.Add(bp)
	p.NominalY(name)
	p.Add(plotter.NewGrid())

	return writeSVG(p, vg.Points(Width), vg.Points(BoxHeight))
}
