package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/KaramelBytes/winelens/internal/analysis"
	"github.com/wcharczuk/go-chart/v2"
)

// Default canvas sizes in pixels.
const (
	Width     = 960
	Height    = 480
	BoxHeight = 400
)

// Bar is one labelled bar of a bar chart.
type Bar struct {
	Label string
	Value float64
}

// HistogramBars labels each bin with its lower edge.
func HistogramBars(bins []analysis.Bin) []Bar {
	out := make([]Bar, len(bins))
	for i, b := range bins {
		out[i] = Bar{Label: formatTick(b.Lo), Value: float64(b.Count)}
	}
	return out
}

// CountBars turns an exact-value frequency table into bars.
func CountBars(counts []analysis.ValueCount) []Bar {
	out := make([]Bar, len(counts))
	for i, c := range counts {
		out[i] = Bar{Label: formatTick(c.Value), Value: float64(c.Count)}
	}
	return out
}

// Bars renders a vertical bar chart as SVG. yName labels the value axis.
func Bars(title, yName string, bars []Bar, fill string) ([]byte, error) {
	if len(bars) == 0 {
		return nil, errors.New("bar chart: no data")
	}
	maxV := 0.0
	values := make([]chart.Value, len(bars))
	for i, b := range bars {
		if b.Value > maxV {
			maxV = b.Value
		}
		values[i] = chart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: chart.Style{FillColor: hexColor(fill), StrokeColor: hexColor(fill), StrokeWidth: 1},
		}
	}
	if maxV <= 0 {
		maxV = 1
	}
	spacing := 4
	barWidth := (Width-140)/len(bars) - spacing
	if barWidth < 4 {
		barWidth = 4
	}
	bg := hexColor(Background)
	bc := chart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{FillColor: bg, Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Canvas:     chart.Style{FillColor: bg},
		YAxis: chart.YAxis{
			Name:           yName,
			Range:          &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
			ValueFormatter: formatValue,
		},
		Bars: values,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}
