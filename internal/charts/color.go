// Package charts renders the dashboard figures as SVG. Bar and scatter charts
// use go-chart; the correlation heatmap and box plots use gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Theme colors shared by every chart.
const (
	Wine       = "#6E0B3C"
	Plum       = "#4B2245"
	Background = "#f8f4f9"
)

// Continuous color scale names accepted by Scatter and Heatmap.
const (
	ScaleRdPu    = "RdPu"
	ScaleOrRd    = "OrRd"
	ScaleViridis = "Viridis"
)

// Nine-class sequential ColorBrewer ramps, light to dark.
var ramps = map[string][]string{
	ScaleRdPu: {"#fff7f3", "#fde0dd", "#fcc5c0", "#fa9fb5", "#f768a1", "#dd3497", "#ae017e", "#7a0177", "#49006a"},
	ScaleOrRd: {"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000"},
}

// hexColor converts "#rrggbb" to a drawing.Color.
func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// rgba converts a drawing.Color for use with image/color based renderers.
func rgba(c drawing.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// scaleColor maps v within [lo, hi] onto the named continuous scale.
func scaleColor(scale string, v, lo, hi float64) drawing.Color {
	t := 0.5
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	t = math.Max(0, math.Min(1, t))
	if scale == ScaleViridis {
		return chart.Viridis(t, 0, 1)
	}
	ramp, ok := ramps[scale]
	if !ok {
		ramp = ramps[ScaleRdPu]
	}
	pos := t * float64(len(ramp)-1)
	i := int(math.Floor(pos))
	if i >= len(ramp)-1 {
		return hexColor(ramp[len(ramp)-1])
	}
	a, b := hexColor(ramp[i]), hexColor(ramp[i+1])
	w := pos - float64(i)
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x)*(1-w) + float64(y)*w)) }
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// ValidScale reports whether name is a known continuous scale.
func ValidScale(name string) bool {
	if name == ScaleViridis {
		return true
	}
	_, ok := ramps[name]
	return ok
}

// formatTick renders axis and bin labels compactly.
func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.3g", v)
}

// formatValue adapts formatTick to go-chart's ValueFormatter.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return formatTick(t)
	case int:
		return formatTick(float64(t))
	default:
		return fmt.Sprint(v)
	}
}
