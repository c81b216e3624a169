package series

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

// ErrNoSeries is returned when rendering a figure without traces.
var ErrNoSeries = errors.New("figure has no series")

// RenderPNG draws the figure as a PNG chart of width x height pixels.
func (f *Figure) RenderPNG(w io.Writer, width, height int) error {
	if f.Empty() {
		return ErrNoSeries
	}

	var xs, ys []float64
	var series []chart.Series
	for _, t := range f.Traces {
		if len(t.X) == 0 {
			continue
		}
		x, y := t.X, t.Y
		// go-chart needs two points per line
		if len(x) == 1 {
			x = []float64{x[0], x[0] + 1}
			y = []float64{y[0], y[0]}
		}
		xs = append(xs, x...)
		ys = append(ys, y...)
		series = append(series, chart.ContinuousSeries{
			Name:    t.Name,
			XValues: x,
			YValues: y,
			Style: chart.Style{
				StrokeColor: parseColor(t.Color, t.Opacity),
				StrokeWidth: 1.5,
			},
		})
	}
	if len(series) == 0 {
		return ErrNoSeries
	}

	xr := padRange(floats.Min(xs), floats.Max(xs))
	yr := padRange(floats.Min(ys), floats.Max(ys))

	if f.HasCursor && f.Cursor >= xr.Min && f.Cursor <= xr.Max {
		series = append(series, chart.ContinuousSeries{
			Name:    "cursor",
			XValues: []float64{f.Cursor, f.Cursor},
			YValues: []float64{yr.Min, yr.Max},
			Style: chart.Style{
				StrokeColor: parseColor(f.CursorColor, 1),
				StrokeWidth: 1,
			},
		})
	}

	ch := chart.Chart{
		Title:      f.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{Name: "Frame", Range: xr},
		YAxis:      chart.YAxis{Range: yr},
		Series:     series,
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %q: %w", f.Title, err)
	}
	return nil
}

// Image renders the figure and decodes it for display.
func (f *Figure) Image(width, height int) (image.Image, error) {
	var buf bytes.Buffer
	if err := f.RenderPNG(&buf, width, height); err != nil {
		return nil, err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart %q: %w", f.Title, err)
	}
	return img, nil
}

func padRange(lo, hi float64) *chart.ContinuousRange {
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// parseColor reads a #RRGGBB color; unparseable values fall back to gray.
func parseColor(hex string, opacity float64) drawing.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		c = colorful.Color{R: 0.5, G: 0.5, B: 0.5}
	}
	r, g, b := c.RGB255()
	return drawing.Color{R: r, G: g, B: b, A: uint8(clamp01(opacity) * 255)}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
