// Package series builds the per-particle brightness and area line plots and
// their color coding.
package series

import (
	"encoding/json"
	"fmt"
)

// Trace is one line of a figure.
type Trace struct {
	Name    string
	X       []float64
	Y       []float64
	Color   string
	Opacity float64
}

// Figure is a titled set of traces with an optional vertical cursor at the
// current frame.
type Figure struct {
	Title  string
	Height int
	Traces []Trace

	HasCursor   bool
	Cursor      float64
	CursorColor string
}

// Empty reports whether the figure has no traces.
func (f *Figure) Empty() bool {
	return len(f.Traces) == 0
}

// plotly-compatible wire shapes
type (
	wireFigure struct {
		Data   []wireTrace `json:"data"`
		Layout wireLayout  `json:"layout"`
	}
	wireTrace struct {
		Type    string    `json:"type"`
		X       []float64 `json:"x"`
		Y       []float64 `json:"y"`
		Mode    string    `json:"mode"`
		Line    wireLine  `json:"line"`
		Opacity float64   `json:"opacity"`
		Name    string    `json:"name,omitempty"`
	}
	wireLine struct {
		Color string `json:"color"`
	}
	wireLayout struct {
		Title  wireTitle   `json:"title"`
		Height int         `json:"height,omitempty"`
		Shapes []wireShape `json:"shapes,omitempty"`
	}
	wireTitle struct {
		Text string `json:"text"`
	}
	wireShape struct {
		Type string   `json:"type"`
		X0   float64  `json:"x0"`
		X1   float64  `json:"x1"`
		Y0   float64  `json:"y0"`
		Y1   float64  `json:"y1"`
		YRef string   `json:"yref"`
		Line wireLine `json:"line"`
	}
)

// JSON encodes the figure as a plotly figure description.
func (f *Figure) JSON() ([]byte, error) {
	w := wireFigure{
		Data:   make([]wireTrace, 0, len(f.Traces)),
		Layout: wireLayout{Title: wireTitle{Text: f.Title}, Height: f.Height},
	}
	for _, t := range f.Traces {
		w.Data = append(w.Data, wireTrace{
			Type:    "scatter",
			X:       nonNil(t.X),
			Y:       nonNil(t.Y),
			Mode:    "lines",
			Line:    wireLine{Color: t.Color},
			Opacity: t.Opacity,
			Name:    t.Name,
		})
	}
	if f.HasCursor {
		w.Layout.Shapes = []wireShape{{
			Type: "line", X0: f.Cursor, X1: f.Cursor, Y0: 0, Y1: 1, YRef: "paper",
			Line: wireLine{Color: f.CursorColor},
		}}
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode figure %q: %w", f.Title, err)
	}
	return data, nil
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
