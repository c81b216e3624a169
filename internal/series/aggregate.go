package series

import (
	"fmt"

	"trackview/internal/config"
	"trackview/internal/logger"
	"trackview/internal/tracks"
)

// Source is the part of the track table the aggregator reads.
type Source interface {
	Particles() []int64
	Enabled(particle int64) (bool, error)
	Series(particle int64, column string) (frames, values []float64, err error)
}

// Palette is the color and opacity coding of plotted particles.
type Palette struct {
	Default         string
	Selected        string
	Disabled        string
	OpacityDefault  float64
	OpacitySelected float64
}

// PaletteFromConfig reads the palette from the plot settings.
func PaletteFromConfig(p config.Plots) Palette {
	return Palette{
		Default:         p.ColorDefault,
		Selected:        p.ColorSelected,
		Disabled:        p.ColorDisabled,
		OpacityDefault:  p.OpacityDefault,
		OpacitySelected: p.OpacitySelected,
	}
}

// Request selects what to aggregate.
type Request struct {
	// Selected is the index into Particles() of the selected particle, or
	// -1 when nothing is selected.
	Selected int

	BrightnessColumn string
	BrightnessTitle  string

	// Frame places the cursor line.
	Frame int
}

// Result is the output of one aggregation.
type Result struct {
	// States holds the enabled flag of every particle, by index.
	States []bool

	// Disabled lists the indexes of disabled particles as floats, the form
	// the client consumes.
	Disabled []float64

	SelectedEnabled bool

	Brightness *Figure
	Area       *Figure
}

// Aggregator builds the brightness and area figures of a track table.
type Aggregator struct {
	palette Palette
	height  int
	log     logger.Logger
}

// NewAggregator creates an aggregator. Figures are tagged with height for
// the client layout.
func NewAggregator(palette Palette, height int, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{palette: palette, height: height, log: log}
}

// Aggregate computes enabled states and both figures. Particles whose
// series cannot be read are skipped with a warning.
func (a *Aggregator) Aggregate(src Source, req Request) (*Result, error) {
	particles := src.Particles()
	if req.Selected >= len(particles) {
		return nil, fmt.Errorf("selected index %d of %d particles", req.Selected, len(particles))
	}

	res := &Result{
		States:     make([]bool, len(particles)),
		Disabled:   []float64{},
		Brightness: a.newFigure(req.BrightnessTitle, req.Frame),
		Area:       a.newFigure("Area", req.Frame),
	}

	for i, p := range particles {
		on, err := src.Enabled(p)
		if err != nil {
			return nil, fmt.Errorf("particle %d: %w", p, err)
		}
		res.States[i] = on
		if !on {
			res.Disabled = append(res.Disabled, float64(i))
		}
	}

	if len(particles) == 0 || req.Selected < 0 {
		return res, nil
	}
	res.SelectedEnabled = res.States[req.Selected]

	selectedColor := a.palette.Selected
	if !res.SelectedEnabled {
		selectedColor = a.palette.Disabled
	}
	style := func(i int) (string, float64) {
		if i == req.Selected {
			return selectedColor, a.palette.OpacitySelected
		}
		return a.palette.Default, a.palette.OpacityDefault
	}

	for i, p := range particles {
		color, opacity := style(i)
		a.appendTrace(res.Brightness, src, p, req.BrightnessColumn, fmt.Sprintf("Trace %d", i), color, opacity)
	}
	color, opacity := style(req.Selected)
	a.appendTrace(res.Brightness, src, particles[req.Selected], req.BrightnessColumn,
		fmt.Sprintf("Trace %d (Highlighted)", req.Selected), color, opacity)

	for i, p := range particles {
		if !res.States[i] || i == req.Selected {
			continue
		}
		color, opacity := style(i)
		a.appendTrace(res.Area, src, p, tracks.ColArea, fmt.Sprintf("Trace %d", i), color, opacity)
	}
	a.appendTrace(res.Area, src, particles[req.Selected], tracks.ColArea,
		fmt.Sprintf("Trace %d (Highlighted)", req.Selected), color, opacity)

	return res, nil
}

func (a *Aggregator) newFigure(title string, frame int) *Figure {
	return &Figure{
		Title:       title,
		Height:      a.height,
		HasCursor:   true,
		Cursor:      float64(frame),
		CursorColor: a.palette.Selected,
	}
}

func (a *Aggregator) appendTrace(fig *Figure, src Source, particle int64, column, name, color string, opacity float64) {
	x, y, err := src.Series(particle, column)
	if err != nil {
		a.log.Warning("series", "skipping particle without series data", map[string]interface{}{
			"particle": particle,
			"column":   column,
			"error":    err.Error(),
		})
		return
	}
	if len(x) != len(y) {
		a.log.Warning("series", "skipping particle with mismatched series", map[string]interface{}{
			"particle": particle,
			"column":   column,
			"frames":   len(x),
			"values":   len(y),
		})
		return
	}
	fig.Traces = append(fig.Traces, Trace{Name: name, X: x, Y: y, Color: color, Opacity: opacity})
}
