// Package viewer holds the navigation state of one review session and runs
// the transitions that keep the rendered frame and plots consistent with it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"trackview/internal/config"
	"trackview/internal/frames"
	"trackview/internal/labels"
	"trackview/internal/logger"
	"trackview/internal/models"
	"trackview/internal/positions"
	"trackview/internal/series"
	"trackview/internal/tracks"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

const component = "viewer"

// Deps are the collaborators a session reads from.
type Deps struct {
	Frames frames.Source
	Labels labels.Opener

	// Labels defaults to HDF5Opener; LoadTracks defaults to tracks.Load.
	LoadTracks func(dir string) (*tracks.Table, error)

	Logger logger.Logger
}

// Session is one viewing session. All methods are safe for concurrent use;
// transitions are serialized and run to completion.
type Session struct {
	mu sync.Mutex

	cfg       *config.Config
	deps      Deps
	log       logger.Logger
	agg       *series.Aggregator
	outputDir string
	positions []models.Position

	// navigation state
	loaded   bool
	position models.IntControl
	frame    models.IntControl
	channel  models.IntControl
	contrast models.IntControl
	particle models.IntControl
	enabled  bool

	container labels.Container
	table     *tracks.Table
	particles []int64
	viewport  image.Rectangle

	// derived state
	channelImage *gocv.Mat
	overlay      *gocv.Mat
	mask         *gocv.Mat
	rendered     *gocv.Mat
	plots        *series.Result

	keyDown map[string]bool
}

// New discovers the positions below outputDir. No position is loaded until
// SelectPosition is called.
func New(deps Deps, cfg *config.Config, outputDir string) (*Session, error) {
	if deps.Frames == nil {
		return nil, errors.New("viewer: frame source is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Labels == nil {
		deps.Labels = labels.HDF5Opener{Logger: deps.Logger}
	}
	if deps.LoadTracks == nil {
		deps.LoadTracks = tracks.Load
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	found, err := positions.Discover(outputDir)
	if err != nil {
		return nil, fmt.Errorf("discover positions: %w", err)
	}

	meta := deps.Frames.Metadata()
	s := &Session{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Logger,
		agg:       series.NewAggregator(series.PaletteFromConfig(cfg.Plots), cfg.Plots.Height, deps.Logger),
		outputDir: outputDir,
		positions: found,
		position:  models.NewIntControl(0, 0, len(found)-1),
		frame:     models.NewIntControl(0, 0, meta.Frames-1),
		channel:   models.NewIntControl(0, 0, meta.Channels-1),
		contrast:  models.NewIntControl(cfg.Viewer.DefaultContrast, 0, 65535),
		particle:  models.NewIntControl(0, 0, -1),
		keyDown:   make(map[string]bool),
	}

	s.log.Info(component, "session created", map[string]interface{}{
		"output_dir": outputDir,
		"positions":  len(found),
		"frames":     meta.Frames,
		"channels":   meta.Channels,
	})
	return s, nil
}

// Positions returns the discovered positions in index order.
func (s *Session) Positions() []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Position(nil), s.positions...)
}

// Close releases the label container and image buffers.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.closeContainer()
	s.releaseImages()
	s.loaded = false
	return err
}

func (s *Session) closeContainer() error {
	if s.container == nil {
		return nil
	}
	err := s.container.Close()
	s.container = nil
	if err != nil {
		return fmt.Errorf("close label container: %w", err)
	}
	return nil
}

func (s *Session) releaseImages() {
	for _, m := range []**gocv.Mat{&s.channelImage, &s.overlay, &s.mask, &s.rendered} {
		replace(m, nil)
	}
}

// replace closes the Mat held in dst, if any, and stores m.
func replace(dst **gocv.Mat, m *gocv.Mat) {
	if *dst != nil {
		(*dst).Close()
	}
	*dst = m
}

func (s *Session) requireLoaded() error {
	if !s.loaded {
		return models.ErrNotInitialized
	}
	return nil
}

// SelectPosition loads position i (clamped into the discovered range).
func (s *Session) SelectPosition(ctx context.Context, i int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.positions) == 0 {
		return nil, fmt.Errorf("no valid positions in %s: %w", s.outputDir, models.ErrNotFound)
	}
	s.position.Set(i)
	if err := s.positionChanged(ctx); err != nil {
		return nil, err
	}
	return s.snapshot()
}

// SelectParticle selects particle index i (clamped).
func (s *Session) SelectParticle(ctx context.Context, i int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if s.particle.Set(i) {
		if err := s.particleChanged(ctx); err != nil {
			return nil, err
		}
	}
	return s.snapshot()
}

// SetFrame moves to frame f (clamped to the frame source bounds).
func (s *Session) SetFrame(ctx context.Context, f int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if s.frame.Set(f) {
		if err := s.frameChanged(ctx); err != nil {
			return nil, err
		}
	}
	return s.snapshot()
}

// SetChannel shows channel c (clamped).
func (s *Session) SetChannel(ctx context.Context, c int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if s.channel.Set(c) {
		if err := s.channelChanged(ctx); err != nil {
			return nil, err
		}
	}
	return s.snapshot()
}

// SetContrast sets the saturation threshold of fluorescence channels.
func (s *Session) SetContrast(ctx context.Context, v int) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if s.contrast.Set(v) {
		if err := s.channelChanged(ctx); err != nil {
			return nil, err
		}
	}
	return s.snapshot()
}

// SetEnabled persists the enabled flag of the selected particle. On a write
// failure the session keeps its previous state and the error wraps
// models.ErrIO.
func (s *Session) SetEnabled(ctx context.Context, enabled bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if err := s.enabledChanged(ctx, enabled); err != nil {
		return nil, err
	}
	return s.snapshot()
}

func (s *Session) enabledChanged(ctx context.Context, enabled bool) error {
	id, ok := s.selectedParticle()
	if !ok {
		return fmt.Errorf("no particle selected: %w", models.ErrNotFound)
	}
	if enabled == s.enabled {
		return nil
	}

	if err := s.table.SetEnabled(id, enabled); err != nil {
		s.log.Error(component, err, map[string]interface{}{
			"particle": id,
			"enabled":  enabled,
			"table":    s.table.Path(),
		})
		return fmt.Errorf("persist particle %d: %w", id, err)
	}
	s.enabled = enabled
	s.log.Info(component, "particle enabled state saved", map[string]interface{}{
		"particle": id,
		"enabled":  enabled,
	})

	if err := s.aggregate(); err != nil {
		return err
	}
	if err := s.refreshOutlines(); err != nil {
		return err
	}
	return s.render()
}

// Summary describes the loaded acquisition without requiring a position.
type Summary struct {
	OutputDir    string            `json:"output_dir"`
	Positions    []models.Position `json:"positions"`
	Frames       int               `json:"frames"`
	Channels     int               `json:"channels"`
	ChannelNames []string          `json:"channel_names"`
	Height       int               `json:"height"`
	Width        int               `json:"width"`
}

// Summary reports the positions found and the frame source bounds.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.deps.Frames.Metadata()
	return Summary{
		OutputDir:    s.outputDir,
		Positions:    append([]models.Position(nil), s.positions...),
		Frames:       meta.Frames,
		Channels:     meta.Channels,
		ChannelNames: meta.ChannelNames,
		Height:       meta.Height,
		Width:        meta.Width,
	}
}

// meanAnchor returns the top-left corner of the viewport centered on the
// particle's mean position. x indexes rows and y columns, as in the track
// table.
func meanAnchor(rows []tracks.Row, half, height, width int) image.Point {
	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = r.X
		ys[i] = r.Y
	}

	row := int(stat.Mean(xs, nil)) - half
	col := int(stat.Mean(ys, nil)) - half
	row = max(0, min(height-2*half, row))
	col = max(0, min(width-2*half, col))
	return image.Pt(col, row)
}
