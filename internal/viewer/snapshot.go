package viewer

import (
	"encoding/json"
	"fmt"
	"image"

	"trackview/internal/models"
	"trackview/internal/opencv/conversion"
	"trackview/internal/render"
	"trackview/internal/series"
)

// Snapshot is the externally visible state after a transition.
type Snapshot struct {
	Position models.Position   `json:"position"`
	Frame    models.IntControl `json:"frame"`
	Channel  models.IntControl `json:"channel"`
	Contrast models.IntControl `json:"contrast"`
	Particle models.IntControl `json:"particle_index"`

	// FrameMin and FrameMax bound the frames that carry labels.
	FrameMin int `json:"frame_min"`
	FrameMax int `json:"frame_max"`

	ChannelNames []string  `json:"channel_names"`
	Particles    []int64   `json:"particles"`
	ParticleID   int64     `json:"particle"`
	HasParticle  bool      `json:"has_particle"`
	Enabled      bool      `json:"enabled"`
	Disabled     []float64 `json:"disabled_particles"`

	// Image is the rendered frame as base64 JPEG.
	Image          string          `json:"image"`
	BrightnessPlot json.RawMessage `json:"brightness_plot"`
	AreaPlot       json.RawMessage `json:"area_plot"`

	Picture    image.Image    `json:"-"`
	Brightness *series.Figure `json:"-"`
	Area       *series.Figure `json:"-"`
}

// Snapshot returns the current state without changing it.
func (s *Session) Snapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() (*Snapshot, error) {
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Position:     s.positions[s.position.Value],
		Frame:        s.frame,
		Channel:      s.channel,
		Contrast:     s.contrast,
		Particle:     s.particle,
		FrameMin:     s.container.FrameMin(),
		FrameMax:     s.container.FrameMax(),
		ChannelNames: s.deps.Frames.Metadata().ChannelNames,
		Particles:    append([]int64(nil), s.particles...),
		Enabled:      s.enabled,
		Disabled:     []float64{},
	}
	snap.ParticleID, snap.HasParticle = s.selectedParticle()

	if s.plots != nil {
		snap.Disabled = append(snap.Disabled, s.plots.Disabled...)
		snap.Brightness = s.plots.Brightness
		snap.Area = s.plots.Area

		var err error
		if snap.BrightnessPlot, err = s.plots.Brightness.JSON(); err != nil {
			return nil, err
		}
		if snap.AreaPlot, err = s.plots.Area.JSON(); err != nil {
			return nil, err
		}
	}

	if s.rendered != nil {
		encoded, err := render.EncodeJPEGBase64(*s.rendered, s.cfg.Viewer.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		snap.Image = encoded

		picture, err := conversion.MatToImage(*s.rendered)
		if err != nil {
			return nil, fmt.Errorf("convert frame: %w", err)
		}
		snap.Picture = picture
	}

	return snap, nil
}
