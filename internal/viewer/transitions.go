package viewer

import (
	"context"
	"fmt"
	"image"
	"slices"

	"trackview/internal/models"
	"trackview/internal/positions"
	"trackview/internal/render"
	"trackview/internal/series"
	"trackview/internal/tracks"
)

func (s *Session) selectedParticle() (int64, bool) {
	if len(s.particles) == 0 {
		return 0, false
	}
	return s.particles[s.particle.Value], true
}

// positionChanged swaps the label container and track table for the
// current position. A particle selected before the switch stays selected
// when the new position tracks it too; otherwise the first particle is.
func (s *Session) positionChanged(ctx context.Context) error {
	pos := s.positions[s.position.Value]
	dir := positions.Dir(s.outputDir, pos)

	prevID, hadParticle := s.selectedParticle()
	hadParticle = hadParticle && s.loaded

	if err := s.closeContainer(); err != nil {
		s.log.Warning(component, "closing previous label container failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.loaded = false
	s.table = nil
	s.particles = nil
	s.particle = models.NewIntControl(0, 0, -1)
	s.plots = nil
	s.releaseImages()

	container, err := s.deps.Labels.Open(dir)
	if err != nil {
		return fmt.Errorf("open labels of position %s: %w", pos, err)
	}
	table, err := s.deps.LoadTracks(dir)
	if err != nil {
		container.Close()
		return fmt.Errorf("load tracks of position %s: %w", pos, err)
	}

	s.container = container
	s.table = table
	s.particles = table.Particles()
	s.particle = models.NewIntControl(0, 0, len(s.particles)-1)
	s.frame.Set(container.FrameMin())
	s.loaded = true

	s.log.Info(component, "position loaded", map[string]interface{}{
		"position":  pos.Index,
		"folder":    pos.Folder,
		"particles": len(s.particles),
		"frame_min": container.FrameMin(),
		"frame_max": container.FrameMax(),
	})

	// The particle may sit elsewhere in the new position, so the viewport
	// is recentered either way.
	if hadParticle {
		if idx := slices.Index(s.particles, prevID); idx >= 0 {
			s.particle.Set(idx)
		}
	}
	return s.particleChanged(ctx)
}

// particleChanged re-reads the enabled flag and recenters the viewport on
// the selected particle.
func (s *Session) particleChanged(ctx context.Context) error {
	meta := s.deps.Frames.Metadata()
	half := s.cfg.Viewer.HalfViewport
	size := 2 * half

	anchor := image.Point{}
	s.enabled = false
	if id, ok := s.selectedParticle(); ok {
		enabled, err := s.table.Enabled(id)
		if err != nil {
			return err
		}
		s.enabled = enabled
		anchor = meanAnchor(s.table.Rows(id), half, meta.Height, meta.Width)
	}
	s.viewport = image.Rect(anchor.X, anchor.Y, anchor.X+size, anchor.Y+size).
		Intersect(image.Rect(0, 0, meta.Width, meta.Height))

	if err := s.aggregate(); err != nil {
		return err
	}
	return s.frameChanged(ctx)
}

func (s *Session) frameChanged(ctx context.Context) error {
	s.updateCursors()
	if err := s.refreshChannel(ctx); err != nil {
		return err
	}
	if err := s.refreshOutlines(); err != nil {
		return err
	}
	return s.render()
}

func (s *Session) channelChanged(ctx context.Context) error {
	if err := s.refreshChannel(ctx); err != nil {
		return err
	}
	return s.render()
}

func (s *Session) brightnessTitle() string {
	if names := s.container.ChannelNames(); len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return "Brightness"
}

func (s *Session) aggregate() error {
	selected := -1
	if _, ok := s.selectedParticle(); ok {
		selected = s.particle.Value
	}

	res, err := s.agg.Aggregate(s.table, series.Request{
		Selected:         selected,
		BrightnessColumn: tracks.BrightnessColumn(0),
		BrightnessTitle:  s.brightnessTitle(),
		Frame:            s.frame.Value,
	})
	if err != nil {
		return fmt.Errorf("aggregate series: %w", err)
	}
	s.plots = res
	return nil
}

func (s *Session) updateCursors() {
	if s.plots == nil {
		return
	}
	s.plots.Brightness.Cursor = float64(s.frame.Value)
	s.plots.Area.Cursor = float64(s.frame.Value)
}

func (s *Session) refreshChannel(ctx context.Context) error {
	pos := s.positions[s.position.Value]
	plane, err := s.deps.Frames.Plane(ctx, pos.Index, s.channel.Value, s.frame.Value)
	if err != nil {
		return fmt.Errorf("read plane: %w", err)
	}

	crop, ok := plane.SubImage(s.viewport.Add(plane.Rect.Min)).(*image.Gray16)
	if !ok || crop.Rect.Empty() {
		return fmt.Errorf("viewport %v outside plane %v: %w", s.viewport, plane.Rect, models.ErrOutOfRange)
	}

	threshold := render.Threshold(s.channel.Value, s.contrast.Value, s.cfg.Viewer.BrightfieldThreshold)
	gray, err := render.Normalize(crop, threshold)
	if err != nil {
		return err
	}
	defer gray.Close()

	bgr := render.ToBGR(gray)
	replace(&s.channelImage, &bgr)
	return nil
}

// refreshOutlines rebuilds the overlay of the current frame. Frames outside
// the labeled range get a blank overlay.
func (s *Session) refreshOutlines() error {
	w, h := s.viewport.Dx(), s.viewport.Dy()
	frame := s.frame.Value
	lo, hi := s.container.FrameMin(), s.container.FrameMax()

	if frame < lo || frame > hi {
		overlay, mask := render.Blank(w, h)
		replace(&s.overlay, &overlay)
		replace(&s.mask, &mask)
		return nil
	}

	full, err := s.container.Labels(frame - lo)
	if err != nil {
		return fmt.Errorf("read labels of frame %d: %w", frame, err)
	}
	crop := full.Crop(s.viewport)
	if crop.Width != w || crop.Height != h {
		return fmt.Errorf("label mask %dx%d does not cover viewport %v: %w", full.Width, full.Height, s.viewport, models.ErrInvalidData)
	}

	outlines, err := render.Outlines(crop)
	if err != nil {
		return err
	}

	layers := render.Layers{Tracked: render.NewLabelSet(), Enabled: render.NewLabelSet()}
	for _, r := range s.table.FrameRows(frame) {
		// label 0 is background and never outlined
		if r.Label <= 0 {
			continue
		}
		layers.Tracked[r.Label] = struct{}{}
		if tracks.IsEnabled(r.Enabled) {
			layers.Enabled[r.Label] = struct{}{}
		}
	}
	if id, ok := s.selectedParticle(); ok {
		if label, ok := s.table.Label(id, frame); ok && label > 0 {
			layers.HasSelection = true
			layers.Selected = label
			layers.SelectedEnabled = s.enabled
		}
	}

	overlay, mask, err := render.Overlay(outlines, layers)
	if err != nil {
		return err
	}
	replace(&s.overlay, &overlay)
	replace(&s.mask, &mask)
	return nil
}

func (s *Session) render() error {
	if s.channelImage == nil || s.overlay == nil || s.mask == nil {
		return fmt.Errorf("render before images are ready: %w", models.ErrNotInitialized)
	}
	out := render.Render(*s.overlay, *s.channelImage, *s.mask)
	replace(&s.rendered, &out)
	return nil
}
