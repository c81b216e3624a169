// Package gui is the desktop front-end of a review session.
package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"trackview/internal/config"
	"trackview/internal/gui/components"
	"trackview/internal/jobs"
	"trackview/internal/logger"
	"trackview/internal/models"
	"trackview/internal/series"
	"trackview/internal/viewer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
)

const (
	FrameDisplaySize = 640
	jobPollInterval  = time.Second
	transitionQueue  = 32
)

type transitionFunc func(s *viewer.Session) (*viewer.Snapshot, error)

type transition struct {
	name string
	run  transitionFunc
}

// Manager owns the window content. User actions become session
// transitions that run one at a time off the UI goroutine; their snapshots
// are applied back through fyne.Do.
type Manager struct {
	window  fyne.Window
	session *viewer.Session
	queue   *jobs.Queue
	cfg     *config.Config
	logger  logger.Logger

	frameDisplay      *components.ImageDisplay
	brightnessDisplay *components.ImageDisplay
	areaDisplay       *components.ImageDisplay
	controls          *components.ControlsPanel
	statusBar         *components.StatusBar

	transitions chan transition
	ctrlDown    atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	isShutdown bool
}

func NewManager(window fyne.Window, session *viewer.Session, queue *jobs.Queue, cfg *config.Config, log logger.Logger) (*Manager, error) {
	if session == nil {
		return nil, errors.New("gui: session is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		window:            window,
		session:           session,
		queue:             queue,
		cfg:               cfg,
		logger:            log,
		frameDisplay:      components.NewImageDisplay("Frame", FrameDisplaySize, FrameDisplaySize),
		brightnessDisplay: components.NewImageDisplay("Brightness", float32(cfg.Plots.Width), float32(cfg.Plots.Height)),
		areaDisplay:       components.NewImageDisplay("Area", float32(cfg.Plots.Width), float32(cfg.Plots.Height)),
		controls:          components.NewControlsPanel(),
		statusBar:         components.NewStatusBar(),
		transitions:       make(chan transition, transitionQueue),
		ctx:               ctx,
		cancel:            cancel,
	}

	m.setupHandlers()

	m.logger.Info("GUIManager", "initialized", map[string]interface{}{
		"positions":   len(session.Positions()),
		"plot_width":  cfg.Plots.Width,
		"plot_height": cfg.Plots.Height,
	})
	return m, nil
}

func (m *Manager) setupHandlers() {
	m.controls.SetPositionHandler(func(i int) {
		m.enqueue("select position", func(s *viewer.Session) (*viewer.Snapshot, error) {
			return s.SelectPosition(m.ctx, i)
		})
	})
	m.controls.SetParticleHandler(func(i int) {
		m.enqueue("select particle", func(s *viewer.Session) (*viewer.Snapshot, error) {
			return s.SelectParticle(m.ctx, i)
		})
	})
	m.controls.SetFrameHandler(func(f int) {
		m.enqueue("set frame", func(s *viewer.Session) (*viewer.Snapshot, error) {
			return s.SetFrame(m.ctx, f)
		})
	})
	m.controls.SetChannelHandler(func(c int) {
		m.enqueue("set channel", func(s *viewer.Session) (*viewer.Snapshot, error) {
			return s.SetChannel(m.ctx, c)
		})
	})
	m.controls.SetContrastHandler(func(v int) {
		m.enqueue("set contrast", func(s *viewer.Session) (*viewer.Snapshot, error) {
			return s.SetContrast(m.ctx, v)
		})
	})
	m.controls.SetEnabledHandler(func(on bool) {
		m.enqueue("set enabled", func(s *viewer.Session) (*viewer.Snapshot, error) {
			return s.SetEnabled(m.ctx, on)
		})
	})
}

func (m *Manager) GetMainContainer() fyne.CanvasObject {
	plots := container.NewVBox(
		m.brightnessDisplay.GetContainer(),
		m.areaDisplay.GetContainer(),
	)
	left := container.NewBorder(m.controls.GetContainer(), nil, nil, nil, m.frameDisplay.GetContainer())

	return container.NewBorder(
		nil,
		m.statusBar.GetContainer(),
		nil, nil,
		container.NewHSplit(left, container.NewVScroll(plots)),
	)
}

// Start binds keys and menus, starts the transition worker and loads the
// first position.
func (m *Manager) Start() {
	m.bindKeys()
	m.window.SetMainMenu(m.mainMenu())

	m.wg.Add(1)
	go m.runTransitions()

	if m.queue != nil {
		m.wg.Add(1)
		go m.pollJobs()
	}

	positions := m.session.Positions()
	names := make([]string, len(positions))
	for i, p := range positions {
		names[i] = positionName(p)
	}
	m.controls.SetPositions(names)

	if len(positions) == 0 {
		m.statusBar.SetStatus("No positions found in " + m.session.Summary().OutputDir)
		return
	}
	m.enqueue("select position", func(s *viewer.Session) (*viewer.Snapshot, error) {
		return s.SelectPosition(m.ctx, 0)
	})
}

func (m *Manager) enqueue(name string, run transitionFunc) {
	select {
	case m.transitions <- transition{name: name, run: run}:
	case <-m.ctx.Done():
	}
}

func (m *Manager) runTransitions() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case t := <-m.transitions:
			m.runTransition(t)
		}
	}
}

func (m *Manager) runTransition(t transition) {
	start := time.Now()
	snap, err := t.run(m.session)
	if err != nil {
		m.ShowError(t.name, err)
		// Controls may show a value the session rejected.
		if snap, err = m.session.Snapshot(); err != nil {
			return
		}
	}
	if snap == nil {
		return
	}

	brightness := m.plotImage(snap.Brightness)
	area := m.plotImage(snap.Area)
	state := controlsState(snap, m.session.Positions())
	status := statusText(snap)

	fyne.Do(func() {
		m.controls.Update(state)
		m.frameDisplay.SetImage(snap.Picture)
		m.brightnessDisplay.SetImage(brightness)
		m.areaDisplay.SetImage(area)
		m.statusBar.SetStatus(status)
	})

	m.logger.Debug("GUIManager", "transition applied", map[string]interface{}{
		"transition": t.name,
		"duration":   time.Since(start).String(),
	})
}

func (m *Manager) plotImage(f *series.Figure) image.Image {
	if f == nil || f.Empty() {
		return nil
	}
	img, err := f.Image(m.cfg.Plots.Width, m.cfg.Plots.Height)
	if err != nil {
		if !errors.Is(err, series.ErrNoSeries) {
			m.logger.Error("GUIManager", err, map[string]interface{}{"plot": f.Title})
		}
		return nil
	}
	return img
}

func (m *Manager) pollJobs() {
	defer m.wg.Done()

	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			summary := jobsSummary(m.queue.List())
			fyne.Do(func() {
				m.statusBar.SetJobs(summary)
			})
		}
	}
}

func (m *Manager) ShowError(title string, err error) {
	m.logger.Error("GUIManager", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		dialog.ShowError(err, m.window)
	})
}

// Shutdown stops the transition worker and the job poll.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.isShutdown {
		m.mu.Unlock()
		return nil
	}
	m.isShutdown = true
	m.mu.Unlock()

	m.logger.Info("GUIManager", "shutdown initiated", nil)
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func positionName(p models.Position) string {
	return fmt.Sprintf("%d: %s", p.Index, p.Folder)
}

func controlsState(snap *viewer.Snapshot, positions []models.Position) components.ControlsState {
	state := components.ControlsState{
		Position:      snap.Position.Index,
		Particle:      -1,
		Frame:         snap.Frame.Value,
		FrameMin:      snap.Frame.Min,
		FrameMax:      snap.Frame.Max,
		Channel:       snap.Channel.Value,
		Contrast:      snap.Contrast.Value,
		ContrastMin:   snap.Contrast.Min,
		ContrastMax:   snap.Contrast.Max,
		ContrastFixed: snap.Channel.Value == 0,
		Enabled:       snap.Enabled,
		HasParticle:   snap.HasParticle,
	}

	state.Positions = make([]string, len(positions))
	for i, p := range positions {
		state.Positions[i] = positionName(p)
		if p == snap.Position {
			state.Position = i
		}
	}

	state.Particles = make([]string, len(snap.Particles))
	for i, id := range snap.Particles {
		state.Particles[i] = fmt.Sprintf("Particle %d", id)
	}
	if snap.HasParticle {
		state.Particle = snap.Particle.Value
	}

	state.Channels = make([]string, snap.Channel.Len())
	for i := range state.Channels {
		if i < len(snap.ChannelNames) && snap.ChannelNames[i] != "" {
			state.Channels[i] = snap.ChannelNames[i]
		} else {
			state.Channels[i] = fmt.Sprintf("Channel %d", i)
		}
	}
	return state
}

func statusText(snap *viewer.Snapshot) string {
	particle := "no particle"
	if snap.HasParticle {
		state := "disabled"
		if snap.Enabled {
			state = "enabled"
		}
		particle = fmt.Sprintf("particle %d (%s)", snap.ParticleID, state)
	}
	return fmt.Sprintf("%s | %s | frame %d | %d disabled",
		snap.Position.Folder, particle, snap.Frame.Value, len(snap.Disabled))
}

func jobsSummary(list []jobs.Status) string {
	if len(list) == 0 {
		return "No jobs"
	}
	counts := make(map[jobs.State]int)
	for _, st := range list {
		counts[st.State]++
	}
	last := list[len(list)-1]
	return fmt.Sprintf("Jobs: %d running, %d queued, %d failed | %s %s %s",
		counts[jobs.StateRunning], counts[jobs.StateQueued], counts[jobs.StateFailed],
		last.ID, last.Request.Kind, last.State)
}
