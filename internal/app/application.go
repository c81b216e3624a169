// Package app assembles the session, job queue and window of the desktop
// viewer.
package app

import (
	"errors"

	"trackview/internal/config"
	"trackview/internal/frames"
	"trackview/internal/gui"
	"trackview/internal/jobs"
	"trackview/internal/logger"
	"trackview/internal/viewer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	AppName         = "Trackview"
	AppID           = "org.trackview.viewer"
	AppVersion      = "1.0.0"
	ControlsHeight  = 220
	StatusBarHeight = 40
	MinWindowWidth  = 800
	MinWindowHeight = 600
)

// Options configures NewApplication. Runner defaults to a CommandRunner
// over Config.Jobs.Commands.
type Options struct {
	Config    *config.Config
	Logger    logger.Logger
	Frames    frames.Source
	OutputDir string
	Runner    jobs.Runner
}

type Application struct {
	fyneApp    fyne.App
	window     fyne.Window
	session    *viewer.Session
	queue      *jobs.Queue
	guiManager *gui.Manager
	logger     logger.Logger
	lifecycle  *Lifecycle
}

func NewApplication(opts Options) (*Application, error) {
	if opts.Frames == nil {
		return nil, errors.New("app: frame source is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = jobs.CommandRunner{Commands: cfg.Jobs.Commands, Logger: log}
	}

	session, err := viewer.New(viewer.Deps{Frames: opts.Frames, Logger: log}, cfg, opts.OutputDir)
	if err != nil {
		return nil, err
	}
	queue := jobs.NewQueue(runner, cfg.Jobs.Workers, log)

	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(AppName)

	windowSize := calculateWindowSize(cfg)
	window.Resize(windowSize)
	window.SetFixedSize(false)
	window.CenterOnScreen()
	window.SetMaster()

	log.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"window_width":  windowSize.Width,
		"window_height": windowSize.Height,
		"output_dir":    opts.OutputDir,
		"positions":     len(session.Positions()),
		"workers":       cfg.Jobs.Workers,
	})

	guiManager, err := gui.NewManager(window, session, queue, cfg, log)
	if err != nil {
		session.Close()
		return nil, err
	}

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		session:    session,
		queue:      queue,
		guiManager: guiManager,
		logger:     log,
		lifecycle:  NewLifecycle(log, opts.Frames, session, queue, guiManager),
	}

	log.Info("Application", "initialization complete", nil)
	return application, nil
}

// calculateWindowSize fits the frame view beside two stacked plots.
func calculateWindowSize(cfg *config.Config) fyne.Size {
	width := float32(gui.FrameDisplaySize + cfg.Plots.Width)
	height := max(float32(gui.FrameDisplaySize+ControlsHeight), float32(2*cfg.Plots.Height)) + StatusBarHeight

	return fyne.NewSize(max(width, MinWindowWidth), max(height, MinWindowHeight))
}

func (a *Application) Run() error {
	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested", nil)
		if err := a.lifecycle.Shutdown(); err != nil {
			a.logger.Error("Application", err, nil)
		}
		a.window.Close()
	})
	a.lifecycle.Listen(func() {
		fyne.Do(a.fyneApp.Quit)
	})

	a.window.SetContent(a.guiManager.GetMainContainer())
	a.guiManager.Start()
	a.window.Show()

	a.logger.Info("Application", "GUI displayed", nil)
	a.fyneApp.Run()

	return a.lifecycle.Shutdown()
}
