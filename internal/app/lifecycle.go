package app

import (
	"context"
	"time"

	"trackview/internal/frames"
	"trackview/internal/gui"
	"trackview/internal/jobs"
	"trackview/internal/logger"
	"trackview/internal/shutdown"
	"trackview/internal/viewer"
)

const shutdownTimeout = 15 * time.Second

// Lifecycle stops the application components in reverse dependency order:
// the GUI first, then running jobs, the session and the frame source.
type Lifecycle struct {
	manager *shutdown.Manager
	logger  logger.Logger
}

func NewLifecycle(log logger.Logger, source frames.Source, session *viewer.Session, queue *jobs.Queue, gm *gui.Manager) *Lifecycle {
	m := shutdown.NewManager(log, shutdownTimeout)

	if source != nil {
		m.Register("frame source", closer(source.Close))
	}
	if session != nil {
		m.Register("session", closer(session.Close))
	}
	if queue != nil {
		m.Register("job queue", queue)
	}
	if gm != nil {
		m.Register("GUI manager", gm)
	}

	return &Lifecycle{manager: m, logger: log}
}

func closer(fn func() error) shutdown.Func {
	return func(context.Context) error { return fn() }
}

// Listen calls onSignal after SIGINT or SIGTERM has shut the components down.
func (l *Lifecycle) Listen(onSignal func()) {
	l.manager.Listen()
	go func() {
		<-l.manager.Done()
		onSignal()
	}()
}

// Shutdown runs once; later calls return the first result.
func (l *Lifecycle) Shutdown() error {
	l.logger.Info("Lifecycle", "shutdown sequence initiated", nil)
	err := l.manager.Shutdown()
	l.logger.Info("Lifecycle", "shutdown sequence completed", nil)
	return err
}
