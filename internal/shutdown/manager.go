// Package shutdown stops registered components in reverse registration
// order when the process is asked to exit.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trackview/internal/logger"
)

const component = "ShutdownManager"

// Shutdownable is a component with resources to release.
type Shutdownable interface {
	Shutdown(ctx context.Context) error
}

// Func adapts a function to Shutdownable.
type Func func(ctx context.Context) error

func (f Func) Shutdown(ctx context.Context) error { return f(ctx) }

type entry struct {
	name      string
	component Shutdownable
}

type Manager struct {
	components []entry
	logger     logger.Logger
	timeout    time.Duration
	mu         sync.Mutex
	done       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	err        error
}

// NewManager creates a manager that gives each component timeout to stop.
func NewManager(log logger.Logger, timeout time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = logger.Nop()
	}

	return &Manager{
		logger:  log,
		timeout: timeout,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a component. Components stop in reverse order.
func (m *Manager) Register(name string, c Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, entry{name: name, component: c})
}

// Listen shuts down on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info(component, "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
		signal.Stop(sigChan)
	}()
}

// Shutdown stops every component once and returns the joined errors.
// Later calls return the result of the first.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return m.err
	default:
		close(m.done)
	}

	m.logger.Info(component, "shutdown sequence initiated", map[string]interface{}{
		"components": len(m.components),
	})

	m.cancel()

	var errs []error
	for i := len(m.components) - 1; i >= 0; i-- {
		e := m.components[i]

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		result := make(chan error, 1)
		go func() {
			result <- e.component.Shutdown(ctx)
		}()

		select {
		case err := <-result:
			if err != nil {
				m.logger.Error(component, err, map[string]interface{}{"component": e.name})
				errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			}
		case <-ctx.Done():
			m.logger.Warning(component, "component shutdown timeout", map[string]interface{}{
				"component": e.name,
			})
			errs = append(errs, fmt.Errorf("%s: %w", e.name, ctx.Err()))
		}
		cancel()
	}

	m.err = errors.Join(errs...)
	m.logger.Info(component, "shutdown sequence completed", nil)
	return m.err
}

// Context is canceled when shutdown starts.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Done is closed when shutdown starts.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
