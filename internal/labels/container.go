// Package labels reads the per-frame label masks produced by segmentation.
package labels

import (
	"fmt"
	"sync"

	"trackview/internal/models"
)

// FileName is the label container inside a position folder.
const FileName = "data.h5"

// Container gives access to the label masks of one position. Frame indices
// passed to Labels are local: frame - FrameMin().
type Container interface {
	FrameMin() int
	FrameMax() int
	ChannelNames() []string
	Labels(local int) (*Image, error)
	Close() error
}

// Opener opens the container of a position folder.
type Opener interface {
	Open(dir string) (Container, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(dir string) (Container, error)

func (f OpenerFunc) Open(dir string) (Container, error) {
	return f(dir)
}

// Memory is an in-memory Container, used by tests and synthetic sessions.
type Memory struct {
	Min    int
	Max    int
	Names  []string
	Frames []*Image

	mu     sync.Mutex
	closed bool
}

func (m *Memory) FrameMin() int          { return m.Min }
func (m *Memory) FrameMax() int          { return m.Max }
func (m *Memory) ChannelNames() []string { return m.Names }

func (m *Memory) Labels(local int) (*Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("label container closed: %w", models.ErrIO)
	}
	if local < 0 || local >= len(m.Frames) {
		return nil, fmt.Errorf("label frame %d of %d: %w", local, len(m.Frames), models.ErrOutOfRange)
	}
	return m.Frames[local], nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reopen clears the closed flag so the same container can be served again.
func (m *Memory) Reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}
