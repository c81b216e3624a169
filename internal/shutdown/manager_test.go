package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackview/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsInReverseOrderOnce(t *testing.T) {
	m := NewManager(logger.Nop(), time.Second)
	var order []string
	for _, name := range []string{"jobs", "session", "window"} {
		name := name
		m.Register(name, Func(func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}))
	}

	assert.NoError(t, m.Shutdown())
	assert.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"window", "session", "jobs"}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownCollectsErrorsAndTimeouts(t *testing.T) {
	m := NewManager(logger.Nop(), 20*time.Millisecond)
	failure := errors.New("close failed")
	m.Register("failing", Func(func(ctx context.Context) error { return failure }))
	m.Register("stuck", Func(func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	}))

	err := m.Shutdown()
	assert.ErrorIs(t, err, failure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
