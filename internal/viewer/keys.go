package viewer

import "context"

// Keys understood by HandleKeyDown, named as browsers report them.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyChannel    = "c"
	KeyEnter      = "Enter"
)

// HandleKeyDown applies a keyboard shortcut. A key that is still held from
// a previous press is ignored until HandleKeyUp releases it.
//
//	Left/Right   previous/next frame, by 10 with ctrl, within the labeled range
//	c            next channel, wrapping
//	Up/Down      next/previous particle
//	ctrl+Enter   toggle enabled
func (s *Session) HandleKeyDown(ctx context.Context, key string, ctrl bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if s.keyDown[key] {
		return s.snapshot()
	}
	s.keyDown[key] = true

	step := 1
	if ctrl {
		step = 10
	}

	var err error
	switch key {
	case KeyArrowLeft:
		if s.frame.Set(max(s.container.FrameMin(), s.frame.Value-step)) {
			err = s.frameChanged(ctx)
		}
	case KeyArrowRight:
		if s.frame.Set(min(s.container.FrameMax(), s.frame.Value+step)) {
			err = s.frameChanged(ctx)
		}
	case KeyChannel:
		if s.channel.Cycle() {
			err = s.channelChanged(ctx)
		}
	case KeyArrowUp:
		if s.particle.Step(1) {
			err = s.particleChanged(ctx)
		}
	case KeyArrowDown:
		if s.particle.Step(-1) {
			err = s.particleChanged(ctx)
		}
	case KeyEnter:
		if ctrl {
			err = s.enabledChanged(ctx, !s.enabled)
		}
	}
	if err != nil {
		return nil, err
	}
	return s.snapshot()
}

// HandleKeyUp releases a held key.
func (s *Session) HandleKeyUp(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keyDown, key)
}
