package gui

import (
	"trackview/internal/viewer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

var viewerKeys = map[fyne.KeyName]string{
	fyne.KeyLeft:   viewer.KeyArrowLeft,
	fyne.KeyRight:  viewer.KeyArrowRight,
	fyne.KeyUp:     viewer.KeyArrowUp,
	fyne.KeyDown:   viewer.KeyArrowDown,
	fyne.KeyC:      viewer.KeyChannel,
	fyne.KeyReturn: viewer.KeyEnter,
	fyne.KeyEnter:  viewer.KeyEnter,
}

// viewerKey maps a fyne key to the session's key name.
func viewerKey(name fyne.KeyName) (string, bool) {
	key, ok := viewerKeys[name]
	return key, ok
}

func isCtrl(name fyne.KeyName) bool {
	return name == desktop.KeyControlLeft || name == desktop.KeyControlRight
}

// bindKeys routes window key presses to the session. Fyne reports modifiers
// as separate key events, so ctrl is tracked here.
func (m *Manager) bindKeys() {
	dc, ok := m.window.Canvas().(desktop.Canvas)
	if !ok {
		m.logger.Warning("GUIManager", "canvas has no key events, keyboard navigation disabled", nil)
		return
	}
	dc.SetOnKeyDown(m.onKeyDown)
	dc.SetOnKeyUp(m.onKeyUp)
}

func (m *Manager) onKeyDown(ev *fyne.KeyEvent) {
	if isCtrl(ev.Name) {
		m.ctrlDown.Store(true)
		return
	}
	key, ok := viewerKey(ev.Name)
	if !ok {
		return
	}
	ctrl := m.ctrlDown.Load()
	m.enqueue("key "+key, func(s *viewer.Session) (*viewer.Snapshot, error) {
		return s.HandleKeyDown(m.ctx, key, ctrl)
	})
}

func (m *Manager) onKeyUp(ev *fyne.KeyEvent) {
	if isCtrl(ev.Name) {
		m.ctrlDown.Store(false)
		return
	}
	key, ok := viewerKey(ev.Name)
	if !ok {
		return
	}
	m.enqueue("key up "+key, func(s *viewer.Session) (*viewer.Snapshot, error) {
		s.HandleKeyUp(key)
		return nil, nil
	})
}
