package components

import (
	"image"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func sampleState() ControlsState {
	return ControlsState{
		Positions:   []string{"0: pos0", "1: pos1"},
		Position:    1,
		Particles:   []string{"Particle 3", "Particle 8"},
		Particle:    0,
		Frame:       4,
		FrameMin:    0,
		FrameMax:    9,
		Channels:    []string{"BF", "GFP"},
		Channel:     1,
		Contrast:    1200,
		ContrastMin: 0,
		ContrastMax: 65535,
		Enabled:     true,
		HasParticle: true,
	}
}

func TestControlsUpdateDoesNotFireHandlers(t *testing.T) {
	test.NewTempApp(t)

	cp := NewControlsPanel()
	fired := 0
	cp.SetPositionHandler(func(int) { fired++ })
	cp.SetParticleHandler(func(int) { fired++ })
	cp.SetChannelHandler(func(int) { fired++ })
	cp.SetEnabledHandler(func(bool) { fired++ })

	cp.Update(sampleState())

	assert.Zero(t, fired)
	assert.Equal(t, "1: pos1", cp.PositionSelect.Selected)
	assert.Equal(t, "Particle 3", cp.ParticleSelect.Selected)
	assert.Equal(t, "GFP", cp.ChannelRadio.Selected)
	assert.Equal(t, 4.0, cp.FrameSlider.Value)
	assert.True(t, cp.EnabledCheck.Checked)
	assert.False(t, cp.ContrastSlider.Disabled())
}

func TestControlsUserChangesFireHandlers(t *testing.T) {
	test.NewTempApp(t)

	cp := NewControlsPanel()
	cp.Update(sampleState())

	var particle, channel = -1, -1
	var enabled *bool
	cp.SetParticleHandler(func(i int) { particle = i })
	cp.SetChannelHandler(func(i int) { channel = i })
	cp.SetEnabledHandler(func(on bool) { enabled = &on })

	cp.ParticleSelect.SetSelectedIndex(1)
	cp.ChannelRadio.SetSelected("BF")
	cp.EnabledCheck.SetChecked(false)

	assert.Equal(t, 1, particle)
	assert.Equal(t, 0, channel)
	if assert.NotNil(t, enabled) {
		assert.False(t, *enabled)
	}
}

func TestControlsDisableWithoutParticle(t *testing.T) {
	test.NewTempApp(t)

	cp := NewControlsPanel()
	state := sampleState()
	state.Particles = nil
	state.Particle = -1
	state.HasParticle = false
	state.ContrastFixed = true
	cp.Update(state)

	assert.True(t, cp.ParticleSelect.Disabled())
	assert.True(t, cp.EnabledCheck.Disabled())
	assert.True(t, cp.ContrastSlider.Disabled())
	assert.Empty(t, cp.ParticleSelect.Selected)
}

func TestImageDisplaySetImage(t *testing.T) {
	test.NewTempApp(t)

	d := NewImageDisplay("Frame", 100, 100)
	assert.False(t, d.HasImage())

	d.SetImage(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.True(t, d.HasImage())

	d.SetImage(nil)
	assert.False(t, d.HasImage())
}

func TestStatusBar(t *testing.T) {
	test.NewTempApp(t)

	sb := NewStatusBar()
	assert.Equal(t, "Ready", sb.Status())
	sb.SetStatus("pos0")
	sb.SetJobs("Jobs: 1 running")
	assert.Equal(t, "pos0", sb.Status())
	assert.Equal(t, "Jobs: 1 running", sb.Jobs())
}
