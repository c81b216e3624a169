package components

import (
	"fmt"
	"slices"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ControlsState is what the controls panel shows. Particle is -1 when no
// particle is selected.
type ControlsState struct {
	Positions []string
	Position  int

	Particles []string
	Particle  int

	Frame    int
	FrameMin int
	FrameMax int

	Channels []string
	Channel  int

	Contrast    int
	ContrastMin int
	ContrastMax int
	// ContrastFixed disables the contrast slider, as for the brightfield channel.
	ContrastFixed bool

	Enabled     bool
	HasParticle bool
}

// ControlsPanel holds the navigation widgets. Programmatic updates through
// Update never reach the change handlers.
type ControlsPanel struct {
	container *fyne.Container

	PositionSelect *widget.Select
	ParticleSelect *widget.Select
	FrameSlider    *widget.Slider
	FrameLabel     *widget.Label
	ChannelRadio   *widget.RadioGroup
	ContrastSlider *widget.Slider
	ContrastLabel  *widget.Label
	EnabledCheck   *widget.Check

	updating bool

	positionHandler func(int)
	particleHandler func(int)
	frameHandler    func(int)
	channelHandler  func(int)
	contrastHandler func(int)
	enabledHandler  func(bool)
}

func NewControlsPanel() *ControlsPanel {
	panel := &ControlsPanel{}
	panel.setupControls()
	return panel
}

func (cp *ControlsPanel) setupControls() {
	cp.PositionSelect = widget.NewSelect(nil, func(string) {
		cp.fireIndex(cp.positionHandler, cp.PositionSelect.SelectedIndex())
	})
	cp.PositionSelect.PlaceHolder = "No positions"

	cp.ParticleSelect = widget.NewSelect(nil, func(string) {
		cp.fireIndex(cp.particleHandler, cp.ParticleSelect.SelectedIndex())
	})
	cp.ParticleSelect.PlaceHolder = "No particles"

	cp.FrameSlider = widget.NewSlider(0, 1)
	cp.FrameSlider.Step = 1
	cp.FrameSlider.OnChanged = func(v float64) {
		if !cp.updating {
			cp.FrameLabel.SetText(fmt.Sprintf("Frame %d", int(v)))
		}
	}
	cp.FrameSlider.OnChangeEnded = func(v float64) {
		cp.fireIndex(cp.frameHandler, int(v))
	}
	cp.FrameLabel = widget.NewLabel("Frame -")

	cp.ChannelRadio = widget.NewRadioGroup(nil, func(selected string) {
		cp.fireIndex(cp.channelHandler, slices.Index(cp.ChannelRadio.Options, selected))
	})
	cp.ChannelRadio.Horizontal = true

	cp.ContrastSlider = widget.NewSlider(0, 65535)
	cp.ContrastSlider.Step = 1
	cp.ContrastSlider.OnChanged = func(v float64) {
		if !cp.updating {
			cp.ContrastLabel.SetText(fmt.Sprintf("Contrast %d", int(v)))
		}
	}
	cp.ContrastSlider.OnChangeEnded = func(v float64) {
		cp.fireIndex(cp.contrastHandler, int(v))
	}
	cp.ContrastLabel = widget.NewLabel("Contrast -")

	cp.EnabledCheck = widget.NewCheck("Enabled", func(on bool) {
		if cp.updating || cp.enabledHandler == nil {
			return
		}
		cp.enabledHandler(on)
	})

	form := widget.NewForm(
		widget.NewFormItem("Position", cp.PositionSelect),
		widget.NewFormItem("Particle", container.NewBorder(nil, nil, nil, cp.EnabledCheck, cp.ParticleSelect)),
		widget.NewFormItem("Channel", cp.ChannelRadio),
	)

	cp.container = container.NewVBox(
		form,
		widget.NewSeparator(),
		cp.FrameLabel,
		cp.FrameSlider,
		cp.ContrastLabel,
		cp.ContrastSlider,
	)
	cp.setDisabled(true)
}

func (cp *ControlsPanel) fireIndex(handler func(int), v int) {
	if cp.updating || handler == nil || v < 0 {
		return
	}
	handler(v)
}

func (cp *ControlsPanel) GetContainer() *fyne.Container {
	return cp.container
}

func (cp *ControlsPanel) SetPositionHandler(handler func(int)) { cp.positionHandler = handler }
func (cp *ControlsPanel) SetParticleHandler(handler func(int)) { cp.particleHandler = handler }
func (cp *ControlsPanel) SetFrameHandler(handler func(int))    { cp.frameHandler = handler }
func (cp *ControlsPanel) SetChannelHandler(handler func(int))  { cp.channelHandler = handler }
func (cp *ControlsPanel) SetContrastHandler(handler func(int)) { cp.contrastHandler = handler }
func (cp *ControlsPanel) SetEnabledHandler(handler func(bool)) { cp.enabledHandler = handler }

// SetPositions fills the position list before any position is loaded.
func (cp *ControlsPanel) SetPositions(names []string) {
	cp.updating = true
	defer func() { cp.updating = false }()

	cp.PositionSelect.Options = names
	cp.PositionSelect.Refresh()
	if len(names) > 0 {
		cp.PositionSelect.Enable()
	}
}

// Update shows s without firing any handler.
func (cp *ControlsPanel) Update(s ControlsState) {
	cp.updating = true
	defer func() { cp.updating = false }()

	cp.setDisabled(false)

	cp.PositionSelect.Options = s.Positions
	setSelectedIndex(cp.PositionSelect, s.Position)

	cp.ParticleSelect.Options = s.Particles
	setSelectedIndex(cp.ParticleSelect, s.Particle)
	if len(s.Particles) == 0 {
		cp.ParticleSelect.Disable()
	}

	frameMax := s.FrameMax
	if frameMax <= s.FrameMin {
		frameMax = s.FrameMin + 1
		cp.FrameSlider.Disable()
	}
	cp.FrameSlider.Min = float64(s.FrameMin)
	cp.FrameSlider.Max = float64(frameMax)
	cp.FrameSlider.SetValue(float64(s.Frame))
	cp.FrameLabel.SetText(fmt.Sprintf("Frame %d", s.Frame))

	cp.ChannelRadio.Options = s.Channels
	if s.Channel >= 0 && s.Channel < len(s.Channels) {
		cp.ChannelRadio.SetSelected(s.Channels[s.Channel])
	}
	cp.ChannelRadio.Refresh()

	cp.ContrastSlider.Min = float64(s.ContrastMin)
	cp.ContrastSlider.Max = float64(s.ContrastMax)
	cp.ContrastSlider.SetValue(float64(s.Contrast))
	cp.ContrastLabel.SetText(fmt.Sprintf("Contrast %d", s.Contrast))
	if s.ContrastFixed {
		cp.ContrastSlider.Disable()
	}

	cp.EnabledCheck.SetChecked(s.Enabled)
	if !s.HasParticle {
		cp.EnabledCheck.Disable()
	}
}

func (cp *ControlsPanel) setDisabled(disabled bool) {
	for _, w := range []fyne.Disableable{
		cp.PositionSelect, cp.ParticleSelect, cp.FrameSlider,
		cp.ChannelRadio, cp.ContrastSlider, cp.EnabledCheck,
	} {
		if disabled {
			w.Disable()
		} else {
			w.Enable()
		}
	}
}

func setSelectedIndex(s *widget.Select, i int) {
	if i < 0 || i >= len(s.Options) {
		s.ClearSelected()
		return
	}
	s.SetSelectedIndex(i)
}
