package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	jobsLabel   *widget.Label
}

func NewStatusBar() *StatusBar {
	statusLabel := widget.NewLabel("Ready")
	jobsLabel := widget.NewLabel("No jobs")

	mainContainer := container.NewBorder(
		nil, nil,
		statusLabel,
		jobsLabel,
	)

	return &StatusBar{
		container:   mainContainer,
		statusLabel: statusLabel,
		jobsLabel:   jobsLabel,
	}
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) Status() string {
	return sb.statusLabel.Text
}

func (sb *StatusBar) SetJobs(summary string) {
	sb.jobsLabel.SetText(summary)
}

func (sb *StatusBar) Jobs() string {
	return sb.jobsLabel.Text
}
