package gui

import (
	"fmt"
	"strconv"
	"strings"

	"trackview/internal/jobs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

var kindTitles = map[jobs.Kind]string{
	jobs.KindSegmentation: "Segmentation",
	jobs.KindTracking:     "Tracking",
	jobs.KindSquareROI:    "Square ROI",
	jobs.KindExport:       "Export",
}

// jobForm holds the raw text of a job dialog.
type jobForm struct {
	InputPath    string
	OutputDir    string
	PositionMin  string
	PositionMax  string
	FrameMin     string
	FrameMax     string
	ChannelRoles string
	ExpandLabels bool
	SquareSize   string
	Minutes      string
}

// request parses the form into a validated request for kind.
func (f jobForm) request(kind jobs.Kind) (jobs.Request, error) {
	req := jobs.Request{
		Kind:         kind,
		InputPath:    strings.TrimSpace(f.InputPath),
		OutputDir:    strings.TrimSpace(f.OutputDir),
		ExpandLabels: f.ExpandLabels,
	}

	var err error
	parseInt := func(name, s string) int {
		if err != nil {
			return 0
		}
		v, perr := strconv.Atoi(strings.TrimSpace(s))
		if perr != nil {
			err = fmt.Errorf("%s: %w: %q is not an integer", name, jobs.ErrInvalidRequest, s)
		}
		return v
	}
	parseFloat := func(name, s string) float64 {
		if err != nil {
			return 0
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			err = fmt.Errorf("%s: %w: %q is not a number", name, jobs.ErrInvalidRequest, s)
		}
		return v
	}

	req.PositionMin = parseInt("position min", f.PositionMin)
	req.PositionMax = parseInt("position max", f.PositionMax)

	switch kind {
	case jobs.KindSegmentation:
		req.FrameMin = parseInt("frame min", f.FrameMin)
		req.FrameMax = parseInt("frame max", f.FrameMax)
		req.ChannelRoles = parseRoles(f.ChannelRoles)
	case jobs.KindSquareROI:
		req.SquareSize = parseFloat("square size", f.SquareSize)
	case jobs.KindExport:
		req.Minutes = parseFloat("minutes", f.Minutes)
	}
	if err != nil {
		return jobs.Request{}, err
	}
	return req, req.Validate()
}

// parseRoles reads a comma separated role list; "b" and "f" abbreviate
// Brightfield and Fluorescent, and an empty entry leaves a channel unused.
func parseRoles(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]string, len(parts))
	for i, p := range parts {
		switch r := strings.TrimSpace(p); strings.ToLower(r) {
		case "b", "bf", strings.ToLower(jobs.RoleBrightfield):
			roles[i] = jobs.RoleBrightfield
		case "f", "fl", strings.ToLower(jobs.RoleFluorescent):
			roles[i] = jobs.RoleFluorescent
		default:
			roles[i] = r
		}
	}
	return roles
}

func (m *Manager) mainMenu() *fyne.MainMenu {
	var items []*fyne.MenuItem
	for _, kind := range jobs.Kinds {
		items = append(items, fyne.NewMenuItem(kindTitles[kind]+"...", func() {
			m.showJobDialog(kind)
		}))
	}
	items = append(items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("Job status", m.showJobList))

	return fyne.NewMainMenu(fyne.NewMenu("Jobs", items...))
}

func (m *Manager) showJobDialog(kind jobs.Kind) {
	if m.queue == nil {
		m.ShowError("jobs", fmt.Errorf("job queue is not available"))
		return
	}

	summary := m.session.Summary()
	lastPosition := max(0, len(summary.Positions)-1)

	input := widget.NewEntry()
	output := widget.NewEntry()
	output.SetText(summary.OutputDir)
	posMin := widget.NewEntry()
	posMin.SetText("0")
	posMax := widget.NewEntry()
	posMax.SetText(strconv.Itoa(lastPosition))
	frameMin := widget.NewEntry()
	frameMin.SetText("0")
	frameMax := widget.NewEntry()
	frameMax.SetText(strconv.Itoa(max(0, summary.Frames-1)))
	roles := widget.NewEntry()
	roles.SetPlaceHolder("Brightfield, Fluorescent, ...")
	expand := widget.NewCheck("Expand labels", nil)
	square := widget.NewEntry()
	square.SetText("40")
	minutes := widget.NewEntry()
	minutes.SetText("15")

	formItems := []*widget.FormItem{
		widget.NewFormItem("Output directory", output),
		widget.NewFormItem("First position", posMin),
		widget.NewFormItem("Last position", posMax),
	}
	switch kind {
	case jobs.KindSegmentation:
		formItems = append(formItems,
			widget.NewFormItem("Input file", input),
			widget.NewFormItem("First frame", frameMin),
			widget.NewFormItem("Last frame", frameMax),
			widget.NewFormItem("Channel roles", roles),
		)
	case jobs.KindTracking:
		formItems = append(formItems, widget.NewFormItem("", expand))
	case jobs.KindSquareROI:
		formItems = append(formItems, widget.NewFormItem("Square size", square))
	case jobs.KindExport:
		formItems = append(formItems, widget.NewFormItem("Minutes per frame", minutes))
	}

	dialog.ShowForm(kindTitles[kind], "Submit", "Cancel", formItems, func(ok bool) {
		if !ok {
			return
		}
		req, err := jobForm{
			InputPath:    input.Text,
			OutputDir:    output.Text,
			PositionMin:  posMin.Text,
			PositionMax:  posMax.Text,
			FrameMin:     frameMin.Text,
			FrameMax:     frameMax.Text,
			ChannelRoles: roles.Text,
			ExpandLabels: expand.Checked,
			SquareSize:   square.Text,
			Minutes:      minutes.Text,
		}.request(kind)
		if err != nil {
			m.ShowError(string(kind), err)
			return
		}
		id, err := m.queue.Submit(req)
		if err != nil {
			m.ShowError(string(kind), err)
			return
		}
		m.statusBar.SetJobs(fmt.Sprintf("Submitted %s (%s)", id, kind))
	}, m.window)
}

func (m *Manager) showJobList() {
	if m.queue == nil {
		return
	}
	list := m.queue.List()

	lines := make([]string, 0, len(list))
	for _, st := range list {
		line := fmt.Sprintf("%s  %-12s %-9s", st.ID, st.Request.Kind, st.State)
		if st.Message != "" {
			line += "  " + st.Message
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, "No jobs submitted")
	}

	text := widget.NewLabel(strings.Join(lines, "\n"))
	text.TextStyle = fyne.TextStyle{Monospace: true}
	dialog.ShowCustom("Jobs", "Close", text, m.window)
}
