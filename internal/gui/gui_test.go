package gui

import (
	"testing"
	"time"

	"trackview/internal/jobs"
	"trackview/internal/models"
	"trackview/internal/viewer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewerKeyMapping(t *testing.T) {
	cases := map[fyne.KeyName]string{
		fyne.KeyLeft:   viewer.KeyArrowLeft,
		fyne.KeyRight:  viewer.KeyArrowRight,
		fyne.KeyUp:     viewer.KeyArrowUp,
		fyne.KeyDown:   viewer.KeyArrowDown,
		fyne.KeyC:      viewer.KeyChannel,
		fyne.KeyReturn: viewer.KeyEnter,
		fyne.KeyEnter:  viewer.KeyEnter,
	}
	for name, want := range cases {
		got, ok := viewerKey(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := viewerKey(fyne.KeyX)
	assert.False(t, ok)

	assert.True(t, isCtrl(desktop.KeyControlLeft))
	assert.True(t, isCtrl(desktop.KeyControlRight))
	assert.False(t, isCtrl(desktop.KeyShiftLeft))
}

func TestJobFormSegmentation(t *testing.T) {
	req, err := jobForm{
		InputPath:    "/data/movie.nd2",
		OutputDir:    " /data/out ",
		PositionMin:  "0",
		PositionMax:  "3",
		FrameMin:     "0",
		FrameMax:     "179",
		ChannelRoles: "b, f, ,Fluorescent",
	}.request(jobs.KindSegmentation)
	require.NoError(t, err)

	assert.Equal(t, "/data/out", req.OutputDir)
	assert.Equal(t, 179, req.FrameMax)
	assert.Equal(t, []string{jobs.RoleBrightfield, jobs.RoleFluorescent, "", jobs.RoleFluorescent}, req.ChannelRoles)
	assert.Equal(t, []int{1, 3}, req.FluorescenceChannels())
}

func TestJobFormRejectsBadNumbers(t *testing.T) {
	_, err := jobForm{OutputDir: "/out", PositionMin: "zero", PositionMax: "1"}.request(jobs.KindTracking)
	assert.ErrorIs(t, err, jobs.ErrInvalidRequest)

	_, err = jobForm{OutputDir: "/out", PositionMin: "0", PositionMax: "1", SquareSize: "big"}.request(jobs.KindSquareROI)
	assert.ErrorIs(t, err, jobs.ErrInvalidRequest)

	_, err = jobForm{OutputDir: "/out", PositionMin: "0", PositionMax: "1", Minutes: "0"}.request(jobs.KindExport)
	assert.ErrorIs(t, err, jobs.ErrInvalidRequest)
}

func TestJobFormTracking(t *testing.T) {
	req, err := jobForm{OutputDir: "/out", PositionMin: "2", PositionMax: "2", ExpandLabels: true}.request(jobs.KindTracking)
	require.NoError(t, err)
	assert.True(t, req.ExpandLabels)
	assert.Equal(t, []int{2}, req.Positions())
}

func TestParseRolesEmpty(t *testing.T) {
	assert.Nil(t, parseRoles("  "))
}

func TestControlsStateFromSnapshot(t *testing.T) {
	positions := []models.Position{{Index: 0, Folder: "pos0"}, {Index: 4, Folder: "pos4"}}
	snap := &viewer.Snapshot{
		Position:     positions[1],
		Frame:        models.NewIntControl(7, 0, 59),
		Channel:      models.NewIntControl(1, 0, 2),
		Contrast:     models.NewIntControl(1000, 0, 65535),
		Particle:     models.NewIntControl(1, 0, 1),
		ChannelNames: []string{"BF", ""},
		Particles:    []int64{10, 30},
		ParticleID:   30,
		HasParticle:  true,
		Enabled:      true,
	}

	state := controlsState(snap, positions)
	assert.Equal(t, []string{"0: pos0", "4: pos4"}, state.Positions)
	assert.Equal(t, 1, state.Position)
	assert.Equal(t, []string{"Particle 10", "Particle 30"}, state.Particles)
	assert.Equal(t, 1, state.Particle)
	assert.Equal(t, []string{"BF", "Channel 1", "Channel 2"}, state.Channels)
	assert.False(t, state.ContrastFixed)
	assert.Equal(t, 59, state.FrameMax)

	snap.HasParticle = false
	snap.Channel = models.NewIntControl(0, 0, 2)
	state = controlsState(snap, positions)
	assert.Equal(t, -1, state.Particle)
	assert.True(t, state.ContrastFixed)
}

func TestStatusText(t *testing.T) {
	snap := &viewer.Snapshot{
		Position:    models.Position{Index: 0, Folder: "pos0"},
		Frame:       models.NewIntControl(5, 0, 9),
		ParticleID:  12,
		HasParticle: true,
		Disabled:    []float64{1, 3},
	}
	assert.Equal(t, "pos0 | particle 12 (disabled) | frame 5 | 2 disabled", statusText(snap))

	snap.HasParticle = false
	assert.Equal(t, "pos0 | no particle | frame 5 | 2 disabled", statusText(snap))
}

func TestJobsSummary(t *testing.T) {
	assert.Equal(t, "No jobs", jobsSummary(nil))

	list := []jobs.Status{
		{ID: "job-1", State: jobs.StateFailed, Request: jobs.Request{Kind: jobs.KindSegmentation}, Submitted: time.Now()},
		{ID: "job-2", State: jobs.StateRunning, Request: jobs.Request{Kind: jobs.KindTracking}},
		{ID: "job-3", State: jobs.StateQueued, Request: jobs.Request{Kind: jobs.KindExport}},
	}
	assert.Equal(t, "Jobs: 1 running, 1 queued, 1 failed | job-3 export queued", jobsSummary(list))
}
