package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"path/filepath"
	"testing"

	"trackview/internal/config"
	"trackview/internal/frames"
	"trackview/internal/logger"
	"trackview/internal/viewer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memorySource() *frames.Memory {
	return &frames.Memory{Meta: frames.Metadata{
		Positions:    1,
		Frames:       12,
		Channels:     2,
		Height:       32,
		Width:        32,
		ChannelNames: []string{"BF", "GFP"},
	}}
}

func TestHeadlessSummary(t *testing.T) {
	var out bytes.Buffer
	opts := options{output: t.TempDir(), summary: true}

	require.NoError(t, headless(&out, opts, config.DefaultConfig(), memorySource(), logger.Nop()))

	var summary viewer.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 12, summary.Frames)
	assert.Equal(t, []string{"BF", "GFP"}, summary.ChannelNames)
	assert.Empty(t, summary.Positions)
}

func TestHeadlessSnapshotWithoutPositions(t *testing.T) {
	var out bytes.Buffer
	opts := options{output: t.TempDir(), snapshot: true}

	err := headless(&out, opts, config.DefaultConfig(), memorySource(), logger.Nop())
	assert.Error(t, err)
	assert.Zero(t, out.Len())
}

func TestRunWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	opts := options{configPath: filepath.Join(t.TempDir(), "absent.yaml"), logLevel: "debug", writeConfig: path}

	require.NoError(t, run(opts))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRunRequiresInputAndOutput(t *testing.T) {
	err := run(options{configPath: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestPositionFlagIsDiscoveryOrdinal(t *testing.T) {
	fs := flag.NewFlagSet("trackview", flag.ContinueOnError)
	opts := registerFlags(fs)

	require.NoError(t, fs.Parse([]string{"-snapshot", "-position", "2"}))
	assert.True(t, opts.snapshot)
	assert.Equal(t, 2, opts.position)
	assert.Equal(t, "trackview.yaml", opts.configPath)

	usage := fs.Lookup("position").Usage
	assert.Contains(t, usage, "ordinal of the discovered position")
	assert.Contains(t, usage, "not the XY number")
}
