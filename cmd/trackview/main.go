package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"trackview/internal/app"
	"trackview/internal/config"
	"trackview/internal/frames"
	"trackview/internal/logger"
	"trackview/internal/viewer"

	"github.com/rs/zerolog"
)

type options struct {
	input       string
	output      string
	configPath  string
	logLevel    string
	summary     bool
	snapshot    bool
	position    int
	writeConfig string
}

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	if err := run(*opts); err != nil {
		fmt.Fprintln(os.Stderr, "trackview:", err)
		os.Exit(1)
	}
}

// registerFlags binds the command line to fs. -position counts the position
// folders in discovery order, so it is not the XY number of the folder name.
func registerFlags(fs *flag.FlagSet) *options {
	opts := &options{}
	fs.StringVar(&opts.input, "input", "", "directory with metadata.yaml and the 16-bit TIFF planes")
	fs.StringVar(&opts.output, "output", "", "analysis output directory containing the position folders")
	fs.StringVar(&opts.configPath, "config", "trackview.yaml", "configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config and LOG_LEVEL)")
	fs.BoolVar(&opts.summary, "summary", false, "print the discovered positions and frame bounds as JSON and exit")
	fs.BoolVar(&opts.snapshot, "snapshot", false, "load one position headless, print its snapshot as JSON and exit")
	fs.IntVar(&opts.position, "position", 0, "ordinal of the discovered position (0 = first folder found, not the XY number) used with -snapshot")
	fs.StringVar(&opts.writeConfig, "write-config", "", "write the effective configuration to this file and exit")
	return opts
}

func run(opts options) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.writeConfig != "" {
		return config.SaveConfig(cfg, opts.writeConfig)
	}

	if opts.input == "" || opts.output == "" {
		flag.Usage()
		return fmt.Errorf("-input and -output are required")
	}

	level := logger.FromEnvironment(cfg.Log.Level)
	if opts.logLevel != "" {
		level = logger.ParseLevel(opts.logLevel)
	}

	source, err := frames.OpenTIFFDir(opts.input)
	if err != nil {
		return err
	}

	if opts.summary || opts.snapshot {
		// stdout carries the JSON document
		log := logger.NewZerolog(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}, level)
		defer source.Close()
		return headless(os.Stdout, opts, cfg, source, log)
	}

	log := logger.NewConsoleLogger(level)
	application, err := app.NewApplication(app.Options{
		Config:    cfg,
		Logger:    log,
		Frames:    source,
		OutputDir: opts.output,
	})
	if err != nil {
		source.Close()
		return err
	}
	return application.Run()
}

func headless(w io.Writer, opts options, cfg *config.Config, source frames.Source, log logger.Logger) error {
	session, err := viewer.New(viewer.Deps{Frames: source, Logger: log}, cfg, opts.output)
	if err != nil {
		return err
	}
	defer session.Close()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if opts.summary {
		return enc.Encode(session.Summary())
	}

	snap, err := session.SelectPosition(context.Background(), opts.position)
	if err != nil {
		return err
	}
	return enc.Encode(snap)
}
