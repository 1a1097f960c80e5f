package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/entrhq/sitegen/pkg/artifact"
	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/config"
	"github.com/entrhq/sitegen/pkg/generation"
	"github.com/entrhq/sitegen/pkg/logging"
	"github.com/entrhq/sitegen/pkg/metrics"
)

// app bundles everything a command needs to run requests.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	launcher *browser.Launcher
	service  *generation.Service
	recorder *metrics.Recorder
	writer   *artifact.Writer
}

// newApp loads configuration and environment and wires the pipeline.
func newApp() (*app, error) {
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if outputDir != "" {
		cfg.Artifacts.Enabled = true
		cfg.Artifacts.OutputDir = outputDir
	}
	if metricsFile != "" {
		cfg.Metrics.TextfilePath = metricsFile
	}

	// --verbose beats SITEGEN_LOG_LEVEL, which beats the config file
	log := logging.ComponentLogger("sitegen")
	level := cfg.Logging.Level
	if os.Getenv("SITEGEN_LOG_LEVEL") != "" {
		level = ""
	}
	if verbose {
		level = "debug"
	}
	if level != "" {
		if err := logging.SetLevel(level); err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		recorder: metrics.NewRecorder(),
		launcher: browser.NewLauncher(
			browser.WithMaxSessions(cfg.Browser.MaxSessions),
			browser.WithLogger(logging.ComponentLogger("browser")),
		),
	}

	genCfg := cfg.Generation
	if cfg.Artifacts.Enabled {
		a.writer = artifact.NewWriter(cfg.Artifacts.OutputDir)
		if cfg.Artifacts.Screenshots && genCfg.ScreenshotDir == "" {
			genCfg.ScreenshotDir = a.writer.ScreenshotDir()
		}
	}

	a.service, err = generation.NewService(genCfg, config.Credentials(), &lazyOpener{launcher: a.launcher},
		generation.WithLogger(logging.ComponentLogger("generation")),
		generation.WithRecorder(a.recorder),
		generation.WithSessionOptions(cfg.SessionOptions()),
	)
	if err != nil {
		return nil, err
	}

	if cfg.ConfigFilePath != "" {
		log.Infof("loaded configuration from %s", cfg.ConfigFilePath)
	}
	return a, nil
}

// record writes artifacts for results. Failures are logged, not returned:
// the results themselves are already on screen.
func (a *app) record(results ...*generation.Result) {
	if a.writer == nil {
		return
	}
	for _, r := range results {
		if _, err := a.writer.WriteResult(r); err != nil {
			a.log.Warnf("failed to write artifacts for %s: %v", r.CorrelationID, err)
		}
	}
}

// close shuts the browser driver down and exports metrics.
func (a *app) close() {
	if err := a.launcher.Shutdown(); err != nil {
		a.log.Warnf("browser shutdown: %v", err)
	}
	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := a.recorder.WriteTextfile(path); err != nil {
			a.log.Warnf("%v", err)
		} else {
			a.log.Infof("metrics written to %s", path)
		}
	}
	_ = a.log.Sync()
}

// lazyOpener starts the Playwright driver on the first Open, so requests that
// fail before needing a browser never install or launch one.
type lazyOpener struct {
	launcher *browser.Launcher
	once     sync.Once
	err      error
}

func (o *lazyOpener) Open(ctx context.Context, opts browser.SessionOptions) (*browser.Session, error) {
	o.once.Do(func() {
		o.err = o.launcher.Initialize()
	})
	if o.err != nil {
		return nil, o.err
	}
	return o.launcher.Open(ctx, opts)
}
