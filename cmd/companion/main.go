// companion: reactive behaviour daemon for a virtual companion.
// Takes sensor samples over WebSocket, runs the movement state machine and
// streams feedback commands to a renderer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/companion"
	"github.com/teslashibe/go-companion/pkg/debug"
	"github.com/teslashibe/go-companion/pkg/feedback"
	"github.com/teslashibe/go-companion/pkg/ingest"
	"github.com/teslashibe/go-companion/pkg/movement"
	"github.com/teslashibe/go-companion/pkg/scene"
	"github.com/teslashibe/go-companion/pkg/sensor"
	"github.com/teslashibe/go-companion/pkg/sensorfeed"
	"github.com/teslashibe/go-companion/pkg/store"
	"github.com/teslashibe/go-companion/pkg/web"
)

var version = "0.1.0"

func main() {
	d := parseFlags()
	log.Init(d.LogLevel)

	if err := d.Validate(); err != nil {
		fatal("configuration error", err)
	}

	cfg, err := buildConfig(d)
	if err != nil {
		fatal("configuration error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, d, cfg); err != nil && !errors.Is(err, context.Canceled) {
		fatal("runtime error", err)
	}
	log.Info("goodbye")
}

// parseFlags loads the environment settings and applies explicitly set flags
// on top.
func parseFlags() config.Daemon {
	d, err := config.LoadDaemon()
	if err != nil {
		fmt.Fprintf(os.Stderr, "environment: %v\n", err)
		os.Exit(2)
	}

	addr := flag.String("addr", d.Addr, "HTTP listen address")
	sensorURL := flag.String("sensor-url", d.SensorURL, "Upstream sensor WebSocket to dial (optional)")
	preset := flag.String("preset", d.Preset, "Movement preset: default, calm, playful")
	tuningFile := flag.String("tuning-file", d.TuningFile, "Persist dashboard tuning to this JSON file (optional)")
	seed := flag.Uint64("seed", d.Seed, "Random seed (0 = random)")
	logLevel := flag.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	noDashboard := flag.Bool("no-dashboard", !d.Dashboard, "Do not serve HTTP (requires -sensor-url)")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugSensors := flag.Bool("debug-sensors", false, "Log every sensor tick")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("companion", version)
		os.Exit(0)
	}

	d.Addr, d.SensorURL, d.Preset, d.Seed = *addr, *sensorURL, *preset, *seed
	d.LogLevel, d.Dashboard, d.TuningFile = *logLevel, !*noDashboard, *tuningFile
	debug.Enabled, debug.Sensors = *debugFlag, *debugSensors
	if debug.Enabled {
		d.LogLevel = "debug"
	}
	return d
}

// buildConfig assembles the App config from the preset and the
// COMPANION_* environment overrides.
func buildConfig(d config.Daemon) (companion.Config, error) {
	cfg := companion.DefaultConfig()
	cfg.FrameInterval = d.FrameInterval
	cfg.PhysicsStep = d.PhysicsStep
	if cfg.MaxFrameDelta < cfg.FrameInterval {
		cfg.MaxFrameDelta = 4 * cfg.FrameInterval
	}
	cfg.Seed = d.Seed

	base, ok := movement.PresetTuning(d.Preset)
	if !ok {
		return cfg, &config.ConfigError{Field: "Preset", Message: "unknown preset " + d.Preset}
	}
	tuning, err := movement.LoadTuning(base)
	if err != nil {
		return cfg, fmt.Errorf("tuning: %w", err)
	}
	if d.TuningFile != "" {
		if tuning, err = tuningStore(d).Apply(tuning); err != nil {
			return cfg, fmt.Errorf("tuning file: %w", err)
		}
	}
	cfg.Tuning = tuning

	if cfg.Sensor, err = sensor.LoadConfig(); err != nil {
		return cfg, fmt.Errorf("sensor: %w", err)
	}
	if cfg.Feedback, err = feedback.LoadConfig(); err != nil {
		return cfg, fmt.Errorf("feedback: %w", err)
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, d config.Daemon, cfg companion.Config) error {
	logger := log.L()

	room := scene.DefaultRoom()
	if err := room.Validate(); err != nil {
		return err
	}

	latest := sensor.NewLatest(d.SampleTTL)
	deps := companion.Deps{
		Source:      latest,
		Obstruction: room,
		Logger:      logger,
	}

	var server *web.Server
	if d.Dashboard {
		producers := ingest.NewHub(latest, logger)
		producers.OnDisconnect(func(id string) {
			if producers.ProducerCount() == 0 {
				latest.Clear()
			}
		})
		opts := web.Options{
			Logger: logger,
			Mounts: []web.Routes{producers},
		}
		if d.TuningFile != "" {
			opts.Tuning = tuningStore(d)
		}
		server = web.NewServer(d.Addr, opts)
		deps.Audio = server.Feedback()
		deps.Animator = server.Feedback()
	} else if d.SensorURL == "" {
		return errors.New("no input: -no-dashboard needs -sensor-url")
	}

	app, err := companion.New(cfg, deps)
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	errCh := make(chan error, 2)

	if server != nil {
		server.SetBackend(app)
		app.Subscribe(server.OnEvent)
		go func() {
			if err := server.Start(runCtx); err != nil {
				errCh <- fmt.Errorf("web: %w", err)
			}
		}()
		log.Info("dashboard",
			"status", "http://localhost"+d.Addr+"/api/status",
			"sensors", "ws://localhost"+d.Addr+"/ws/sensors",
			"feedback", "ws://localhost"+d.Addr+"/ws/feedback")
	}

	if d.SensorURL != "" {
		feed := sensorfeed.New(sensorfeed.Config{
			URL:          d.SensorURL,
			OnDisconnect: latest.Clear,
		}, latest, logger)
		go func() {
			if err := feed.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("sensorfeed: %w", err)
			}
		}()
	}

	debug.Log("companion %s preset=%s seed=%d\n", version, d.Preset, d.Seed)
	log.Info("companion starting", "version", version, "preset", d.Preset)

	failed := make(chan error, 1)
	go func() {
		select {
		case err := <-errCh:
			failed <- err
			stop()
		case <-runCtx.Done():
		}
	}()

	err = app.Run(runCtx)
	select {
	case ferr := <-failed:
		return ferr
	default:
		return err
	}
}

func tuningStore(d config.Daemon) *store.Tuning {
	return store.NewTuning(store.NewJSONStore(d.TuningFile))
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
