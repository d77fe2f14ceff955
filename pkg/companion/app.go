// Package companion owns the frame loop: it polls the sensor source, runs the
// debouncer and the movement logic tick, advances the choreography timers and
// steps physics at a fixed rate.
package companion

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/feedback"
	"github.com/teslashibe/go-companion/pkg/movement"
	"github.com/teslashibe/go-companion/pkg/schedule"
	"github.com/teslashibe/go-companion/pkg/sensor"
)

// Deps are the App's collaborators. Every field is optional: a nil Source
// never delivers, a nil Obstruction never blocks and nil outputs log.
type Deps struct {
	Source      sensor.Source
	Obstruction movement.Obstruction
	Audio       feedback.Audio
	Animator    feedback.Animator
	Logger      *slog.Logger
}

// Status is a snapshot of the whole companion, safe to read from any
// goroutine.
type Status struct {
	Running   bool              `json:"running"`
	Frames    uint64            `json:"frames"`
	SimTimeMs int64             `json:"sim_time_ms"`
	SourceOK  bool              `json:"source_ok"`
	Signals   sensor.Signals    `json:"signals"`
	Movement  movement.Snapshot `json:"movement"`
	Feedback  feedback.Status   `json:"feedback"`
	Events    uint64            `json:"events"`
	Timers    int               `json:"timers"`
	Dropped   uint64            `json:"dropped_physics_steps"`
}

// App wires the debouncer, the movement controller and the choreographer to
// one event bus and one scheduler. Start, Stop, Step, Run and Running must be
// called from a single goroutine; the remaining methods are safe for
// concurrent use.
type App struct {
	cfg    Config
	source sensor.Source
	logger *slog.Logger

	bus        *behavior.Bus
	sched      *schedule.Scheduler
	debouncer  *sensor.Debouncer
	controller *movement.Controller
	choreo     *feedback.Choreographer

	running     bool
	accumulator time.Duration
	frames      uint64
	dropped     uint64
	sourceOK    bool

	// Cross-goroutine state
	mu           sync.Mutex
	status       Status
	tuning       movement.Tuning
	tuningDirty  bool
	animStates   []feedback.AnimState
	inputEnabled *bool
}

// New validates cfg and wires the components. Event handlers run in
// registration order: the choreographer first, then anything added with
// Subscribe.
func New(cfg Config, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.Or(deps.Logger)

	ctrlRand, choreoRand := seeded(cfg.Seed)

	a := &App{
		cfg:    cfg,
		source: deps.Source,
		logger: logger.With("component", "companion"),
		bus:    behavior.NewBus(),
		sched:  schedule.New(),
		tuning: cfg.Tuning,
	}
	a.choreo = feedback.NewChoreographer(cfg.Feedback, a.sched, feedback.Options{
		Audio:    deps.Audio,
		Animator: deps.Animator,
		Rand:     choreoRand,
		Logger:   logger,
	})
	a.choreo.Attach(a.bus)
	a.debouncer = sensor.NewDebouncer(cfg.Sensor, a.bus, logger)
	a.controller = movement.NewController(cfg.Tuning, movement.Options{
		Obstruction: deps.Obstruction,
		Emitter:     a.bus,
		Rand:        ctrlRand,
		Logger:      logger,
	})
	a.publish()
	return a, nil
}

func seeded(seed uint64) (*rand.Rand, *rand.Rand) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, 1)), rand.New(rand.NewPCG(seed, 2))
}

// Subscribe registers an observer on the event bus. Observers run on the
// frame goroutine and must not block. Register them before Start.
func (a *App) Subscribe(h behavior.Handler, kinds ...behavior.Kind) {
	if len(kinds) == 0 {
		a.bus.SubscribeAll(h)
		return
	}
	a.bus.Subscribe(h, kinds...)
}

// Start polls the source once, places the body (at the hand when one is
// present) and enters Wander.
func (a *App) Start() {
	if a.running {
		return
	}
	a.running = true
	a.accumulator = 0

	sample, ok := a.poll()
	signals := a.debouncer.Update(sample, ok, 0)
	a.controller.Start(signals, a.cfg.Spawn)

	a.logger.Info("companion started",
		"frame_interval", a.cfg.FrameInterval,
		"physics_step", a.cfg.PhysicsStep,
		"spawn", a.cfg.Spawn)
	a.publish()
}

// Stop exits the current state, cancels every pending feedback transition
// and halts the loop. Stop after Stop is a no-op.
func (a *App) Stop() {
	if !a.running {
		return
	}
	a.controller.Stop()
	a.choreo.Stop()
	a.running = false
	a.logger.Info("companion stopped", "frames", a.frames)
	a.publish()
}

// Running reports whether Start has been called without a matching Stop.
func (a *App) Running() bool { return a.running }

// Step runs one frame of dt: queued external requests, sensor poll,
// debouncer, movement logic, choreography timers, then as many fixed physics
// steps as the accumulated time allows.
func (a *App) Step(dt time.Duration) {
	if !a.running || dt < 0 {
		return
	}
	a.frames++
	a.applyRequests()

	sample, ok := a.poll()
	signals := a.debouncer.Update(sample, ok, dt)
	a.controller.Update(signals, dt)
	a.sched.Advance(dt)

	a.accumulator += dt
	steps := 0
	for a.accumulator >= a.cfg.PhysicsStep {
		if steps == a.cfg.MaxPhysicsSteps {
			skipped := uint64(a.accumulator / a.cfg.PhysicsStep)
			a.dropped += skipped
			a.accumulator -= time.Duration(skipped) * a.cfg.PhysicsStep
			a.logger.Warn("physics falling behind", "skipped_steps", skipped)
			break
		}
		a.controller.FixedUpdate(a.cfg.PhysicsStep)
		a.accumulator -= a.cfg.PhysicsStep
		steps++
	}

	a.publish()
}

// Run starts the App and steps it every FrameInterval of wall-clock time
// until ctx is done, then stops it. Long gaps between frames are clamped to
// MaxFrameDelta.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.FrameInterval)
	defer ticker.Stop()

	a.Start()
	defer a.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt > a.cfg.MaxFrameDelta {
				dt = a.cfg.MaxFrameDelta
			}
			a.Step(dt)
		}
	}
}

func (a *App) poll() (sensor.Sample, bool) {
	if a.source == nil {
		a.sourceOK = false
		return sensor.Sample{}, false
	}
	s, ok := a.source.Poll()
	if ok != a.sourceOK {
		a.logger.Info("sensor source changed", "available", ok)
	}
	a.sourceOK = ok
	return s, ok
}

// applyRequests hands queued external requests to the components on the
// frame goroutine.
func (a *App) applyRequests() {
	a.mu.Lock()
	var tuning *movement.Tuning
	if a.tuningDirty {
		t := a.tuning
		tuning = &t
		a.tuningDirty = false
	}
	states := a.animStates
	a.animStates = nil
	enabled := a.inputEnabled
	a.inputEnabled = nil
	a.mu.Unlock()

	if tuning != nil {
		a.controller.SetTuning(*tuning)
	}
	for _, s := range states {
		a.choreo.OnAnimState(s)
	}
	if enabled != nil {
		a.debouncer.SetEnabled(*enabled)
	}
}

// publish copies the component state into the shared status.
func (a *App) publish() {
	st := Status{
		Running:   a.running,
		Frames:    a.frames,
		SimTimeMs: a.sched.Now().Milliseconds(),
		SourceOK:  a.sourceOK,
		Signals:   a.debouncer.Signals(),
		Movement:  a.controller.Snapshot(),
		Feedback:  a.choreo.Status(),
		Events:    a.bus.Emitted(),
		Timers:    a.sched.Len(),
		Dropped:   a.dropped,
	}
	a.mu.Lock()
	a.status = st
	a.mu.Unlock()
}

// Status returns the snapshot taken at the end of the last frame.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Tuning returns the most recently accepted movement tuning.
func (a *App) Tuning() movement.Tuning {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tuning
}

// SetTuning validates t and queues it for the next frame.
func (a *App) SetTuning(t movement.Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.tuning = t
	a.tuningDirty = true
	a.mu.Unlock()
	return nil
}

// ReportAnimState queues a lifecycle report from the renderer.
func (a *App) ReportAnimState(s feedback.AnimState) {
	a.mu.Lock()
	a.animStates = append(a.animStates, s)
	a.mu.Unlock()
}

// SetInputEnabled queues turning sensor processing on or off.
func (a *App) SetInputEnabled(enabled bool) {
	a.mu.Lock()
	a.inputEnabled = &enabled
	a.mu.Unlock()
}
