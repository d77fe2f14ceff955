package feedback

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/schedule"
)

// AnimState is the companion's lifecycle state as reported by the renderer.
type AnimState int

const (
	AnimUndefined AnimState = iota
	AnimSpawn
	AnimActive
	AnimInactive
)

var animStateNames = []string{"undefined", "spawn", "active", "inactive"}

func (s AnimState) String() string {
	if int(s) < len(animStateNames) {
		return animStateNames[s]
	}
	return fmt.Sprintf("anim(%d)", int(s))
}

// ParseAnimState parses a lifecycle state name.
func ParseAnimState(name string) (AnimState, error) {
	for i, n := range animStateNames {
		if n == name {
			return AnimState(i), nil
		}
	}
	return AnimUndefined, fmt.Errorf("unknown anim state %q", name)
}

// Options carries the choreographer's outputs. Nil outputs log instead.
type Options struct {
	Audio    Audio
	Animator Animator
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// Status reports the choreographer's channels.
type Status struct {
	AnimState string          `json:"anim_state"`
	Hand      bool            `json:"hand"`
	Raining   bool            `json:"raining"`
	Orbit     bool            `json:"orbit"`
	Accents   bool            `json:"accents"`
	Playing   map[string]bool `json:"playing"`
	Errors    uint64          `json:"errors"`
}

// Choreographer reacts to behaviour events with sound and animation. It runs
// on the scheduler's goroutine.
type Choreographer struct {
	cfg    Config
	sched  *schedule.Scheduler
	audio  Audio
	anim   Animator
	rng    *rand.Rand
	logger *slog.Logger

	animState  AnimState
	hand       *Channel
	rain       *Channel
	orbit      *Channel
	accents    schedule.Handle
	playing    map[string]bool
	paletteIdx int

	errors atomic.Uint64
}

// NewChoreographer creates a choreographer driving opts' outputs from sched.
func NewChoreographer(cfg Config, sched *schedule.Scheduler, opts Options) *Choreographer {
	logger := log.Or(opts.Logger).With("component", "feedback")
	if opts.Audio == nil || opts.Animator == nil {
		out := NewLogOutput(opts.Logger)
		if opts.Audio == nil {
			opts.Audio = out
		}
		if opts.Animator == nil {
			opts.Animator = out
		}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	c := &Choreographer{
		cfg:     cfg,
		sched:   sched,
		audio:   opts.Audio,
		anim:    opts.Animator,
		rng:     opts.Rand,
		logger:  logger,
		playing: make(map[string]bool),
	}
	c.hand = NewChannel(ChannelHand, sched, cfg.HandSoundDelay, cfg.HandSoundDelay, c.startHand, c.stopHand)
	c.rain = NewChannel("rain_visual", sched, cfg.RainDelay, cfg.RainDelay,
		func() { c.setBool(ParamActive, true) },
		func() { c.setBool(ParamActive, false) })
	c.orbit = NewChannel(ChannelOrbit, sched, cfg.OrbitDelay, 0, c.startOrbit, c.stopOrbit)
	return c
}

// Attach subscribes the choreographer to the kinds it reacts to.
func (c *Choreographer) Attach(bus *behavior.Bus) {
	bus.Subscribe(c.Handle,
		behavior.KindStateChanged,
		behavior.KindOrbitChanged,
		behavior.KindGazeEnter,
		behavior.KindGazeExit,
		behavior.KindBlink,
		behavior.KindHandAcquired,
		behavior.KindHandLost,
	)
}

// Handle reacts to one event.
func (c *Choreographer) Handle(ev behavior.Event) {
	switch ev.Kind {
	case behavior.KindStateChanged:
		// old state's effects are undone before the new state's apply
		if p := stateParam(ev.From); p != "" {
			c.setBool(p, false)
		}
		if p := stateParam(ev.To); p != "" {
			c.setBool(p, true)
		}
	case behavior.KindOrbitChanged:
		c.PlayOrbit(ev.Active)
	case behavior.KindGazeEnter:
		if ev.Entity == c.cfg.EntityID {
			c.SetRaining(true)
		}
	case behavior.KindGazeExit:
		if ev.Entity == c.cfg.EntityID {
			c.SetRaining(false)
		}
	case behavior.KindBlink:
		c.Thunder()
	case behavior.KindHandAcquired:
		c.PlayHand(true)
	case behavior.KindHandLost:
		c.PlayHand(false)
	}
}

func stateParam(s behavior.State) string {
	switch s {
	case behavior.FollowTarget:
		return ParamFollowing
	case behavior.OrbitAnchor:
		return ParamOrbiting
	}
	return ""
}

// OnAnimState records a lifecycle change reported by the renderer.
func (c *Choreographer) OnAnimState(s AnimState) {
	if s == c.animState {
		return
	}
	c.logger.Debug("anim state entered", "from", c.animState, "to", s)
	c.animState = s

	switch s {
	case AnimSpawn:
		c.playEvent(EventSpawn)
		c.fadeInOrStart(EventAmbient, ChannelAmbient, 0)
	case AnimActive:
		c.PlayRain(true)
	case AnimInactive:
		c.PlayRain(false)
	}
}

// AnimState returns the last reported lifecycle state.
func (c *Choreographer) AnimState() AnimState { return c.animState }

// SetRaining requests the rain visual. Start requests are rejected while the
// companion has not finished spawning; the return value reports acceptance.
func (c *Choreographer) SetRaining(on bool) bool {
	if on && (c.animState == AnimUndefined || c.animState == AnimSpawn) {
		c.logger.Debug("rain rejected before spawn finished", "anim_state", c.animState)
		return false
	}
	c.rain.Request(on)
	return true
}

// PlayRain fades the rain loop in or out.
func (c *Choreographer) PlayRain(on bool) {
	if on {
		c.fadeInOrStart(EventRain, ChannelRain, c.cfg.RainFadeIn)
		return
	}
	c.fadeOut(ChannelRain, c.cfg.RainFadeOut, false)
}

// PlayHand requests the hand pad.
func (c *Choreographer) PlayHand(on bool) { c.hand.Request(on) }

// PlayOrbit requests the orbit loops and accents.
func (c *Choreographer) PlayOrbit(on bool) { c.orbit.Request(on) }

// Thunder plays a thunder clap and moves to the next storm colour.
func (c *Choreographer) Thunder() {
	c.playEvent(EventThunder)
	c.applyPalette()
}

// Stop cancels every pending transition and the accent loop. Sounds already
// playing are left to the renderer.
func (c *Choreographer) Stop() {
	c.hand.Cancel()
	c.rain.Cancel()
	c.orbit.Cancel()
	c.sched.Cancel(c.accents)
	c.accents = schedule.Handle{}
}

// Status returns a snapshot of the channels.
func (c *Choreographer) Status() Status {
	playing := make(map[string]bool, len(c.playing))
	for k, v := range c.playing {
		playing[k] = v
	}
	return Status{
		AnimState: c.animState.String(),
		Hand:      c.hand.Active(),
		Raining:   c.rain.Active(),
		Orbit:     c.orbit.Active(),
		Accents:   c.sched.Pending(c.accents),
		Playing:   playing,
		Errors:    c.errors.Load(),
	}
}

func (c *Choreographer) startHand() {
	c.fadeInOrStart(EventHand, ChannelHand, c.cfg.PadFadeIn)
}

func (c *Choreographer) stopHand() {
	c.fadeOut(ChannelHand, c.cfg.PadFadeOut, true)
}

func (c *Choreographer) startOrbit() {
	c.playEvent(EventOrbitStart)
	c.fadeInOrStart(EventOrbit, ChannelOrbit, c.cfg.OrbitFadeIn)
	c.fadeInOrStart(EventOrbitAmbience, ChannelOrbitAmbience, c.cfg.OrbitFadeIn)
	c.accents = c.sched.Repeat(c.accentInterval, func() { c.playEvent(EventOrbitAccent) })
}

func (c *Choreographer) stopOrbit() {
	c.sched.Cancel(c.accents)
	c.accents = schedule.Handle{}
	c.fadeOut(ChannelOrbit, c.cfg.OrbitFadeOut, false)
	c.fadeOut(ChannelOrbitAmbience, c.cfg.OrbitFadeOut, false)
}

func (c *Choreographer) accentInterval() time.Duration {
	jitter := time.Duration((c.rng.Float64()*2 - 1) * float64(c.cfg.AccentVariance))
	d := c.cfg.AccentDelay + jitter
	if d < c.cfg.MinAccentInterval {
		return c.cfg.MinAccentInterval
	}
	return d
}

// fadeInOrStart fades a channel back in when its source is still playing
// (faded out without stopping) and starts it otherwise.
func (c *Choreographer) fadeInOrStart(event, channel string, d time.Duration) {
	if c.playing[channel] {
		c.check(c.audio.FadeIn(channel, d), "fade in", channel)
		return
	}
	if c.check(c.audio.PlayAndFadeIn(event, d, channel), "play and fade in", channel) {
		c.playing[channel] = true
	}
}

func (c *Choreographer) fadeOut(channel string, d time.Duration, stopAfter bool) {
	if !c.playing[channel] {
		return
	}
	if c.check(c.audio.FadeOut(channel, d, stopAfter), "fade out", channel) && stopAfter {
		c.playing[channel] = false
	}
}

func (c *Choreographer) playEvent(name string) {
	c.check(c.audio.PlayEvent(name), "play event", name)
}

func (c *Choreographer) setBool(name string, v bool) {
	c.check(c.anim.SetBool(name, v), "set bool", name)
}

func (c *Choreographer) setFloat(name string, v float64) {
	c.check(c.anim.SetFloat(name, v), "set float", name)
}

// check logs and drops an output error. It reports whether err was nil.
func (c *Choreographer) check(err error, op, target string) bool {
	if err == nil {
		return true
	}
	c.errors.Add(1)
	c.logger.Warn("feedback output failed", "op", op, "target", target, "error", err)
	return false
}
