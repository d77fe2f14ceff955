package feedback

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/behavior"
	"github.com/teslashibe/go-companion/pkg/schedule"
)

type call struct {
	op        string
	name      string
	channel   string
	d         time.Duration
	stopAfter bool
	b         bool
	f         float64
}

// mockOutput records every audio and animation command.
type mockOutput struct {
	mu    sync.Mutex
	calls []call
	fail  error
}

func (m *mockOutput) record(c call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return m.fail
}

func (m *mockOutput) PlayEvent(name string) error {
	return m.record(call{op: "play", name: name})
}

func (m *mockOutput) PlayAndFadeIn(name string, d time.Duration, channel string) error {
	return m.record(call{op: "play_fade_in", name: name, channel: channel, d: d})
}

func (m *mockOutput) FadeOut(channel string, d time.Duration, stopAfter bool) error {
	return m.record(call{op: "fade_out", channel: channel, d: d, stopAfter: stopAfter})
}

func (m *mockOutput) FadeIn(channel string, d time.Duration) error {
	return m.record(call{op: "fade_in", channel: channel, d: d})
}

func (m *mockOutput) SetBool(name string, v bool) error {
	return m.record(call{op: "set_bool", name: name, b: v})
}

func (m *mockOutput) SetFloat(name string, v float64) error {
	return m.record(call{op: "set_float", name: name, f: v})
}

func (m *mockOutput) take() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.calls
	m.calls = nil
	return out
}

func (m *mockOutput) count(op, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.op == op && (c.name == key || c.channel == key) {
			n++
		}
	}
	return n
}

func newTestChoreographer(cfg Config) (*Choreographer, *schedule.Scheduler, *mockOutput) {
	sched := schedule.New()
	out := &mockOutput{}
	c := NewChoreographer(cfg, sched, Options{
		Audio:    out,
		Animator: out,
		Rand:     rand.New(rand.NewPCG(4, 2)),
	})
	return c, sched, out
}

func TestHandPadDelayedStartAndStop(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())

	c.Handle(behavior.Event{Kind: behavior.KindHandAcquired})
	sched.Advance(999 * time.Millisecond)
	assert.Empty(t, out.take())

	sched.Advance(time.Millisecond)
	assert.Equal(t, []call{{op: "play_fade_in", name: EventHand, channel: ChannelHand, d: 500 * time.Millisecond}}, out.take())

	c.Handle(behavior.Event{Kind: behavior.KindHandLost})
	sched.Advance(time.Second)
	assert.Equal(t, []call{{op: "fade_out", channel: ChannelHand, d: 1500 * time.Millisecond, stopAfter: true}}, out.take())

	// stopped after the fade, so the next start plays from scratch
	c.Handle(behavior.Event{Kind: behavior.KindHandAcquired})
	sched.Advance(time.Second)
	calls := out.take()
	require.Len(t, calls, 1)
	assert.Equal(t, "play_fade_in", calls[0].op)
}

func TestChannelSingleFlight(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())

	c.PlayHand(true)
	sched.Advance(500 * time.Millisecond)
	c.PlayHand(false)
	sched.Advance(200 * time.Millisecond)
	c.PlayHand(true)
	assert.False(t, c.hand.Request(true), "same target is a no-op")

	sched.Advance(5 * time.Second)
	assert.Equal(t, 1, out.count("play_fade_in", ChannelHand))
	assert.Equal(t, 0, out.count("fade_out", ChannelHand))
	assert.Equal(t, 0, sched.Len())
}

func TestChannelRequest(t *testing.T) {
	sched := schedule.New()
	var log []string
	ch := NewChannel("test", sched, time.Second, 0,
		func() { log = append(log, "start") },
		func() { log = append(log, "stop") })

	assert.False(t, ch.Request(false))
	assert.True(t, ch.Request(true))
	assert.True(t, ch.Pending())
	assert.True(t, ch.Active())

	// zero stop delay runs at once and drops the pending start
	assert.True(t, ch.Request(false))
	assert.False(t, ch.Pending())
	sched.Advance(2 * time.Second)
	assert.Equal(t, []string{"stop"}, log)
	assert.Equal(t, "test", ch.Name())
}

func TestRainGatedOnAnimState(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())

	c.Handle(behavior.Event{Kind: behavior.KindGazeEnter, Entity: "companion"})
	assert.False(t, c.SetRaining(true))
	sched.Advance(time.Second)
	assert.Empty(t, out.take())
	assert.False(t, c.Status().Raining, "rejected requests are not queued")

	c.OnAnimState(AnimSpawn)
	assert.False(t, c.SetRaining(true))
	assert.Equal(t, []call{
		{op: "play", name: EventSpawn},
		{op: "play_fade_in", name: EventAmbient, channel: ChannelAmbient},
	}, out.take())

	c.OnAnimState(AnimActive)
	assert.Equal(t, []call{{op: "play_fade_in", name: EventRain, channel: ChannelRain, d: 2 * time.Second}}, out.take())

	c.Handle(behavior.Event{Kind: behavior.KindGazeEnter, Entity: "lamp"})
	c.Handle(behavior.Event{Kind: behavior.KindGazeEnter, Entity: "companion"})
	sched.Advance(499 * time.Millisecond)
	assert.Empty(t, out.take())
	sched.Advance(time.Millisecond)
	assert.Equal(t, []call{{op: "set_bool", name: ParamActive, b: true}}, out.take())

	c.Handle(behavior.Event{Kind: behavior.KindGazeExit, Entity: "companion"})
	sched.Advance(500 * time.Millisecond)
	assert.Equal(t, []call{{op: "set_bool", name: ParamActive, b: false}}, out.take())

	// stop requests are never gated
	c.OnAnimState(AnimInactive)
	assert.True(t, c.SetRaining(false))
	assert.Equal(t, []call{{op: "fade_out", channel: ChannelRain, d: 2 * time.Second}}, out.take())

	// the rain source was only faded, so reactivating fades it back in
	c.OnAnimState(AnimActive)
	assert.Equal(t, []call{{op: "fade_in", channel: ChannelRain, d: 2 * time.Second}}, out.take())
}

func TestThunderCyclesPalette(t *testing.T) {
	c, _, out := newTestChoreographer(DefaultConfig())
	palette := DefaultPalette()

	var tints []float64
	for i := 0; i < 4; i++ {
		c.Handle(behavior.Event{Kind: behavior.KindBlink})
		calls := out.take()
		require.Len(t, calls, 1+len(palette[0].Properties)*4)
		assert.Equal(t, call{op: "play", name: EventThunder}, calls[0])
		assert.Equal(t, "storm_tint.r", calls[1].name)
		assert.Equal(t, "storm_tint.a", calls[4].name)
		tints = append(tints, calls[1].f)
	}
	assert.Equal(t, []float64{
		palette[0].Properties[0].Color.R,
		palette[1].Properties[0].Color.R,
		palette[2].Properties[0].Color.R,
		palette[0].Properties[0].Color.R,
	}, tints)
}

func TestThunderWithoutPalette(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Palette = nil
	c, _, out := newTestChoreographer(cfg)
	c.Thunder()
	assert.Equal(t, []call{{op: "play", name: EventThunder}}, out.take())
}

func TestOrbitLoopAndAccents(t *testing.T) {
	cfg := DefaultConfig()
	c, sched, out := newTestChoreographer(cfg)

	c.Handle(behavior.Event{Kind: behavior.KindOrbitChanged, Active: true})
	sched.Advance(2999 * time.Millisecond)
	assert.Empty(t, out.take())

	sched.Advance(time.Millisecond)
	assert.Equal(t, []call{
		{op: "play", name: EventOrbitStart},
		{op: "play_fade_in", name: EventOrbit, channel: ChannelOrbit, d: 2 * time.Second},
		{op: "play_fade_in", name: EventOrbitAmbience, channel: ChannelOrbitAmbience, d: 2 * time.Second},
	}, out.take())
	assert.True(t, c.Status().Accents)

	// accents land every 0..4s
	var last time.Duration
	for i := 0; i < 400; i++ {
		sched.Advance(100 * time.Millisecond)
		if n := len(out.take()); n > 0 {
			gap := sched.Now() - last
			if last > 0 {
				assert.LessOrEqual(t, gap, cfg.AccentDelay+cfg.AccentVariance+100*time.Millisecond)
			}
			last = sched.Now()
		}
	}
	assert.Greater(t, last, time.Duration(0))

	c.Handle(behavior.Event{Kind: behavior.KindOrbitChanged, Active: false})
	assert.Equal(t, []call{
		{op: "fade_out", channel: ChannelOrbit, d: 2 * time.Second},
		{op: "fade_out", channel: ChannelOrbitAmbience, d: 2 * time.Second},
	}, out.take())
	assert.False(t, c.Status().Accents)

	sched.Advance(20 * time.Second)
	assert.Empty(t, out.take(), "no accents after orbit ends")

	c.PlayOrbit(true)
	sched.Advance(3 * time.Second)
	calls := out.take()
	require.Len(t, calls, 3)
	assert.Equal(t, "fade_in", calls[1].op)
	assert.Equal(t, "fade_in", calls[2].op)
}

func TestOrbitCanceledBeforeStart(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())
	c.PlayOrbit(true)
	sched.Advance(time.Second)
	c.PlayOrbit(false)
	sched.Advance(10 * time.Second)
	assert.Empty(t, out.take())
	assert.Equal(t, 0, sched.Len())
}

func TestAccentIntervalFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OrbitDelay = 0
	cfg.AccentDelay = 0
	cfg.AccentVariance = 0
	c, sched, out := newTestChoreographer(cfg)

	c.PlayOrbit(true)
	out.take()
	sched.Advance(time.Second)
	assert.Equal(t, 20, out.count("play", EventOrbitAccent))
}

func TestStateChangeDrivesParamsExitFirst(t *testing.T) {
	c, _, out := newTestChoreographer(DefaultConfig())

	c.Handle(behavior.Event{Kind: behavior.KindStateChanged, From: behavior.None, To: behavior.Wander})
	assert.Empty(t, out.take())

	c.Handle(behavior.Event{Kind: behavior.KindStateChanged, From: behavior.Wander, To: behavior.FollowTarget})
	assert.Equal(t, []call{{op: "set_bool", name: ParamFollowing, b: true}}, out.take())

	c.Handle(behavior.Event{Kind: behavior.KindStateChanged, From: behavior.FollowTarget, To: behavior.OrbitAnchor})
	assert.Equal(t, []call{
		{op: "set_bool", name: ParamFollowing, b: false},
		{op: "set_bool", name: ParamOrbiting, b: true},
	}, out.take())
}

func TestOutputErrorsAreDropped(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())
	out.fail = ErrOutputUnavailable

	c.PlayHand(true)
	sched.Advance(time.Second)
	c.Thunder()
	assert.Greater(t, c.Status().Errors, uint64(0))
	assert.False(t, c.Status().Playing[ChannelHand])

	// a failed start leaves the source stopped; once the renderer is back
	// the next start plays again
	out.fail = nil
	out.take()
	c.PlayHand(false)
	sched.Advance(time.Second)
	c.PlayHand(true)
	sched.Advance(time.Second)
	assert.Equal(t, []call{{op: "play_fade_in", name: EventHand, channel: ChannelHand, d: 500 * time.Millisecond}}, out.take())
}

func TestAttachAndStop(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())
	bus := behavior.NewBus()
	c.Attach(bus)

	bus.Emit(behavior.Event{Kind: behavior.KindHandAcquired})
	bus.Emit(behavior.Event{Kind: behavior.KindOrbitChanged, Active: true})
	require.Equal(t, 2, sched.Len())

	c.Stop()
	assert.Equal(t, 0, sched.Len())
	sched.Advance(time.Minute)
	assert.Empty(t, out.take())
}

func TestStopIssuesNoFades(t *testing.T) {
	c, sched, out := newTestChoreographer(DefaultConfig())
	c.PlayHand(true)
	sched.Advance(time.Second)
	require.NotEmpty(t, out.take(), "hand pad started")

	c.PlayHand(false)
	c.Stop()
	assert.Empty(t, out.take(), "playing sounds are left to the renderer")
	sched.Advance(time.Minute)
	assert.Empty(t, out.take())
}

func TestParseAnimState(t *testing.T) {
	s, err := ParseAnimState("active")
	require.NoError(t, err)
	assert.Equal(t, AnimActive, s)
	_, err = ParseAnimState("asleep")
	assert.Error(t, err)
	assert.Equal(t, "inactive", AnimInactive.String())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.MinAccentInterval = 0
	assert.Error(t, cfg.Validate())
}
