package binding

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/PizzaHomicide/reel/internal/config"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/looper"
	"github.com/PizzaHomicide/reel/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUp_SameTagReturnsIdenticalPlayable(t *testing.T) {
	h := newHarness(t)

	first := h.master.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig().WithTag("p1"))
	second := h.master.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig().WithTag("p1"))
	require.Same(t, first.Playable(), second.Playable())
	require.Same(t, first.Playable().Bridge(), second.Playable().Bridge())

	s1 := newSurface("s1")
	_, err := first.Bind(s1, StartEligible())
	require.NoError(t, err)
	second.Discard()

	third := h.master.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig().WithTag("p1"))
	assert.Same(t, first.Playable(), third.Playable())
	third.Discard()

	assert.Len(t, h.engines.Engines(), 1, "engine must not be recreated")
	h.drainUntil(first.Playable().Bridge().Ready)
	assert.Equal(t, []string{"file:///a.mkv"}, h.engine(0).Loaded())
}

func TestSetUp_TagDefaultsToMediaIdentity(t *testing.T) {
	h := newHarness(t)
	handle := h.master.SetUp(domain.NewMedia("file:///b.mkv"), domain.DefaultConfig())
	assert.Equal(t, "file:///b.mkv", handle.Playable().Tag())
	assert.Equal(t, "file:///b.mkv", handle.Playable().Config().Tag)
}

func TestSetUp_ReplacesConfigAndAppliesRepeat(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	h.bind(p, newSurface("s1"), StartEligible())
	assert.Equal(t, domain.RepeatOff, h.engine(0).Repeat())

	handle := h.master.SetUp(domain.NewMedia("file:///a.mkv"), p.Config().WithRepeatMode(domain.RepeatOne))
	handle.Discard()

	assert.Equal(t, domain.RepeatOne, p.Config().RepeatMode)
	assert.Equal(t, domain.RepeatOne, h.engine(0).Repeat())
}

// setUp(A, p1), bind(surface1), surface1 eligible -> onActive(playback1, surface1)
func TestScenario_BindThenEligibleActivates(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	s1 := newSurface("s1")

	var gotPlayback *Playback
	var gotTarget Surface
	pb := h.bind(p, s1, WithCallbacks(rec.callback(), &CallbackFuncs{
		Active: func(pb *Playback, target Surface) {
			gotPlayback, gotTarget = pb, target
		},
	}))
	assert.Equal(t, StateCreated, pb.State())
	assert.Empty(t, rec.log)

	require.NoError(t, pb.OnSurfaceEligible())

	assert.Equal(t, StateActive, pb.State())
	assert.Equal(t, []string{"active:s1"}, rec.log)
	assert.Same(t, pb, gotPlayback)
	assert.Same(t, s1, gotTarget)
	assert.Same(t, s1.view(), h.engine(0).Output())
	assert.True(t, h.engine(0).Playing(), "default autoplay plays on active")
}

// surface1 holds the grant; surface2 of the same playable waits until surface1 is ineligible
func TestScenario_IncumbentKeepsGrant(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	s1, s2 := newSurface("s1"), newSurface("s2")

	pb1 := h.bind(p, s1, WithCallbacks(rec.callback()), StartEligible())
	pb2 := h.bind(p, s2, WithCallbacks(rec.callback()))
	require.NoError(t, pb2.OnSurfaceEligible())

	assert.Equal(t, StateActive, pb1.State())
	assert.Equal(t, StateInactive, pb2.State())
	assertRendererInvariant(t, h.master)

	require.NoError(t, pb1.OnSurfaceIneligible())

	assert.Equal(t, StateInactive, pb1.State())
	assert.Equal(t, StateActive, pb2.State())
	assert.Equal(t, []string{"active:s1", "inactive:s1", "active:s2"}, rec.log)
	assert.Equal(t, []*player.View{s1.view(), nil, s2.view()}, h.engine(0).Outputs(), "detach before attach")
	assert.True(t, h.engine(0).Playing(), "moving the renderer within one playable keeps playing")
	assert.Equal(t, 0, h.engine(0).Pauses())
	assertRendererInvariant(t, h.master)
}

// findPlayable after the surface is destroyed resumes on a new surface with the same engine
func TestScenario_FindPlayableAfterSurfaceDestroyed(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	pb1 := h.bind(p, newSurface("s1"), StartEligible())
	require.True(t, h.master.Retain("p1"))
	h.engine(0).SetPosition(42 * time.Second)

	pb1.OnSurfaceDestroyed()
	assert.Equal(t, StateTornDown, pb1.State())

	found := h.master.FindPlayable("p1")
	require.True(t, found.IsPresent())
	assert.Same(t, p, found.MustGet())

	s3 := newSurface("s3")
	pb3 := h.bind(found.MustGet(), s3, StartEligible())

	assert.True(t, pb3.IsActive())
	assert.Len(t, h.engines.Engines(), 1)
	assert.Equal(t, 0, h.engine(0).ReleaseCount())
	h.drainUntil(p.Bridge().Ready)
	assert.Len(t, h.engine(0).Loaded(), 1, "media is not reloaded")
	assert.Equal(t, 42*time.Second, p.Bridge().Position())
	assert.Same(t, s3.view(), h.engine(0).Output())
}

func TestFindPlayable_UnknownTagIsNone(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.master.FindPlayable("missing").IsAbsent())
}

func TestFindPlayable_NoneAfterTeardown(t *testing.T) {
	h := newHarness(t)
	pb := h.bindFresh("file:///a.mkv", "p1", newSurface("s1"), StartEligible())
	h.master.Release(pb)

	assert.True(t, h.master.FindPlayable("p1").IsAbsent())
	assert.Equal(t, 1, h.engine(0).ReleaseCount())
	assert.Empty(t, h.master.Tags())
}

func TestRelease_ActiveDetachesAndNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	h.master.Retain("p1")
	pb := h.bind(p, newSurface("s1"), WithCallbacks(rec.callback()), StartEligible())

	h.master.Release(pb)
	h.master.Release(pb)

	assert.Equal(t, StateTornDown, pb.State())
	assert.Equal(t, 1, rec.count("inactive:s1"))
	assert.Equal(t, 1, detachCount(h.engine(0)))
	assert.Empty(t, h.master.Playbacks())
	assert.Empty(t, p.Playbacks())
}

func TestRelease_InactiveHasNoDetachEffect(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	h.master.Retain("p1")
	s1 := newSurface("s1")

	pb := h.bind(p, s1, WithCallbacks(rec.callback()), StartEligible())
	require.NoError(t, pb.OnSurfaceIneligible())
	detachesBefore := detachCount(h.engine(0))

	h.master.Release(pb)

	assert.Equal(t, detachesBefore, detachCount(h.engine(0)))
	assert.Equal(t, 1, rec.count("inactive:s1"), "only the ineligible signal deactivated")

	created := h.bind(p, newSurface("s2"))
	h.master.Release(created)
	assert.Equal(t, detachesBefore, detachCount(h.engine(0)))
}

func TestRelease_ClearsListeners(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	pb := h.bind(p, newSurface("s1"), WithCallbacks(rec.callback()),
		WithPlaybackEventListeners(rec.events()), WithPlayerEventListeners(&PlayerEventFuncs{}))

	cbs, events, players := pb.ListenerCounts()
	assert.Equal(t, []int{1, 1, 1}, []int{cbs, events, players})

	h.master.Release(pb)
	cbs, events, players = pb.ListenerCounts()
	assert.Equal(t, []int{0, 0, 0}, []int{cbs, events, players})
}

func TestTornDownPlayback_RejectsSignals(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	pb := h.bind(p, newSurface("s1"))
	pb.OnSurfaceDestroyed()
	pb.OnSurfaceDestroyed()

	err := pb.OnSurfaceEligible()
	assert.ErrorIs(t, err, ErrIllegalState)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "surface eligible", stateErr.Op)

	assert.ErrorIs(t, pb.OnSurfaceIneligible(), ErrIllegalState)
	assert.ErrorIs(t, pb.Play(), ErrIllegalState)
	assert.ErrorIs(t, pb.Pause(), ErrIllegalState)
	assert.Equal(t, StateTornDown, pb.State())
}

func TestBind_TornDownPlayableIsIllegal(t *testing.T) {
	h := newHarness(t)
	pb := h.bindFresh("file:///a.mkv", "p1", newSurface("s1"))
	h.master.Release(pb)

	_, err := h.master.Bind(pb.Playable(), newSurface("s2"))
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestBind_MaxPlaybacksPerPlayable(t *testing.T) {
	h := newHarness(t, WithMaxPlaybacksPerPlayable(2))
	p := h.setUp("file:///a.mkv", "p1")
	h.bind(p, newSurface("s1"))
	h.bind(p, newSurface("s2"))

	_, err := h.master.Bind(p, newSurface("s3"))
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.Len(t, p.Playbacks(), 2)
}

func TestBind_SamePairReturnsExistingPlayback(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	s1 := newSurface("s1")

	pb := h.bind(p, s1)
	again := h.bind(p, s1, WithCallbacks(rec.callback()), StartEligible())

	assert.Same(t, pb, again)
	assert.Len(t, h.master.Playbacks(), 1)
	assert.Equal(t, []string{"active:s1"}, rec.log)
}

func TestBind_RecycledSurfaceTearsDownPrevious(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	s1 := newSurface("s1")

	old := h.bindFresh("file:///a.mkv", "p1", s1, WithCallbacks(rec.callback()), StartEligible())
	next := h.bindFresh("file:///b.mkv", "p2", s1, WithCallbacks(rec.callback()), StartEligible())

	assert.Equal(t, StateTornDown, old.State())
	assert.True(t, next.IsActive())
	assert.Equal(t, []string{"active:s1", "inactive:s1", "active:s1"}, rec.log)
	assert.True(t, h.master.FindPlayable("p1").IsAbsent(), "unreferenced playable is torn down")
	assert.Equal(t, 1, h.engine(0).ReleaseCount())
	assert.Same(t, s1.view(), h.engine(1).Output())
	assertRendererInvariant(t, h.master)
}

func TestBind_SharedRendererIsNeverAttachedTwice(t *testing.T) {
	h := newHarness(t)
	p1 := h.setUp("file:///a.mkv", "p1")
	p2 := h.setUp("file:///b.mkv", "p2")
	view := player.NewView("shared", 0)

	pb1 := h.bind(p1, &testSurface{id: "s1", renderer: view}, StartEligible())
	pb2 := h.bind(p2, &testSurface{id: "s2", renderer: view}, StartEligible())

	assert.True(t, pb1.IsActive())
	assert.False(t, pb2.IsActive())
	assertRendererInvariant(t, h.master)

	require.NoError(t, pb1.OnSurfaceIneligible())
	assert.True(t, pb2.IsActive())
	assertRendererInvariant(t, h.master)
}

func TestBind_FreshSurfaceObjectMovesTheRenderer(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p1 := h.setUp("file:///a.mkv", "p1")
	p2 := h.setUp("file:///b.mkv", "p2")
	v1, v2 := player.NewView("v1", 0), player.NewView("v2", 0)

	pb1 := h.bind(p1, &testSurface{id: "row", renderer: v1}, WithCallbacks(rec.callback()), StartEligible())
	again := h.bind(p1, &testSurface{id: "row", renderer: v2})

	assert.Same(t, pb1, again)
	assert.True(t, pb1.IsActive())
	assert.Same(t, v2, p1.Bridge().Renderer())
	assert.Equal(t, []*player.View{v1, nil, v2}, h.engine(0).Outputs(), "the old view is detached first")
	assert.Equal(t, []string{"active:row", "inactive:row", "active:row"}, rec.log)
	assert.Zero(t, h.engine(0).Pauses(), "moving the renderer does not pause")
	assertRendererInvariant(t, h.master)

	pb2 := h.bind(p2, &testSurface{id: "other", renderer: v1}, StartEligible())
	assert.True(t, pb2.IsActive(), "the old view is free again")
	assertRendererInvariant(t, h.master)

	// v2 is still held, so a third surface showing it waits
	pb3 := h.bind(p2, &testSurface{id: "third", renderer: v2})
	require.NoError(t, pb2.OnSurfaceIneligible())
	require.NoError(t, pb3.OnSurfaceEligible())
	assert.False(t, pb3.IsActive())
	assertRendererInvariant(t, h.master)
}

func TestBind_SamePairAppliesConfigOverride(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	s1 := newSurface("s1")

	pb := h.bind(p, s1, StartEligible())
	assert.False(t, s1.view().UseController())

	withControls := p.Config().WithController(TransportController(p))
	again := h.bind(p, s1, WithPlaybackConfig(withControls))

	assert.Same(t, pb, again)
	assert.True(t, pb.Config().HasController())
	assert.Equal(t, "p1", pb.Config().Tag)
	assert.True(t, s1.view().UseController(), "an active playback picks up the new policy at once")
	require.NotNil(t, s1.view().Controller())
}

func TestArbitration_LoadFailureReleasesTheRenderer(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	view := player.NewView("shared", 0)

	h.engines.LoadErr = errors.New("404")
	p1 := h.setUp("file:///missing.mkv", "p1")
	pb1 := h.bind(p1, &testSurface{id: "s1", renderer: view}, WithCallbacks(rec.callback()), StartEligible())
	assert.True(t, pb1.IsActive(), "activation does not wait for the load")

	h.engines.LoadErr = nil
	p2 := h.setUp("file:///b.mkv", "p2")
	pb2 := h.bind(p2, &testSurface{id: "s2", renderer: view}, StartEligible())
	assert.False(t, pb2.IsActive())

	h.drainUntil(func() bool { return p1.Bridge().Failed() != nil })

	assert.Equal(t, StateInactive, pb1.State())
	assert.True(t, pb2.IsActive(), "the renderer moves to the next eligible playback")
	assert.Equal(t, []string{"active:s1", "inactive:s1"}, rec.log)
	assertRendererInvariant(t, h.master)

	require.NoError(t, pb2.OnSurfaceIneligible())
	assert.False(t, pb1.IsActive(), "a playable that failed to load never takes a renderer again")
}

func TestArbitration_TieBreak(t *testing.T) {
	tests := []struct {
		name   string
		opt    TieBreak
		winner string
	}{
		{"recent wins", TieBreakRecent, "s3"},
		{"oldest wins", TieBreakOldest, "s2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, WithTieBreak(tt.opt))
			p := h.setUp("file:///a.mkv", "p1")
			pb1 := h.bind(p, newSurface("s1"), StartEligible())
			h.bind(p, newSurface("s2"), StartEligible())
			h.bind(p, newSurface("s3"), StartEligible())

			require.NoError(t, pb1.OnSurfaceIneligible())

			active := h.master.ActivePlaybacks()
			require.Len(t, active, 1)
			assert.Equal(t, tt.winner, active[0].Target().SurfaceID())
		})
	}
}

func TestArbitration_MaxActiveAcrossPlayables(t *testing.T) {
	h := newHarness(t, WithMaxActive(1))
	rec := &recorder{}
	p1 := h.setUp("file:///a.mkv", "p1")
	p2 := h.setUp("file:///b.mkv", "p2")

	pb1 := h.bind(p1, newSurface("s1"), WithCallbacks(rec.callback()), StartEligible())
	pb2 := h.bind(p2, newSurface("s2"), WithCallbacks(rec.callback()), StartEligible())

	assert.True(t, pb1.IsActive())
	assert.Equal(t, StateInactive, pb2.State())

	require.NoError(t, pb1.OnSurfaceIneligible())
	assert.True(t, pb2.IsActive())
	assert.Equal(t, []string{"active:s1", "inactive:s1", "active:s2"}, rec.log)
	assert.Equal(t, 1, h.engine(0).Pauses(), "the losing playable pauses")
}

func TestArbitration_UnlimitedActiveAcrossPlayables(t *testing.T) {
	h := newHarness(t)
	p1 := h.setUp("file:///a.mkv", "p1")
	p2 := h.setUp("file:///b.mkv", "p2")

	h.bind(p1, newSurface("s1"), StartEligible())
	h.bind(p2, newSurface("s2"), StartEligible())

	assert.Len(t, h.master.ActivePlaybacks(), 2)
	assertRendererInvariant(t, h.master)
}

func TestArbitration_TypeMismatchLeavesInactive(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")

	pb := h.bind(p, &testSurface{id: "s1", renderer: "not a view"}, WithCallbacks(rec.callback()), StartEligible())

	assert.Equal(t, StateInactive, pb.State())
	assert.Empty(t, rec.log)
	assert.Nil(t, p.Bridge().Renderer())
}

func TestArbitration_EngineFailureLeavesInactive(t *testing.T) {
	loop := looper.New()
	engines := &player.MockFactory{Err: errors.New("no decoder")}
	m := New(loop, engines.New)
	t.Cleanup(func() { _ = m.Close() })

	p := m.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig()).Playable()
	pb, err := m.Bind(p, newSurface("s1"), StartEligible())
	require.NoError(t, err)
	assert.Equal(t, StateInactive, pb.State())

	engines.Err = nil
	require.NoError(t, pb.OnSurfaceIneligible())
	require.NoError(t, pb.OnSurfaceEligible())
	assert.True(t, pb.IsActive(), "activation is re-derived on the next signal")
}

func TestArbitration_AttachFailureLeavesInactive(t *testing.T) {
	loop := looper.New()
	failing := player.NewMock()
	failing.OutputErr = errors.New("surface lost")
	m := New(loop, func() (player.Engine, error) { return failing, nil })
	t.Cleanup(func() { _ = m.Close() })

	p := m.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig()).Playable()
	other := m.SetUp(domain.NewMedia("file:///b.mkv"), domain.DefaultConfig()).Playable()
	pb, err := m.Bind(p, newSurface("s1"), StartEligible())
	require.NoError(t, err)
	assert.Equal(t, StateInactive, pb.State())

	// The registry is untouched by the failure
	assert.True(t, m.FindPlayable(p.Tag()).IsPresent())
	assert.True(t, m.FindPlayable(other.Tag()).IsPresent())
}

func TestListenerPanicIsIsolated(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")

	pb := h.bind(p, newSurface("s1"), WithCallbacks(
		&CallbackFuncs{Active: func(*Playback, Surface) { panic("listener bug") }},
		rec.callback(),
	), StartEligible())

	assert.True(t, pb.IsActive())
	assert.Equal(t, []string{"active:s1"}, rec.log)
}

func TestCallbackMayReleaseItsPlayback(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	h.master.Retain("p1")
	s2 := newSurface("s2")
	var pb2 *Playback

	pb1 := h.bind(p, newSurface("s1"), WithCallbacks(&CallbackFuncs{
		Active: func(pb *Playback, _ Surface) {
			pb2 = h.bind(pb.Playable(), s2, StartEligible())
			h.master.Release(pb)
		},
	}), StartEligible())

	assert.Equal(t, StateTornDown, pb1.State())
	require.NotNil(t, pb2)
	assert.True(t, pb2.IsActive())
	assertRendererInvariant(t, h.master)
}

func TestAutoPlayPolicies(t *testing.T) {
	tests := []struct {
		name          string
		policy        domain.AutoPlayPolicy
		playsOnActive bool
		pausesOnLoss  bool
	}{
		{"off", domain.AutoPlayOff, false, false},
		{"on active", domain.AutoPlayOnActive, true, true},
		{"continuous", domain.AutoPlayContinuous, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cfg := domain.DefaultConfig().WithTag("p1").WithAutoPlay(tt.policy)
			p := h.master.SetUp(domain.NewMedia("file:///a.mkv"), cfg).Playable()
			pb := h.bind(p, newSurface("s1"), StartEligible())

			e := h.engine(0)
			assert.Equal(t, tt.playsOnActive, e.Playing())

			require.NoError(t, pb.OnSurfaceIneligible())
			assert.Equal(t, tt.pausesOnLoss, e.Pauses() == 1)
		})
	}
}

func TestControllerPolicyAppliedAndStripped(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	s1, s2 := newSurface("s1"), newSurface("s2")

	withControls := p.Config().WithController(TransportController(p))
	pb1 := h.bind(p, s1, WithPlaybackConfig(withControls), StartEligible())
	pb2 := h.bind(p, s2)

	view := s1.view()
	assert.True(t, view.UseController())
	require.NotNil(t, view.Controller())

	require.NoError(t, pb2.OnSurfaceEligible())
	require.NoError(t, pb1.OnSurfaceIneligible())

	assert.False(t, view.UseController())
	assert.Nil(t, view.Controller())
	assert.False(t, s2.view().UseController(), "playback without a controller shows no controls")
}

func TestTransportControllerDrivesBridge(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	cfg := p.Config().WithController(TransportController(p)).WithAutoPlay(domain.AutoPlayOff)
	s1 := newSurface("s1")
	h.bind(p, s1, WithPlaybackConfig(cfg), StartEligible())
	e := h.engine(0)

	assert.True(t, s1.view().Press(domain.CommandToggle))
	assert.True(t, e.Playing())

	h.emit(e, player.Event{Type: player.EventPlaying}, p.Bridge().Playing)
	assert.True(t, s1.view().Press(domain.CommandToggle))
	assert.False(t, e.Playing())

	assert.False(t, s1.view().Press(domain.CommandSeekForward))
}

func TestTransportEventFanOut(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")

	var raw []player.EventType
	var size []int
	players := &PlayerEventFuncs{
		Event: func(_ *Playback, ev player.Event) { raw = append(raw, ev.Type) },
		VideoSizeChanged: func(_ *Playback, w, hgt, rot int, par float32) {
			size = []int{w, hgt, rot}
			assert.Equal(t, float32(1), par)
		},
	}
	h.bind(p, newSurface("s1"), WithPlaybackEventListeners(rec.events()), WithPlayerEventListeners(players),
		StartEligible())
	h.bind(p, newSurface("s2"), WithPlaybackEventListeners(rec.events()))
	e := h.engine(0)

	h.emit(e, player.Event{Type: player.EventFirstFrameRendered}, func() bool { return len(rec.log) == 2 })
	h.emit(e, player.Event{Type: player.EventBufferingStart, PlayWhenReady: true}, func() bool { return len(rec.log) == 4 })
	h.emit(e, player.Event{Type: player.EventBufferingEnd, PlayWhenReady: true}, func() bool { return len(rec.log) == 6 })
	h.emit(e, player.Event{Type: player.EventPlaying}, func() bool { return len(rec.log) == 8 })
	h.emit(e, player.Event{Type: player.EventPaused}, func() bool { return len(rec.log) == 10 })
	h.emit(e, player.Event{Type: player.EventCompleted}, func() bool { return len(rec.log) == 12 })
	h.emit(e, player.Event{Type: player.EventVideoSizeChanged, Width: 640, Height: 360, UnappliedRotationDegrees: 90,
		PixelAspectRatio: 1}, func() bool { return size != nil })

	assert.Equal(t, []string{
		"first-frame:s1", "first-frame:s2",
		"buffering:s1:true", "buffering:s2:true",
		"buffered:s1:true", "buffered:s2:true",
		"playing:s1", "playing:s2",
		"paused:s1", "paused:s2",
		"completed:s1", "completed:s2",
	}, rec.log)
	assert.Equal(t, []int{640, 360, 90}, size)
	assert.Equal(t, []player.EventType{
		player.EventFirstFrameRendered, player.EventBufferingStart, player.EventBufferingEnd, player.EventPlaying,
		player.EventPaused, player.EventCompleted, player.EventVideoSizeChanged,
	}, raw)
}

func TestEventsStopAfterTeardown(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	pb := h.bindFresh("file:///a.mkv", "p1", newSurface("s1"), WithPlaybackEventListeners(rec.events()),
		StartEligible())
	e := h.engine(0)

	h.emit(e, player.Event{Type: player.EventPlaying}, func() bool { return len(rec.log) == 1 })
	h.master.Release(pb)

	e.Emit(player.Event{Type: player.EventPaused})
	h.loop.Drain()
	assert.Equal(t, []string{"playing:s1"}, rec.log)
	assert.Equal(t, 1, e.ReleaseCount())
}

func TestReleaseGrace(t *testing.T) {
	h := newHarness(t, WithReleaseGrace(20*time.Millisecond))
	pb := h.bindFresh("file:///a.mkv", "p1", newSurface("s1"), StartEligible())
	p := pb.Playable()

	h.master.Release(pb)
	assert.True(t, h.master.FindPlayable("p1").IsPresent(), "kept during grace")

	// Setting up again inside the grace period cancels the teardown
	handle := h.master.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig().WithTag("p1"))
	assert.Same(t, p, handle.Playable())
	time.Sleep(40 * time.Millisecond)
	h.loop.Drain()
	assert.True(t, h.master.FindPlayable("p1").IsPresent())

	handle.Discard()
	h.drainUntil(func() bool { return h.master.FindPlayable("p1").IsAbsent() })
	assert.Equal(t, 1, h.engine(0).ReleaseCount())
}

func TestHandleDiscard_TearsDownUnboundPlayable(t *testing.T) {
	h := newHarness(t)
	handle := h.master.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig().WithTag("p1"))
	require.True(t, h.master.FindPlayable("p1").IsPresent())

	handle.Discard()
	handle.Discard()
	assert.True(t, h.master.FindPlayable("p1").IsAbsent())
	assert.Empty(t, h.engines.Engines(), "engine is created lazily")
}

func TestRetainAndForget(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.master.Retain("missing"))

	handle := h.master.SetUp(domain.NewMedia("file:///a.mkv"), domain.DefaultConfig().WithTag("p1"))
	require.True(t, h.master.Retain("p1"))
	pb, err := handle.Bind(newSurface("s1"))
	require.NoError(t, err)
	h.master.Release(pb)
	assert.True(t, h.master.FindPlayable("p1").IsPresent())

	h.master.Forget("p1")
	assert.True(t, h.master.FindPlayable("p1").IsAbsent())
}

func TestSearchTags(t *testing.T) {
	h := newHarness(t)
	for _, tag := range []string{"big-buck-bunny", "sintel", "tears-of-steel", "elephants-dream"} {
		h.setUp("file:///"+tag+".mkv", tag)
	}

	assert.Equal(t, []string{"big-buck-bunny", "elephants-dream", "sintel", "tears-of-steel"}, h.master.Tags())
	assert.Equal(t, []string{"big-buck-bunny"}, h.master.SearchTags("bbb"))
	assert.Equal(t, []string{"tears-of-steel"}, h.master.SearchTags("STEEL"))
	assert.Empty(t, h.master.SearchTags("zzz"))
	assert.Len(t, h.master.SearchTags(""), 4)
}

func TestClose(t *testing.T) {
	h := newHarness(t)
	rec := &recorder{}
	p := h.setUp("file:///a.mkv", "p1")
	h.master.Retain("p1")
	pb := h.bind(p, newSurface("s1"), WithCallbacks(rec.callback()), StartEligible())

	require.NoError(t, h.master.Close())
	require.NoError(t, h.master.Close())

	assert.Equal(t, StateTornDown, pb.State())
	assert.Equal(t, []string{"active:s1", "inactive:s1"}, rec.log)
	assert.Equal(t, 1, h.engine(0).ReleaseCount())
	assert.Empty(t, h.master.Tags())

	_, err := h.master.SetUp(domain.NewMedia("file:///b.mkv"), domain.DefaultConfig()).Bind(newSurface("s2"))
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.MasterConfig{
		MaxActive:               2,
		MaxPlaybacksPerPlayable: 3,
		TieBreak:                "oldest",
		ReleaseGrace:            "1s",
	})
	require.NoError(t, err)

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, 2, o.maxActive)
	assert.Equal(t, 3, o.maxPerPlayable)
	assert.Equal(t, TieBreakOldest, o.tieBreak)
	assert.Equal(t, time.Second, o.grace)

	_, err = OptionsFromConfig(config.MasterConfig{TieBreak: "loudest"})
	assert.Error(t, err)
	_, err = OptionsFromConfig(config.MasterConfig{ReleaseGrace: "later"})
	assert.Error(t, err)
}

// Random bind, rebind, signal and release sequences never leave two playbacks of a bridge active, checked after every
// step and from inside every callback
func TestRendererInvariant_RandomSequences(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		h := newHarness(t, WithMaxActive(int(seed%3)))
		rng := rand.New(rand.NewPCG(seed, seed*7))

		checks := 0
		check := func(pb *Playback, target Surface) {
			checks++
			assertRendererInvariant(t, h.master)
		}
		watch := WithCallbacks(&CallbackFuncs{Active: check, InActive: check})

		tags := []string{"p1", "p2", "p3"}
		ids := []string{"s1", "s2", "s3", "s4"}
		views := []*player.View{player.NewView("v1", 0), player.NewView("v2", 0), player.NewView("v3", 0)}
		surfaces := map[string]*testSurface{}
		for i, id := range ids {
			surfaces[id] = &testSurface{id: id, renderer: views[i%len(views)]}
		}
		pick := func() *testSurface { return surfaces[ids[rng.IntN(len(ids))]] }

		for step := 0; step < 300; step++ {
			switch rng.IntN(7) {
			case 0:
				tag := tags[rng.IntN(len(tags))]
				handle := h.master.SetUp(domain.NewMedia("file:///"+tag), domain.DefaultConfig().WithTag(tag))
				_, _ = handle.Bind(pick(), watch)
			case 1:
				// A fresh surface object under an existing id, usually showing another view
				id := ids[rng.IntN(len(ids))]
				fresh := &testSurface{id: id, renderer: views[rng.IntN(len(views))]}
				surfaces[id] = fresh
				if pb, ok := h.master.surfaces[id]; ok {
					_, _ = h.master.Bind(pb.Playable(), fresh, watch)
				}
			case 2, 3:
				if pbs := h.master.Playbacks(); len(pbs) > 0 {
					_ = pbs[rng.IntN(len(pbs))].OnSurfaceEligible()
				}
			case 4:
				if pbs := h.master.Playbacks(); len(pbs) > 0 {
					_ = pbs[rng.IntN(len(pbs))].OnSurfaceIneligible()
				}
			case 5:
				if pbs := h.master.Playbacks(); len(pbs) > 0 {
					pbs[rng.IntN(len(pbs))].OnSurfaceDestroyed()
				}
			case 6:
				// Rebind an existing playable onto any surface, which may recycle another playable's playback
				if pbs := h.master.Playbacks(); len(pbs) > 0 {
					_, _ = h.master.Bind(pbs[rng.IntN(len(pbs))].Playable(), pick(), watch, StartEligible())
				}
			}
			assertRendererInvariant(t, h.master)
			if limit := int(seed % 3); limit > 0 {
				require.LessOrEqual(t, len(h.master.ActivePlaybacks()), limit)
			}
		}
		assert.Positive(t, checks, "seed %d never changed a grant", seed)
	}
}
