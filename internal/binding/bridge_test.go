package binding

import (
	"errors"
	"testing"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/looper"
	"github.com/PizzaHomicide/reel/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T) (*Bridge, *player.MockFactory) {
	t.Helper()
	engines := &player.MockFactory{}
	b := newBridge(looper.New(), engines.New, domain.NewMedia("file:///a.mkv"), domain.RepeatAll, nil)
	t.Cleanup(func() { _ = b.Release() })
	return b, engines
}

func TestBridge_AttachIsDetachThenAttach(t *testing.T) {
	b, engines := newTestBridge(t)
	v1, v2 := player.NewView("v1", 0), player.NewView("v2", 0)

	require.NoError(t, b.Attach(v1))
	require.NoError(t, b.Attach(v1))
	require.NoError(t, b.Attach(v2))
	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach())

	e := engines.Engines()[0]
	assert.Equal(t, []*player.View{v1, nil, v2, nil}, e.Outputs())
	assert.Nil(t, b.Renderer())
	assert.Equal(t, domain.RepeatAll, e.Repeat(), "repeat is applied when the engine is created")
}

func TestBridge_EngineIsLazyAndReleasedOnce(t *testing.T) {
	b, engines := newTestBridge(t)
	assert.False(t, b.HasEngine())
	assert.Zero(t, b.Position())
	require.NoError(t, b.Pause(), "pausing without an engine is a no-op")
	assert.Empty(t, engines.Engines())

	require.NoError(t, b.Play())
	require.NoError(t, b.Play())
	assert.Len(t, engines.Engines(), 1)

	require.NoError(t, b.Release())
	require.NoError(t, b.Release())
	assert.Equal(t, 1, engines.Engines()[0].ReleaseCount())

	assert.ErrorIs(t, b.Attach(player.NewView("v", 0)), ErrIllegalState)
	assert.ErrorIs(t, b.Play(), ErrIllegalState)
}

func TestBridge_LoadRunsOffTheControlGoroutine(t *testing.T) {
	loop := looper.New()
	t.Cleanup(loop.Close)
	gate := make(chan struct{})
	engines := &player.MockFactory{LoadGate: gate}
	b := newBridge(loop, engines.New, domain.NewMedia("file:///a.mkv"), domain.RepeatOff, nil)
	t.Cleanup(func() { _ = b.Release() })
	view := player.NewView("v1", 0)

	require.NoError(t, b.Attach(view))
	require.NoError(t, b.Play())

	e := engines.Engines()[0]
	assert.False(t, b.Ready())
	assert.Empty(t, e.Loaded())
	assert.Same(t, view, e.Output(), "output is routed before the media is loaded")
	assert.True(t, e.Playing())

	close(gate)
	drainLoop(t, loop, b.Ready)
	assert.Equal(t, []string{"file:///a.mkv"}, e.Loaded())
	assert.NoError(t, b.Failed())
}

func TestBridge_ReleaseDoesNotWaitForLoad(t *testing.T) {
	loop := looper.New()
	t.Cleanup(loop.Close)
	engines := &player.MockFactory{LoadGate: make(chan struct{})}
	b := newBridge(loop, engines.New, domain.NewMedia("file:///a.mkv"), domain.RepeatOff, nil)

	require.NoError(t, b.Play())
	require.NoError(t, b.Release())
	assert.Equal(t, 1, engines.Engines()[0].ReleaseCount())

	// The cancelled load still reports back, and is ignored
	select {
	case <-loop.Ready():
		loop.Drain()
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled load never reported")
	}
	assert.NoError(t, b.Failed())
	assert.False(t, b.Ready())
}

func TestBridge_LoadFailureIsSticky(t *testing.T) {
	loop := looper.New()
	t.Cleanup(loop.Close)
	engines := &player.MockFactory{LoadErr: errors.New("unsupported container")}
	var got []player.Event
	b := newBridge(loop, engines.New, domain.NewMedia("file:///a.mkv"), domain.RepeatOff, func(ev player.Event) {
		got = append(got, ev)
	})
	t.Cleanup(func() { _ = b.Release() })

	require.NoError(t, b.Play())
	drainLoop(t, loop, func() bool { return b.Failed() != nil })

	assert.ErrorContains(t, b.Failed(), "unsupported container")
	require.Len(t, got, 1)
	assert.Equal(t, player.EventError, got[0].Type)
	assert.False(t, b.Ready())

	assert.Error(t, b.Attach(player.NewView("v1", 0)))
	assert.Error(t, b.Play())
	assert.Len(t, engines.Engines(), 1, "a failed bridge does not create another engine")
}

func TestBridge_AttachNilDetaches(t *testing.T) {
	b, _ := newTestBridge(t)
	require.NoError(t, b.Attach(player.NewView("v1", 0)))
	require.NoError(t, b.Attach(nil))
	assert.Nil(t, b.Renderer())
}

func TestViewPlayable_TypeMismatchKeepsCurrentRenderer(t *testing.T) {
	b, _ := newTestBridge(t)
	p := NewViewPlayable(&Base{tag: "p1", bridge: b})
	v1 := player.NewView("v1", 0)

	require.NoError(t, p.ShouldAttachRenderer(v1))

	err := p.ShouldAttachRenderer("canvas")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "*player.View", mismatch.Want)
	assert.Equal(t, "string", mismatch.Got)
	assert.Same(t, v1, b.Renderer())

	var nilView *player.View
	assert.ErrorIs(t, p.ShouldAttachRenderer(nilView), ErrTypeMismatch)

	require.NoError(t, p.ShouldDetachRenderer())
	assert.Nil(t, b.Renderer())
}

func TestListenerSet(t *testing.T) {
	var set listenerSet[Callback]
	a, b := &CallbackFuncs{}, &CallbackFuncs{}

	assert.True(t, set.add(a))
	assert.False(t, set.add(a), "duplicates are ignored")
	assert.True(t, set.add(b))
	assert.Equal(t, []Callback{a, b}, set.snapshot())

	assert.True(t, set.remove(a))
	assert.False(t, set.remove(a))
	assert.Equal(t, []Callback{b}, set.snapshot())
}

// nonComparable is a listener whose dynamic type cannot be compared with ==
type nonComparable struct {
	CallbackFuncs
	tags []string
}

func TestListenerSet_NonComparableValuesDoNotPanic(t *testing.T) {
	var set listenerSet[Callback]
	assert.NotPanics(t, func() {
		set.add(&nonComparable{})
		set.add(nonComparableValue{})
		set.add(nonComparableValue{})
	})
	assert.Equal(t, 3, set.len())
}

type nonComparableValue struct {
	tags []string
}

func (nonComparableValue) OnActive(*Playback, Surface)   {}
func (nonComparableValue) OnInActive(*Playback, Surface) {}

func TestListenerRegistrationAtAnyState(t *testing.T) {
	h := newHarness(t)
	p := h.setUp("file:///a.mkv", "p1")
	pb := h.bind(p, newSurface("s1"))
	l := &PlaybackEventFuncs{}

	assert.True(t, pb.AddPlaybackEventListener(l))
	pb.OnSurfaceDestroyed()
	assert.True(t, pb.AddPlaybackEventListener(l), "registration is plain set membership even when torn down")
	assert.True(t, pb.RemovePlaybackEventListener(l))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CREATED", StateCreated.String())
	assert.Equal(t, "ACTIVE", StateActive.String())
	assert.Equal(t, "INACTIVE", StateInactive.String())
	assert.Equal(t, "TORN_DOWN", StateTornDown.String())
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakRecent, tb)

	tb, err = ParseTieBreak(" Oldest ")
	require.NoError(t, err)
	assert.Equal(t, TieBreakOldest, tb)

	_, err = ParseTieBreak("random")
	assert.Error(t, err)
}
