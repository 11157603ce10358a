package binding

import (
	"fmt"
	"testing"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/looper"
	"github.com/PizzaHomicide/reel/internal/player"
	"github.com/stretchr/testify/require"
)

type testSurface struct {
	id       string
	renderer any
}

func (s *testSurface) SurfaceID() string {
	return s.id
}

func (s *testSurface) Renderer() any {
	return s.renderer
}

func (s *testSurface) view() *player.View {
	return s.renderer.(*player.View)
}

func newSurface(id string) *testSurface {
	return &testSurface{id: id, renderer: player.NewView(id, 0)}
}

// recorder keeps a single ordered log of everything observed through listeners
type recorder struct {
	log []string
}

func (r *recorder) add(format string, args ...any) {
	r.log = append(r.log, fmt.Sprintf(format, args...))
}

func (r *recorder) callback() *CallbackFuncs {
	return &CallbackFuncs{
		Active:   func(pb *Playback, target Surface) { r.add("active:%s", target.SurfaceID()) },
		InActive: func(pb *Playback, target Surface) { r.add("inactive:%s", target.SurfaceID()) },
	}
}

func (r *recorder) events() *PlaybackEventFuncs {
	return &PlaybackEventFuncs{
		FirstFrameRendered: func(pb *Playback) { r.add("first-frame:%s", pb.Target().SurfaceID()) },
		Buffering:          func(pb *Playback, pwr bool) { r.add("buffering:%s:%t", pb.Target().SurfaceID(), pwr) },
		BufferingEnd:       func(pb *Playback, pwr bool) { r.add("buffered:%s:%t", pb.Target().SurfaceID(), pwr) },
		Playing:            func(pb *Playback) { r.add("playing:%s", pb.Target().SurfaceID()) },
		Paused:             func(pb *Playback) { r.add("paused:%s", pb.Target().SurfaceID()) },
		Completed:          func(pb *Playback) { r.add("completed:%s", pb.Target().SurfaceID()) },
	}
}

func (r *recorder) count(entry string) int {
	n := 0
	for _, e := range r.log {
		if e == entry {
			n++
		}
	}
	return n
}

type harness struct {
	t       *testing.T
	loop    *looper.Loop
	engines *player.MockFactory
	master  *Master
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	loop := looper.New()
	engines := &player.MockFactory{}
	m := New(loop, engines.New, opts...)
	t.Cleanup(func() {
		_ = m.Close()
		loop.Close()
	})
	return &harness{t: t, loop: loop, engines: engines, master: m}
}

// setUp leaves its handle pending, which keeps the playable alive for the whole test
func (h *harness) setUp(uri, tag string) Playable {
	h.t.Helper()
	handle := h.master.SetUp(domain.NewMedia(uri), domain.DefaultConfig().WithTag(tag))
	require.NotNil(h.t, handle.Playable())
	return handle.Playable()
}

// bindFresh sets up and binds through the handle, so only the returned playback keeps the playable alive
func (h *harness) bindFresh(uri, tag string, s Surface, opts ...BindOption) *Playback {
	h.t.Helper()
	handle := h.master.SetUp(domain.NewMedia(uri), domain.DefaultConfig().WithTag(tag))
	pb, err := handle.Bind(s, opts...)
	require.NoError(h.t, err)
	return pb
}

func (h *harness) bind(p Playable, s Surface, opts ...BindOption) *Playback {
	h.t.Helper()
	pb, err := h.master.Bind(p, s, opts...)
	require.NoError(h.t, err)
	return pb
}

func (h *harness) engine(i int) *player.Mock {
	h.t.Helper()
	engines := h.engines.Engines()
	require.Greater(h.t, len(engines), i, "engine %d was never created", i)
	return engines[i]
}

// drainUntil runs posted work on the test goroutine until cond holds
func (h *harness) drainUntil(cond func() bool) {
	h.t.Helper()
	drainLoop(h.t, h.loop, cond)
}

func drainLoop(t *testing.T, loop *looper.Loop, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-loop.Ready():
			loop.Drain()
		case <-deadline:
			t.Fatal("condition not met before deadline")
		}
	}
}

// emit injects an engine event and waits until it has been delivered on the control goroutine
func (h *harness) emit(e *player.Mock, ev player.Event, delivered func() bool) {
	h.t.Helper()
	e.Emit(ev)
	h.drainUntil(delivered)
}

func detachCount(e *player.Mock) int {
	n := 0
	for _, v := range e.Outputs() {
		if v == nil {
			n++
		}
	}
	return n
}

// assertRendererInvariant checks that no playable has two active playbacks and no view feeds two bridges
func assertRendererInvariant(t *testing.T, m *Master) {
	t.Helper()
	activePerPlayable := map[*Base]int{}
	viewOwner := map[*player.View]*Base{}
	for _, pb := range m.Playbacks() {
		b := pb.Playable().base()
		if pb.IsActive() {
			activePerPlayable[b]++
			require.LessOrEqual(t, activePerPlayable[b], 1, "two active playbacks for %s", b.tag)
			require.Same(t, pb.Target().Renderer(), b.bridge.Renderer(), "active playback must own the renderer")
		}
		if v := b.bridge.Renderer(); v != nil {
			if owner, ok := viewOwner[v]; ok && owner != b {
				t.Fatalf("view %s attached to %s and %s", v.ID(), owner.tag, b.tag)
			}
			viewOwner[v] = b
		}
	}
}
