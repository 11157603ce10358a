package models

import (
	"fmt"

	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/player"
)

// surface is one place on screen that can host a playback.  Each surface owns its own renderer view.
type surface struct {
	id   string
	view *player.View
}

func newSurface(id string) *surface {
	return &surface{id: id, view: player.NewView(id, 0)}
}

func (s *surface) SurfaceID() string {
	return s.id
}

func (s *surface) Renderer() any {
	return s.view
}

// Transport states shown to the user
const (
	transportIdle      = "idle"
	transportPlaying   = "playing"
	transportPaused    = "paused"
	transportCompleted = "completed"
	transportError     = "error"
)

// status mirrors one playback for rendering.  Listeners fill it in on the control goroutine, which is also the
// goroutine that renders.
type status struct {
	active      bool
	transport   string
	buffering   bool
	firstFrame  bool
	width       int
	height      int
	completions int
}

func newStatus() *status {
	return &status{transport: transportIdle}
}

// carry copies what is known about the shared engine into a fresh status for another surface
func (s *status) carry() *status {
	c := *s
	c.active = false
	return &c
}

// options registers s as every kind of listener on the playback it is bound with
func (s *status) options() []binding.BindOption {
	return []binding.BindOption{
		binding.WithCallbacks(s),
		binding.WithPlaybackEventListeners(s),
		binding.WithPlayerEventListeners(s),
	}
}

func (s *status) OnActive(_ *binding.Playback, _ binding.Surface) {
	s.active = true
}

func (s *status) OnInActive(_ *binding.Playback, _ binding.Surface) {
	s.active = false
}

func (s *status) OnFirstFrameRendered(_ *binding.Playback) {
	s.firstFrame = true
}

func (s *status) OnBuffering(_ *binding.Playback, _ bool) {
	s.buffering = true
}

func (s *status) OnBufferingEnd(_ *binding.Playback, _ bool) {
	s.buffering = false
}

func (s *status) OnPlaying(_ *binding.Playback) {
	s.transport = transportPlaying
}

func (s *status) OnPaused(_ *binding.Playback) {
	s.transport = transportPaused
}

func (s *status) OnCompleted(_ *binding.Playback) {
	s.transport = transportCompleted
	s.completions++
}

func (s *status) OnPlayerEvent(_ *binding.Playback, ev player.Event) {
	if ev.Type == player.EventError {
		s.transport = transportError
	}
}

func (s *status) OnVideoSizeChanged(_ *binding.Playback, width, height, _ int, _ float32) {
	s.width = width
	s.height = height
}

// withControls gives the playback built-in controls that drive the playable's transport
func withControls(p binding.Playable) binding.BindOption {
	return binding.WithPlaybackConfig(p.Config().WithController(binding.TransportController(p)))
}

// press delivers cmd through the built-in controls of the surface pb is bound to
func press(pb *binding.Playback, cmd domain.Command) bool {
	if pb == nil {
		return false
	}
	view, ok := pb.Target().Renderer().(*player.View)
	if !ok {
		return false
	}
	return view.Press(cmd)
}

// cycleRepeat sets tag up again with the next repeat mode, which the existing engine picks up
func cycleRepeat(master *binding.Master, tag string) (domain.RepeatMode, error) {
	p, ok := master.FindPlayable(tag).Get()
	if !ok {
		return domain.RepeatOff, fmt.Errorf("no playable for tag %q", tag)
	}
	cfg := p.Config()
	next := cfg.RepeatMode.Next()
	master.SetUp(p.Media(), cfg.WithRepeatMode(next)).Discard()
	log.Info("Repeat mode changed", "tag", tag, "repeat", next.String())
	return next, nil
}
