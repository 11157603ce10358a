package binding

import (
	"fmt"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/player"
)

// Surface is a host-owned place that can show a renderer.  The binding layer never owns a surface; it only asks
// for its renderer while the surface's playback holds the grant.
type Surface interface {
	SurfaceID() string
	Renderer() any
}

// Playable is media plus config bound to a Bridge, independent of any surface.  Specializations decide which
// renderer kind they accept by embedding *Base and implementing the renderer hooks.
type Playable interface {
	Tag() string
	Media() domain.Media
	Config() domain.Config
	Bridge() *Bridge
	// Playbacks returns the live playbacks bound to this playable, oldest first
	Playbacks() []*Playback

	// ShouldAttachRenderer hands renderer to the bridge.  It fails with ErrTypeMismatch, leaving the current
	// renderer in place, when renderer is not the kind this playable draws into.
	ShouldAttachRenderer(renderer any) error
	// ShouldDetachRenderer clears the bridge renderer.  Playback state is kept.
	ShouldDetachRenderer() error
	// ConsiderRequestRenderer applies pb's controller policy to the attached renderer
	ConsiderRequestRenderer(pb *Playback)
	// ConsiderReleaseRenderer resets the attached renderer to a neutral control state
	ConsiderReleaseRenderer(pb *Playback)

	base() *Base
}

// PlayableFactory builds a specialization around base
type PlayableFactory func(base *Base) Playable

// Base carries the state every Playable shares.  It is created by the Master.
type Base struct {
	tag    string
	media  domain.Media
	config domain.Config
	bridge *Bridge

	playbacks []*Playback
	pending   int
	retained  bool
	tornDown  bool

	graceTimer *time.Timer
	graceGen   int
}

func (b *Base) Tag() string {
	return b.tag
}

func (b *Base) Media() domain.Media {
	return b.media
}

func (b *Base) Config() domain.Config {
	return b.config
}

func (b *Base) Bridge() *Bridge {
	return b.bridge
}

func (b *Base) Playbacks() []*Playback {
	return append([]*Playback(nil), b.playbacks...)
}

// TornDown reports whether the Master has released this playable
func (b *Base) TornDown() bool {
	return b.tornDown
}

func (b *Base) base() *Base {
	return b
}

func (b *Base) removePlayback(pb *Playback) {
	for i, p := range b.playbacks {
		if p == pb {
			b.playbacks = append(b.playbacks[:i:i], b.playbacks[i+1:]...)
			return
		}
	}
}

// referenced reports whether anything still keeps this playable alive
func (b *Base) referenced() bool {
	return len(b.playbacks) > 0 || b.pending > 0 || b.retained
}

func (b *Base) cancelGrace() {
	b.graceGen++
	if b.graceTimer != nil {
		b.graceTimer.Stop()
		b.graceTimer = nil
	}
}

// viewPlayable draws into *player.View renderers
type viewPlayable struct {
	*Base
}

// NewViewPlayable is the default PlayableFactory
func NewViewPlayable(base *Base) Playable {
	return &viewPlayable{Base: base}
}

func (p *viewPlayable) ShouldAttachRenderer(renderer any) error {
	view, ok := renderer.(*player.View)
	if !ok || view == nil {
		return &TypeMismatchError{Want: "*player.View", Got: fmt.Sprintf("%T", renderer)}
	}
	return p.bridge.Attach(view)
}

func (p *viewPlayable) ShouldDetachRenderer() error {
	return p.bridge.Detach()
}

func (p *viewPlayable) ConsiderRequestRenderer(pb *Playback) {
	view := p.bridge.Renderer()
	if view == nil {
		return
	}
	cfg := pb.Config()
	view.SetController(cfg.Controller)
	view.SetUseController(cfg.HasController())
	log.Trace("Applied controller policy", "tag", p.tag, "view", view.ID(), "controls", cfg.HasController())
}

func (p *viewPlayable) ConsiderReleaseRenderer(_ *Playback) {
	view := p.bridge.Renderer()
	if view == nil {
		return
	}
	view.SetUseController(false)
	view.SetController(nil)
}

// TransportController returns a Controller that drives p's bridge.  Seek commands are not consumed.
func TransportController(p Playable) domain.Controller {
	return domain.ControllerFunc(func(cmd domain.Command) bool {
		bridge := p.Bridge()
		var err error
		switch cmd {
		case domain.CommandPlay:
			err = bridge.Play()
		case domain.CommandPause:
			err = bridge.Pause()
		case domain.CommandToggle:
			if bridge.Playing() {
				err = bridge.Pause()
			} else {
				err = bridge.Play()
			}
		default:
			return false
		}
		if err != nil {
			log.Warn("Controller command failed", "tag", p.Tag(), "command", cmd, "error", err)
			return false
		}
		return true
	})
}
