package binding

import (
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/player"
	"github.com/google/uuid"
)

// State is the activation state of a Playback
type State int

const (
	StateCreated State = iota
	StateActive
	StateInactive
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateActive:
		return "ACTIVE"
	case StateInactive:
		return "INACTIVE"
	case StateTornDown:
		return "TORN_DOWN"
	default:
		return "UNKNOWN"
	}
}

// Playback binds one Playable to one surface.  The host drives it with surface signals and the Master decides when
// it holds the renderer.  A Playback must only be used on the control goroutine.
type Playback struct {
	id       string
	master   *Master
	playable Playable
	target   Surface
	config   domain.Config
	state    State

	eligible    bool
	eligibleSeq uint64
	activeSeq   uint64

	callbacks       listenerSet[Callback]
	eventListeners  listenerSet[PlaybackEventListener]
	playerListeners listenerSet[PlayerEventListener]
}

func newPlayback(m *Master, p Playable, target Surface, cfg domain.Config) *Playback {
	return &Playback{
		id:       uuid.NewString(),
		master:   m,
		playable: p,
		target:   target,
		config:   cfg,
		state:    StateCreated,
	}
}

func (pb *Playback) ID() string {
	return pb.id
}

func (pb *Playback) Tag() string {
	return pb.playable.Tag()
}

func (pb *Playback) Playable() Playable {
	return pb.playable
}

// Target returns the surface this playback is bound to
func (pb *Playback) Target() Surface {
	return pb.target
}

func (pb *Playback) Config() domain.Config {
	return pb.config
}

func (pb *Playback) State() State {
	return pb.state
}

func (pb *Playback) IsActive() bool {
	return pb.state == StateActive
}

// Eligible reports the last eligibility signal from the host
func (pb *Playback) Eligible() bool {
	return pb.eligible
}

// OnSurfaceEligible records that the surface is visible and may hold the renderer, then re-runs arbitration
func (pb *Playback) OnSurfaceEligible() error {
	if pb.state == StateTornDown {
		return illegalState("surface eligible", "playback %s is torn down", pb.id)
	}
	if !pb.eligible {
		pb.eligible = true
		pb.eligibleSeq = pb.master.nextSeq()
	}
	if pb.state == StateCreated {
		pb.setState(StateInactive)
	}
	pb.master.arbitrate()
	return nil
}

// OnSurfaceIneligible records that the surface can no longer hold the renderer, then re-runs arbitration
func (pb *Playback) OnSurfaceIneligible() error {
	if pb.state == StateTornDown {
		return illegalState("surface ineligible", "playback %s is torn down", pb.id)
	}
	pb.eligible = false
	if pb.state == StateCreated {
		pb.setState(StateInactive)
	}
	pb.master.arbitrate()
	return nil
}

// OnSurfaceDestroyed tears the playback down.  Calling it again does nothing.
func (pb *Playback) OnSurfaceDestroyed() {
	pb.master.Release(pb)
}

// Play starts transport on the playable's bridge
func (pb *Playback) Play() error {
	if pb.state == StateTornDown {
		return illegalState("play", "playback %s is torn down", pb.id)
	}
	return pb.playable.Bridge().Play()
}

// Pause stops transport on the playable's bridge
func (pb *Playback) Pause() error {
	if pb.state == StateTornDown {
		return illegalState("pause", "playback %s is torn down", pb.id)
	}
	return pb.playable.Bridge().Pause()
}

// AddCallback registers cb.  Registering the same value twice keeps one entry.
func (pb *Playback) AddCallback(cb Callback) bool {
	return pb.callbacks.add(cb)
}

func (pb *Playback) RemoveCallback(cb Callback) bool {
	return pb.callbacks.remove(cb)
}

func (pb *Playback) AddPlaybackEventListener(l PlaybackEventListener) bool {
	return pb.eventListeners.add(l)
}

func (pb *Playback) RemovePlaybackEventListener(l PlaybackEventListener) bool {
	return pb.eventListeners.remove(l)
}

func (pb *Playback) AddPlayerEventListener(l PlayerEventListener) bool {
	return pb.playerListeners.add(l)
}

func (pb *Playback) RemovePlayerEventListener(l PlayerEventListener) bool {
	return pb.playerListeners.remove(l)
}

func (pb *Playback) setState(s State) {
	if pb.state == s {
		return
	}
	log.Debug("Playback state changed", "playback", pb.id, "tag", pb.Tag(), "surface", pb.target.SurfaceID(),
		"from", pb.state.String(), "to", s.String())
	pb.state = s
}

func (pb *Playback) notifyActive() {
	notify(pb, "active", &pb.callbacks, func(cb Callback) { cb.OnActive(pb, pb.target) })
}

func (pb *Playback) notifyInActive() {
	notify(pb, "inactive", &pb.callbacks, func(cb Callback) { cb.OnInActive(pb, pb.target) })
}

// deliver forwards one engine event to every listener, unfiltered
func (pb *Playback) deliver(ev player.Event) {
	what := ev.Type.String()
	notify(pb, what, &pb.playerListeners, func(l PlayerEventListener) { l.OnPlayerEvent(pb, ev) })

	switch ev.Type {
	case player.EventFirstFrameRendered:
		notify(pb, what, &pb.eventListeners, func(l PlaybackEventListener) { l.OnFirstFrameRendered(pb) })
	case player.EventBufferingStart:
		notify(pb, what, &pb.eventListeners, func(l PlaybackEventListener) { l.OnBuffering(pb, ev.PlayWhenReady) })
	case player.EventBufferingEnd:
		notify(pb, what, &pb.eventListeners, func(l PlaybackEventListener) { l.OnBufferingEnd(pb, ev.PlayWhenReady) })
	case player.EventPlaying:
		notify(pb, what, &pb.eventListeners, func(l PlaybackEventListener) { l.OnPlaying(pb) })
	case player.EventPaused:
		notify(pb, what, &pb.eventListeners, func(l PlaybackEventListener) { l.OnPaused(pb) })
	case player.EventCompleted:
		notify(pb, what, &pb.eventListeners, func(l PlaybackEventListener) { l.OnCompleted(pb) })
	case player.EventVideoSizeChanged:
		notify(pb, what, &pb.playerListeners, func(l PlayerEventListener) {
			l.OnVideoSizeChanged(pb, ev.Width, ev.Height, ev.UnappliedRotationDegrees, ev.PixelAspectRatio)
		})
	case player.EventError:
		log.Warn("Engine reported an error", "playback", pb.id, "tag", pb.Tag(), "error", ev.Err)
	}
}

func (pb *Playback) clearListeners() {
	pb.callbacks.clear()
	pb.eventListeners.clear()
	pb.playerListeners.clear()
}

// ListenerCounts returns the number of registered callbacks, playback event and player event listeners
func (pb *Playback) ListenerCounts() (callbacks, events, players int) {
	return pb.callbacks.len(), pb.eventListeners.len(), pb.playerListeners.len()
}
