package binding

import (
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/player"
)

// Callback is notified when a playback is granted or loses the renderer
type Callback interface {
	OnActive(pb *Playback, target Surface)
	OnInActive(pb *Playback, target Surface)
}

// PlaybackEventListener receives transport state changes
type PlaybackEventListener interface {
	OnFirstFrameRendered(pb *Playback)
	OnBuffering(pb *Playback, playWhenReady bool)
	OnBufferingEnd(pb *Playback, playWhenReady bool)
	OnPlaying(pb *Playback)
	OnPaused(pb *Playback)
	OnCompleted(pb *Playback)
}

// PlayerEventListener receives every raw engine event plus content geometry
type PlayerEventListener interface {
	OnPlayerEvent(pb *Playback, ev player.Event)
	OnVideoSizeChanged(pb *Playback, width, height, unappliedRotationDegrees int, pixelAspectRatio float32)
}

// CallbackFuncs implements Callback with optional funcs.  Register it by pointer.
type CallbackFuncs struct {
	Active   func(pb *Playback, target Surface)
	InActive func(pb *Playback, target Surface)
}

func (c *CallbackFuncs) OnActive(pb *Playback, target Surface) {
	if c.Active != nil {
		c.Active(pb, target)
	}
}

func (c *CallbackFuncs) OnInActive(pb *Playback, target Surface) {
	if c.InActive != nil {
		c.InActive(pb, target)
	}
}

// PlaybackEventFuncs implements PlaybackEventListener with optional funcs.  Register it by pointer.
type PlaybackEventFuncs struct {
	FirstFrameRendered func(pb *Playback)
	Buffering          func(pb *Playback, playWhenReady bool)
	BufferingEnd       func(pb *Playback, playWhenReady bool)
	Playing            func(pb *Playback)
	Paused             func(pb *Playback)
	Completed          func(pb *Playback)
}

func (f *PlaybackEventFuncs) OnFirstFrameRendered(pb *Playback) {
	if f.FirstFrameRendered != nil {
		f.FirstFrameRendered(pb)
	}
}

func (f *PlaybackEventFuncs) OnBuffering(pb *Playback, playWhenReady bool) {
	if f.Buffering != nil {
		f.Buffering(pb, playWhenReady)
	}
}

func (f *PlaybackEventFuncs) OnBufferingEnd(pb *Playback, playWhenReady bool) {
	if f.BufferingEnd != nil {
		f.BufferingEnd(pb, playWhenReady)
	}
}

func (f *PlaybackEventFuncs) OnPlaying(pb *Playback) {
	if f.Playing != nil {
		f.Playing(pb)
	}
}

func (f *PlaybackEventFuncs) OnPaused(pb *Playback) {
	if f.Paused != nil {
		f.Paused(pb)
	}
}

func (f *PlaybackEventFuncs) OnCompleted(pb *Playback) {
	if f.Completed != nil {
		f.Completed(pb)
	}
}

// PlayerEventFuncs implements PlayerEventListener with optional funcs.  Register it by pointer.
type PlayerEventFuncs struct {
	Event            func(pb *Playback, ev player.Event)
	VideoSizeChanged func(pb *Playback, width, height, unappliedRotationDegrees int, pixelAspectRatio float32)
}

func (f *PlayerEventFuncs) OnPlayerEvent(pb *Playback, ev player.Event) {
	if f.Event != nil {
		f.Event(pb, ev)
	}
}

func (f *PlayerEventFuncs) OnVideoSizeChanged(pb *Playback, width, height, rotation int, ratio float32) {
	if f.VideoSizeChanged != nil {
		f.VideoSizeChanged(pb, width, height, rotation, ratio)
	}
}

// listenerSet is an ordered set.  Membership is interface equality, so listeners must be comparable (pointers).
type listenerSet[T any] struct {
	items []T
}

func sameRef(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

func (s *listenerSet[T]) add(item T) bool {
	for _, existing := range s.items {
		if sameRef(existing, item) {
			return false
		}
	}
	s.items = append(s.items, item)
	return true
}

func (s *listenerSet[T]) remove(item T) bool {
	for i, existing := range s.items {
		if sameRef(existing, item) {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns a copy so listeners can add or remove themselves while being notified
func (s *listenerSet[T]) snapshot() []T {
	return append([]T(nil), s.items...)
}

func (s *listenerSet[T]) clear() {
	s.items = nil
}

func (s *listenerSet[T]) len() int {
	return len(s.items)
}

// notify calls fn for every listener, isolating panics so one broken listener cannot stop the others
func notify[T any](pb *Playback, what string, set *listenerSet[T], fn func(T)) {
	for _, l := range set.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Listener panicked", "playback", pb.ID(), "tag", pb.Tag(), "event", what, "panic", r)
				}
			}()
			fn(l)
		}()
	}
}
