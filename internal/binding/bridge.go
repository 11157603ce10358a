package binding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/looper"
	"github.com/PizzaHomicide/reel/internal/player"
)

// Bridge owns one player engine and, while a playback holds the grant, the renderer that engine draws into.
// Attach and Detach are the only places a renderer is ever connected or disconnected.  All methods run on the
// control goroutine and none of them wait on the engine: loading happens on its own goroutine and reports back
// through the loop.
type Bridge struct {
	loop    *looper.Loop
	factory player.EngineFactory
	media   domain.Media
	repeat  domain.RepeatMode
	onEvent func(player.Event)

	ctx    context.Context
	cancel context.CancelFunc

	engine   player.Engine
	renderer *player.View
	playing  bool
	ready    bool
	failed   error
	released bool
}

func newBridge(loop *looper.Loop, factory player.EngineFactory, media domain.Media, repeat domain.RepeatMode,
	onEvent func(player.Event)) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		loop:    loop,
		factory: factory,
		media:   media,
		repeat:  repeat,
		onEvent: onEvent,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Renderer returns the attached view, or nil
func (b *Bridge) Renderer() *player.View {
	return b.renderer
}

// HasEngine reports whether the engine has been created
func (b *Bridge) HasEngine() bool {
	return b.engine != nil
}

// Playing reports the last transport state the engine confirmed
func (b *Bridge) Playing() bool {
	return b.playing
}

// Ready reports whether the engine has finished loading the media
func (b *Bridge) Ready() bool {
	return b.ready
}

// Failed returns the load error, or nil.  A bridge whose media failed to load never takes a renderer again.
func (b *Bridge) Failed() error {
	return b.failed
}

// Position returns the engine position, zero before the engine exists
func (b *Bridge) Position() time.Duration {
	if b.engine == nil {
		return 0
	}
	return b.engine.Position()
}

// ensureEngine creates the engine on first use and starts loading the media in the background.  Later calls are
// free.
func (b *Bridge) ensureEngine() error {
	if b.released {
		return illegalState("ensure engine", "bridge for %s is released", b.media.Key())
	}
	if b.failed != nil {
		return b.failed
	}
	if b.engine != nil {
		return nil
	}

	engine, err := b.factory()
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	if err := engine.SetRepeat(b.repeat); err != nil {
		log.Warn("Failed to apply repeat mode", "media", b.media.Key(), "repeat", b.repeat, "error", err)
	}

	b.engine = engine
	go b.pump(engine.Events())
	go b.load(engine)

	log.Debug("Engine created", "media", b.media.Key())
	return nil
}

// load runs the blocking part of engine start-up off the control goroutine
func (b *Bridge) load(engine player.Engine) {
	started := time.Now()
	err := engine.Load(b.ctx, b.media.URI)
	b.loop.Post(func() { b.loaded(engine, err, time.Since(started)) })
}

func (b *Bridge) loaded(engine player.Engine, err error, took time.Duration) {
	if b.released || engine != b.engine {
		return
	}
	if err != nil {
		b.failed = fmt.Errorf("load %s: %w", b.media.URI, err)
		log.Error("Engine failed to load media", "media", b.media.Key(), "error", err)
		if b.onEvent != nil {
			b.onEvent(player.Event{Type: player.EventError, Err: b.failed})
		}
		return
	}
	b.ready = true
	log.Debug("Engine loaded", "media", b.media.Key(), "took", took)
}

// pump forwards engine events to the control goroutine.  It ends when the engine closes its channel.
func (b *Bridge) pump(events <-chan player.Event) {
	for ev := range events {
		log.Trace("Engine event", "media", b.media.Key(), "event", ev.String())
		if !b.loop.Post(func() { b.dispatch(ev) }) {
			log.Debug("Control loop closed, dropping engine event", "media", b.media.Key(), "event", ev.String())
		}
	}
}

func (b *Bridge) dispatch(ev player.Event) {
	if b.released {
		return
	}
	switch ev.Type {
	case player.EventPlaying:
		b.playing = true
	case player.EventPaused, player.EventCompleted:
		b.playing = false
	}
	if b.onEvent != nil {
		b.onEvent(ev)
	}
}

// Attach routes the engine output into view.  A different view already attached is detached first, so two views
// are never fed at once.  Attaching the current view again does nothing.
func (b *Bridge) Attach(view *player.View) error {
	if view == nil {
		return b.Detach()
	}
	if b.released {
		return illegalState("attach", "bridge for %s is released", b.media.Key())
	}
	if view == b.renderer {
		return nil
	}
	if err := b.ensureEngine(); err != nil {
		return err
	}
	if b.renderer != nil {
		if err := b.Detach(); err != nil {
			return err
		}
	}
	if err := b.engine.SetOutput(view); err != nil {
		return fmt.Errorf("attach %s: %w", view, err)
	}
	b.renderer = view
	log.Debug("Renderer attached", "media", b.media.Key(), "view", view.ID())
	return nil
}

// Detach stops visual output.  The engine keeps its position and buffers.
func (b *Bridge) Detach() error {
	if b.renderer == nil {
		return nil
	}
	view := b.renderer
	b.renderer = nil
	if b.engine == nil {
		return nil
	}
	if err := b.engine.SetOutput(nil); err != nil {
		return fmt.Errorf("detach %s: %w", view, err)
	}
	log.Debug("Renderer detached", "media", b.media.Key(), "view", view.ID())
	return nil
}

func (b *Bridge) Play() error {
	if err := b.ensureEngine(); err != nil {
		return err
	}
	return b.engine.Play()
}

func (b *Bridge) Pause() error {
	if b.engine == nil {
		return nil
	}
	return b.engine.Pause()
}

// SetRepeat applies mode now if the engine exists, otherwise when it is created
func (b *Bridge) SetRepeat(mode domain.RepeatMode) error {
	b.repeat = mode
	if b.engine == nil {
		return nil
	}
	return b.engine.SetRepeat(mode)
}

// Release detaches and releases the engine.  Events the engine still had queued are dropped by dispatch.  Only the
// first call has any effect.
func (b *Bridge) Release() error {
	if b.released {
		return nil
	}
	var errs []error
	if err := b.Detach(); err != nil {
		errs = append(errs, err)
	}
	b.released = true
	b.cancel()

	if b.engine != nil {
		if err := b.engine.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release engine: %w", err))
		}
	}
	log.Debug("Bridge released", "media", b.media.Key())
	return errors.Join(errs...)
}
