package player

import (
	"context"
	"errors"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
)

// Engine is an opaque player engine.  It decodes and plays one media source and, while an output view is set,
// feeds its visual output into that view.  Engines report transport changes on the Events channel from their own
// goroutines.  Release must be called exactly once by the owner; it closes the Events channel.
//
// Load is the only method allowed to block.  Every other method returns promptly, may be called while Load is
// still running, and is applied once the media is loaded.  Release may race with Load, which must then give up.
type Engine interface {
	// Load prepares the media at uri for playback.  It starts paused unless Play was called first.
	Load(ctx context.Context, uri string) error

	Play() error
	Pause() error

	// SetRepeat applies the repeat policy to the loaded media
	SetRepeat(mode domain.RepeatMode) error

	// SetOutput routes visual output into view.  A nil view stops visual output while audio and position keep going.
	SetOutput(view *View) error

	// Position returns the current playback position
	Position() time.Duration

	// Events returns the channel of translated transport events
	Events() <-chan Event

	// Release stops playback and frees every resource held by the engine
	Release() error
}

// ErrReleased is returned by engine calls made after Release
var ErrReleased = errors.New("engine released")

// EngineFactory creates a new, unloaded engine.  It must not block: start-up work belongs in Load.
type EngineFactory func() (Engine, error)
