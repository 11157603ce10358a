package binding

import (
	"fmt"
	"strings"
	"time"

	"github.com/PizzaHomicide/reel/internal/config"
	"github.com/PizzaHomicide/reel/internal/domain"
)

// TieBreak orders eligible playbacks when none of them already holds the renderer
type TieBreak int

const (
	// TieBreakRecent grants the renderer to the surface that became eligible last
	TieBreakRecent TieBreak = iota
	// TieBreakOldest grants the renderer to the surface that became eligible first
	TieBreakOldest
)

func (t TieBreak) String() string {
	if t == TieBreakOldest {
		return "oldest"
	}
	return "recent"
}

// ParseTieBreak parses "recent" or "oldest".  Empty means recent.
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return TieBreakRecent, nil
	case "oldest":
		return TieBreakOldest, nil
	default:
		return TieBreakRecent, fmt.Errorf("unknown tie break %q", s)
	}
}

type options struct {
	maxActive      int
	maxPerPlayable int
	tieBreak       TieBreak
	grace          time.Duration
	factory        PlayableFactory
}

func defaultOptions() options {
	return options{
		tieBreak: TieBreakRecent,
		factory:  NewViewPlayable,
	}
}

// Option configures a Master
type Option func(*options)

// WithMaxActive caps how many playables may hold a renderer at once.  Zero means no cap.
func WithMaxActive(n int) Option {
	return func(o *options) {
		o.maxActive = max(n, 0)
	}
}

// WithMaxPlaybacksPerPlayable caps how many live playbacks one playable may have.  Zero means no cap.
func WithMaxPlaybacksPerPlayable(n int) Option {
	return func(o *options) {
		o.maxPerPlayable = max(n, 0)
	}
}

func WithTieBreak(t TieBreak) Option {
	return func(o *options) {
		o.tieBreak = t
	}
}

// WithReleaseGrace keeps an unreferenced playable, and its engine, alive for d before tearing it down
func WithReleaseGrace(d time.Duration) Option {
	return func(o *options) {
		o.grace = max(d, 0)
	}
}

// WithPlayableFactory replaces the default *player.View specialization
func WithPlayableFactory(f PlayableFactory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// OptionsFromConfig translates the master section of the application config
func OptionsFromConfig(cfg config.MasterConfig) ([]Option, error) {
	tieBreak, err := ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}
	grace, err := cfg.Grace()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithMaxActive(cfg.MaxActive),
		WithMaxPlaybacksPerPlayable(cfg.MaxPlaybacksPerPlayable),
		WithTieBreak(tieBreak),
		WithReleaseGrace(grace),
	}, nil
}

type bindOptions struct {
	config          *domain.Config
	eligible        bool
	callbacks       []Callback
	eventListeners  []PlaybackEventListener
	playerListeners []PlayerEventListener
}

// BindOption configures a single Bind call
type BindOption func(*bindOptions)

// WithPlaybackConfig overrides the playable's config for this playback only
func WithPlaybackConfig(cfg domain.Config) BindOption {
	return func(o *bindOptions) {
		o.config = &cfg
	}
}

// StartEligible signals eligibility as part of the bind, so a visible surface activates without a second call
func StartEligible() BindOption {
	return func(o *bindOptions) {
		o.eligible = true
	}
}

// WithCallbacks registers callbacks before the first arbitration of the new playback
func WithCallbacks(cbs ...Callback) BindOption {
	return func(o *bindOptions) {
		o.callbacks = append(o.callbacks, cbs...)
	}
}

func WithPlaybackEventListeners(ls ...PlaybackEventListener) BindOption {
	return func(o *bindOptions) {
		o.eventListeners = append(o.eventListeners, ls...)
	}
}

func WithPlayerEventListeners(ls ...PlayerEventListener) BindOption {
	return func(o *bindOptions) {
		o.playerListeners = append(o.playerListeners, ls...)
	}
}
