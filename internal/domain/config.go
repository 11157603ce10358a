package domain

// RepeatMode defines what the player engine does when the media completes
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// String returns the repeat mode name.
func (r RepeatMode) String() string {
	switch r {
	case RepeatOff:
		return "Off"
	case RepeatOne:
		return "One"
	case RepeatAll:
		return "All"
	default:
		return "Unknown"
	}
}

// Next cycles Off -> One -> All -> Off
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatOff
	}
}

// AutoPlayPolicy decides how transport reacts to renderer grant and revoke
type AutoPlayPolicy int

const (
	// AutoPlayOff never starts transport on its own.  The host (or a controller) drives play/pause.
	AutoPlayOff AutoPlayPolicy = iota
	// AutoPlayOnActive plays while the playback holds the renderer and pauses when it loses it.
	AutoPlayOnActive
	// AutoPlayContinuous plays when the renderer is granted and keeps the engine running without it.
	AutoPlayContinuous
)

// String returns the policy name.
func (p AutoPlayPolicy) String() string {
	switch p {
	case AutoPlayOff:
		return "Off"
	case AutoPlayOnActive:
		return "OnActive"
	case AutoPlayContinuous:
		return "Continuous"
	default:
		return "Unknown"
	}
}

// Command is a transport request issued from a renderer's built-in controls
type Command int

const (
	CommandPlay Command = iota
	CommandPause
	CommandToggle
	CommandSeekForward
	CommandSeekBack
)

// Controller handles commands coming from a renderer's built-in transport controls.  A nil Controller in a Config
// means the renderer shows no controls at all.
type Controller interface {
	// Dispatch handles the command and reports whether it was consumed
	Dispatch(cmd Command) bool
}

// ControllerFunc adapts a plain function into a Controller
type ControllerFunc func(cmd Command) bool

// Dispatch calls f(cmd)
func (f ControllerFunc) Dispatch(cmd Command) bool {
	return f(cmd)
}

// Config is the playback policy for a piece of media.  It is a value type: the With* methods return a modified copy
// and never touch the receiver, so one Config can be shared safely between playbacks.
type Config struct {
	RepeatMode RepeatMode
	// Tag is the stable identity used to find the same playable again after navigation.  Empty means "use the
	// media identity".
	Tag        string
	Controller Controller
	AutoPlay   AutoPlayPolicy
}

// DefaultConfig returns the policy used when the caller does not customise anything
func DefaultConfig() Config {
	return Config{
		RepeatMode: RepeatOff,
		AutoPlay:   AutoPlayOnActive,
	}
}

func (c Config) WithRepeatMode(mode RepeatMode) Config {
	c.RepeatMode = mode
	return c
}

func (c Config) WithTag(tag string) Config {
	c.Tag = tag
	return c
}

func (c Config) WithController(controller Controller) Config {
	c.Controller = controller
	return c
}

func (c Config) WithAutoPlay(policy AutoPlayPolicy) Config {
	c.AutoPlay = policy
	return c
}

// EffectiveTag returns the configured tag, or the media identity when no tag was set
func (c Config) EffectiveTag(media Media) string {
	if c.Tag != "" {
		return c.Tag
	}
	return media.Key()
}

// HasController reports whether built-in transport controls should be shown
func (c Config) HasController() bool {
	return c.Controller != nil
}
