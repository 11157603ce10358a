package player

import "fmt"

// EventType is the fixed transport vocabulary every engine translates its native signals into
type EventType int

const (
	EventFirstFrameRendered EventType = iota
	EventBufferingStart
	EventBufferingEnd
	EventPlaying
	EventPaused
	EventCompleted
	EventVideoSizeChanged
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventFirstFrameRendered:
		return "FirstFrameRendered"
	case EventBufferingStart:
		return "BufferingStart"
	case EventBufferingEnd:
		return "BufferingEnd"
	case EventPlaying:
		return "Playing"
	case EventPaused:
		return "Paused"
	case EventCompleted:
		return "Completed"
	case EventVideoSizeChanged:
		return "VideoSizeChanged"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is a transport event emitted by an engine
type Event struct {
	Type EventType

	// PlayWhenReady is set on buffering events: true when playback resumes as soon as buffering ends
	PlayWhenReady bool

	// Video geometry, set on EventVideoSizeChanged
	Width                    int
	Height                   int
	UnappliedRotationDegrees int
	PixelAspectRatio         float32

	// Err is set on EventError
	Err error
}

func (e Event) String() string {
	switch e.Type {
	case EventVideoSizeChanged:
		return fmt.Sprintf("%s(%dx%d)", e.Type, e.Width, e.Height)
	case EventError:
		return fmt.Sprintf("%s(%v)", e.Type, e.Err)
	default:
		return e.Type.String()
	}
}
