package player

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PizzaHomicide/reel/internal/log"
)

// mpvTranslator turns raw MPV IPC events into the engine event vocabulary.  It keeps the little state needed to
// report edges only (first frame once per file, pause/buffering only on change).
type mpvTranslator struct {
	firstFrameSent bool
	paused         *bool
	buffering      bool
}

type mpvVideoParams struct {
	W      int     `json:"w"`
	H      int     `json:"h"`
	Rotate int     `json:"rotate"`
	Par    float32 `json:"par"`
}

// translate returns the events for one raw MPV event, plus the playback position when the raw event carried one
func (t *mpvTranslator) translate(raw MPVEvent) ([]Event, time.Duration, bool) {
	switch raw.Event {
	case "start-file":
		t.firstFrameSent = false
		return nil, 0, false

	case "playback-restart":
		if t.firstFrameSent {
			return nil, 0, false
		}
		t.firstFrameSent = true
		return []Event{{Type: EventFirstFrameRendered}}, 0, false

	case "end-file":
		switch raw.Reason {
		case "eof":
			return []Event{{Type: EventCompleted}}, 0, false
		case "error":
			return []Event{{Type: EventError, Err: fmt.Errorf("mpv: %s", raw.FileError)}}, 0, false
		}
		return nil, 0, false

	case "property-change":
		return t.translateProperty(raw)
	}

	return nil, 0, false
}

func (t *mpvTranslator) translateProperty(raw MPVEvent) ([]Event, time.Duration, bool) {
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil, 0, false
	}

	switch raw.Name {
	case "pause":
		var paused bool
		if err := json.Unmarshal(raw.Data, &paused); err != nil {
			log.Warn("Failed to parse pause property", "data", string(raw.Data), "error", err)
			return nil, 0, false
		}
		if t.paused != nil && *t.paused == paused {
			return nil, 0, false
		}
		t.paused = &paused
		if paused {
			return []Event{{Type: EventPaused}}, 0, false
		}
		return []Event{{Type: EventPlaying}}, 0, false

	case "paused-for-cache":
		var buffering bool
		if err := json.Unmarshal(raw.Data, &buffering); err != nil {
			log.Warn("Failed to parse paused-for-cache property", "data", string(raw.Data), "error", err)
			return nil, 0, false
		}
		if buffering == t.buffering {
			return nil, 0, false
		}
		t.buffering = buffering
		playWhenReady := t.paused == nil || !*t.paused
		if buffering {
			return []Event{{Type: EventBufferingStart, PlayWhenReady: playWhenReady}}, 0, false
		}
		return []Event{{Type: EventBufferingEnd, PlayWhenReady: playWhenReady}}, 0, false

	case "video-params":
		var params mpvVideoParams
		if err := json.Unmarshal(raw.Data, &params); err != nil {
			log.Warn("Failed to parse video-params property", "data", string(raw.Data), "error", err)
			return nil, 0, false
		}
		if params.W == 0 || params.H == 0 {
			return nil, 0, false
		}
		if params.Par == 0 {
			params.Par = 1
		}
		return []Event{{
			Type:                     EventVideoSizeChanged,
			Width:                    params.W,
			Height:                   params.H,
			UnappliedRotationDegrees: params.Rotate,
			PixelAspectRatio:         params.Par,
		}}, 0, false

	case "playback-time":
		var seconds float64
		if err := json.Unmarshal(raw.Data, &seconds); err != nil {
			return nil, 0, false
		}
		return nil, time.Duration(seconds * float64(time.Second)), true
	}

	return nil, 0, false
}
