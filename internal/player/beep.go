package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned by the beep engine for files it cannot decode
var ErrUnsupportedFormat = errors.New("unsupported format")

const speakerSampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	return speakerErr
}

// BeepEngine plays local audio files through the shared speaker.  It has no visual output: SetOutput only remembers
// the view so transport keeps running unchanged whether a renderer is attached or not.
type BeepEngine struct {
	mu       sync.Mutex
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	repeat   domain.RepeatMode
	view     *View
	playing  bool
	released bool
	loadSeq  int

	// emitMu orders sends on events against the close in Release
	emitMu sync.RWMutex
	events chan Event
	done   chan struct{}
}

// NewBeepEngine creates an unloaded beep engine
func NewBeepEngine() *BeepEngine {
	return &BeepEngine{
		events: make(chan Event, engineEventBuffer),
		done:   make(chan struct{}),
	}
}

// IsSupportedFile reports whether the beep engine can decode the file behind uri
func IsSupportedFile(uri string) bool {
	switch strings.ToLower(filepath.Ext(localPath(uri))) {
	case ".mp3", ".flac", ".wav":
		return true
	}
	return false
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func decode(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".wav":
		return wav.Decode(f)
	}
	return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load decodes the file and queues it, paused, on the speaker
func (e *BeepEngine) Load(_ context.Context, uri string) error {
	path := localPath(uri)
	if !IsSupportedFile(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	streamer, format, err := decode(path, f)
	if err != nil {
		f.Close()
		return err
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		f.Close()
		return fmt.Errorf("init speaker: %w", err)
	}

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		streamer.Close()
		f.Close()
		return fmt.Errorf("load %s: %w", uri, ErrReleased)
	}
	e.unloadLocked()
	e.file = f
	e.streamer = streamer
	e.format = format
	e.loadSeq++
	seq := e.loadSeq

	var playable beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		playable = beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	}
	// Transport requested while loading carries over
	playing := e.playing
	e.ctrl = &beep.Ctrl{Streamer: playable, Paused: !playing}
	ctrl := e.ctrl
	e.mu.Unlock()

	log.Info("Loaded media into beep engine", "path", path, "sample_rate", format.SampleRate, "playing", playing)
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		// Called on the speaker goroutine with the speaker lock held
		go e.handleFinished(seq)
	})))
	if playing {
		e.emit(Event{Type: EventPlaying})
	}
	return nil
}

func (e *BeepEngine) handleFinished(seq int) {
	e.mu.Lock()
	if e.released || seq != e.loadSeq || e.streamer == nil {
		e.mu.Unlock()
		return
	}

	if e.repeat == domain.RepeatOff {
		e.playing = false
		e.mu.Unlock()
		e.emit(Event{Type: EventCompleted})
		return
	}

	// Rewind and queue the same streamer again
	speaker.Lock()
	err := e.streamer.Seek(0)
	speaker.Unlock()
	ctrl := e.ctrl
	e.mu.Unlock()

	if err != nil {
		e.emit(Event{Type: EventError, Err: fmt.Errorf("rewind for repeat: %w", err)})
		return
	}
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		go e.handleFinished(seq)
	})))
}

func (e *BeepEngine) Play() error {
	return e.setPaused(false)
}

func (e *BeepEngine) Pause() error {
	return e.setPaused(true)
}

func (e *BeepEngine) setPaused(paused bool) error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return ErrReleased
	}
	if e.ctrl == nil {
		// Applied by Load
		e.playing = !paused
		e.mu.Unlock()
		return nil
	}
	if e.playing == !paused {
		e.mu.Unlock()
		return nil
	}
	speaker.Lock()
	e.ctrl.Paused = paused
	speaker.Unlock()
	e.playing = !paused
	e.mu.Unlock()

	if paused {
		e.emit(Event{Type: EventPaused})
	} else {
		e.emit(Event{Type: EventPlaying})
	}
	return nil
}

func (e *BeepEngine) SetRepeat(mode domain.RepeatMode) error {
	e.mu.Lock()
	e.repeat = mode
	e.mu.Unlock()
	return nil
}

func (e *BeepEngine) SetOutput(view *View) error {
	e.mu.Lock()
	e.view = view
	e.mu.Unlock()
	return nil
}

func (e *BeepEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := e.format.SampleRate.D(e.streamer.Position())
	speaker.Unlock()
	return pos
}

func (e *BeepEngine) Events() <-chan Event {
	return e.events
}

// emit waits for the consumer to take ev.  Only a Release gives up on the send.  e.mu must not be held.
func (e *BeepEngine) emit(ev Event) {
	e.emitMu.RLock()
	defer e.emitMu.RUnlock()
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// unloadLocked silences and closes the current file.  e.mu must be held.
func (e *BeepEngine) unloadLocked() {
	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Streamer = nil
		speaker.Unlock()
		e.ctrl = nil
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	if e.file != nil {
		e.file.Close()
		e.file = nil
	}
}

func (e *BeepEngine) Release() error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return nil
	}
	e.released = true
	e.unloadLocked()
	e.mu.Unlock()

	close(e.done)
	e.emitMu.Lock()
	close(e.events)
	e.emitMu.Unlock()
	return nil
}

// Verify BeepEngine implements Engine at compile time.
var _ Engine = (*BeepEngine)(nil)
