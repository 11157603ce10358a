package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/google/uuid"
)

// Property observation ids.  MPV echoes them back on every property-change event.
const (
	observePause = iota + 1
	observePausedForCache
	observeVideoParams
	observePlaybackTime
)

const (
	mpvConnectAttempts = 20
	mpvConnectDelay    = 250 * time.Millisecond
	mpvConnectTimeout  = 10 * time.Second
	engineEventBuffer  = 32
)

// deferredProperties are the properties that may be set before mpv is connected, in the order they are replayed
var deferredProperties = []string{"loop-file", "loop-playlist", "wid", "vid", "pause"}

// MPVOptions configures how the mpv process is started
type MPVOptions struct {
	// Path to the mpv binary.  Defaults to "mpv" on PATH.
	Path string
	// Args are extra arguments appended to the command line, as a single shell-like string
	Args string
	// SocketPath is the base path of the IPC socket.  Defaults to GetMPVSocketPath().
	SocketPath string
}

// MPVEngine implements Engine by driving an idle mpv process over its JSON IPC.  Properties set before the
// process is connected are queued and replayed once it is.
type MPVEngine struct {
	opts       MPVOptions
	socketPath string
	ipcClient  *MPVIPCClient

	events chan Event
	// stop is cancelled by Release and aborts a start that is still waiting for mpv
	stop       context.Context
	cancelStop context.CancelFunc

	mu        sync.Mutex
	cmd       *exec.Cmd
	position  time.Duration
	started   bool
	released  bool
	pending   map[string]any
	translate mpvTranslator
	pumpDone  chan struct{}
}

// NewMPVEngine creates an engine.  The mpv process is only started on the first Load.
func NewMPVEngine(opts MPVOptions) *MPVEngine {
	base := opts.SocketPath
	if base == "" {
		base = GetMPVSocketPath()
	}
	socketPath := base + "-" + strings.Split(uuid.NewString(), "-")[0]

	stop, cancel := context.WithCancel(context.Background())
	return &MPVEngine{
		opts:       opts,
		socketPath: socketPath,
		ipcClient:  NewMPVIPCClient(socketPath),
		events:     make(chan Event, engineEventBuffer),
		stop:       stop,
		cancelStop: cancel,
		pending:    make(map[string]any),
		pumpDone:   make(chan struct{}),
	}
}

// Load starts mpv if needed and replaces the current file with uri.  It blocks until mpv is connected.
func (e *MPVEngine) Load(ctx context.Context, uri string) error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return fmt.Errorf("load %s: %w", uri, ErrReleased)
	}
	started := e.started
	e.mu.Unlock()

	if !started {
		if err := e.start(ctx); err != nil {
			return err
		}
	}

	log.Info("Loading media into MPV", "uri", uri, "socket_path", e.socketPath)
	if err := e.ipcClient.SendCommand([]interface{}{"loadfile", uri, "replace"}); err != nil {
		return fmt.Errorf("load %s: %w", uri, err)
	}
	return nil
}

func (e *MPVEngine) start(ctx context.Context) error {
	mpvPath := e.opts.Path
	if mpvPath == "" {
		mpvPath = "mpv"
	}

	if err := removeSocket(e.socketPath); err != nil {
		log.Warn("Failed to remove stale MPV socket", "path", e.socketPath, "error", err)
	}

	args := []string{
		"--idle=yes",        // Stay alive between files, the engine outlives single loads
		"--no-terminal",     // Disable terminal control
		"--pause",           // Transport is driven by the owner
		"--vid=no",          // No visual output until a view is attached
		"--force-window=no", // Do not open a window for audio-only periods
		"--input-ipc-server=" + e.socketPath,
	}
	if e.opts.Args != "" {
		args = append(args, ParseArgs(e.opts.Args)...)
	}

	cmd := exec.Command(mpvPath, args...)
	setupPlayerProcess(cmd)

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return ErrReleased
	}
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to start MPV: %w", err)
	}
	e.cmd = cmd
	e.mu.Unlock()

	connCtx, cancel := context.WithTimeout(ctx, mpvConnectTimeout)
	defer cancel()
	stopWatch := context.AfterFunc(e.stop, cancel)
	defer stopWatch()
	if err := e.ipcClient.WaitForConnection(connCtx, mpvConnectAttempts, mpvConnectDelay); err != nil {
		killProcess(cmd)
		return err
	}

	for id, name := range map[int]string{
		observePause:          "pause",
		observePausedForCache: "paused-for-cache",
		observeVideoParams:    "video-params",
		observePlaybackTime:   "playback-time",
	} {
		if err := e.ipcClient.ObserveProperty(id, name); err != nil {
			log.Warn("Failed to observe MPV property", "property", name, "error", err)
		}
	}

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return ErrReleased
	}
	for _, name := range deferredProperties {
		if value, ok := e.pending[name]; ok {
			if err := e.ipcClient.SetProperty(name, value); err != nil {
				log.Warn("Failed to apply queued MPV property", "property", name, "error", err)
			}
		}
	}
	e.pending = nil
	e.started = true
	e.mu.Unlock()

	go e.pump()
	return nil
}

// pump translates raw MPV events until the IPC connection closes.  Sends wait for the consumer; after Release
// they are dropped so the reader can finish.
func (e *MPVEngine) pump() {
	defer close(e.pumpDone)
	for raw := range e.ipcClient.Events() {
		e.mu.Lock()
		translated, pos, hasPos := e.translate.translate(raw)
		if hasPos {
			e.position = pos
		}
		e.mu.Unlock()

		for _, ev := range translated {
			log.Trace("Translated MPV event", "raw", raw.Event, "name", raw.Name, "event", ev.String())
			select {
			case e.events <- ev:
			case <-e.stop.Done():
			}
		}
	}
}

// setProperty sends the property now, or queues it while mpv is starting
func (e *MPVEngine) setProperty(name string, value any) error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return ErrReleased
	}
	if !e.started {
		e.pending[name] = value
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	return e.ipcClient.SetProperty(name, value)
}

func (e *MPVEngine) Play() error {
	return e.setProperty("pause", false)
}

func (e *MPVEngine) Pause() error {
	return e.setProperty("pause", true)
}

func (e *MPVEngine) SetRepeat(mode domain.RepeatMode) error {
	switch mode {
	case domain.RepeatOne:
		return e.setProperty("loop-file", "inf")
	case domain.RepeatAll:
		if err := e.setProperty("loop-file", "no"); err != nil {
			return err
		}
		return e.setProperty("loop-playlist", "inf")
	default:
		if err := e.setProperty("loop-playlist", "no"); err != nil {
			return err
		}
		return e.setProperty("loop-file", "no")
	}
}

// SetOutput embeds video output into the view's window, or disables the video track when view is nil.  Audio keeps
// playing either way.
func (e *MPVEngine) SetOutput(view *View) error {
	if view == nil {
		return e.setProperty("vid", "no")
	}
	if view.WindowID() != 0 {
		if err := e.setProperty("wid", view.WindowID()); err != nil {
			return err
		}
	}
	return e.setProperty("vid", "auto")
}

func (e *MPVEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *MPVEngine) Events() <-chan Event {
	return e.events
}

// Release quits mpv, closes the IPC connection and removes the socket.  A Load still starting mpv is aborted.
// Safe to call more than once.
func (e *MPVEngine) Release() error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return nil
	}
	e.released = true
	started := e.started
	cmd := e.cmd
	e.mu.Unlock()
	e.cancelStop()

	if started {
		_ = e.ipcClient.SendCommand([]interface{}{"quit"})
	}
	_ = e.ipcClient.Close()

	if started {
		<-e.pumpDone
	}
	close(e.events)

	var err error
	if cmd != nil && cmd.Process != nil {
		log.Info("Stopping MPV engine", "socket_path", e.socketPath)
		if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			err = killErr
		}
		go func() { _ = cmd.Wait() }()
	}

	if rmErr := removeSocket(e.socketPath); rmErr != nil {
		log.Warn("Failed to remove MPV socket file", "path", e.socketPath, "error", rmErr)
	}
	return err
}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	go func() { _ = cmd.Wait() }()
}

// Verify MPVEngine implements Engine at compile time.
var _ Engine = (*MPVEngine)(nil)
