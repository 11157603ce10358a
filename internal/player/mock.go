package player

import (
	"context"
	"sync"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
)

// Mock is an in-memory Engine for tests and headless hosts.  It records every call and lets the caller inject
// events and failures.
type Mock struct {
	mu sync.Mutex

	LoadErr   error
	OutputErr error
	// LoadGate holds Load until it is closed
	LoadGate chan struct{}

	loaded   []string
	outputs  []*View
	output   *View
	playing  bool
	repeat   domain.RepeatMode
	position time.Duration
	plays    int
	pauses   int
	released int

	events chan Event
}

// NewMock creates a mock engine with a buffered event channel
func NewMock() *Mock {
	return &Mock{events: make(chan Event, engineEventBuffer)}
}

func (m *Mock) Load(ctx context.Context, uri string) error {
	if m.LoadGate != nil {
		select {
		case <-m.LoadGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.loaded = append(m.loaded, uri)
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	m.playing = true
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	m.playing = false
	return nil
}

func (m *Mock) SetRepeat(mode domain.RepeatMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeat = mode
	return nil
}

func (m *Mock) SetOutput(view *View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if view != nil && m.OutputErr != nil {
		return m.OutputErr
	}
	m.output = view
	m.outputs = append(m.outputs, view)
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetPosition moves the reported position
func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	m.position = d
	m.mu.Unlock()
}

func (m *Mock) Events() <-chan Event {
	return m.events
}

// Emit injects an event as if the engine produced it.  Events emitted after Release are dropped.
func (m *Mock) Emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released > 0 {
		return
	}
	m.events <- ev
}

func (m *Mock) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	if m.released == 1 {
		close(m.events)
	}
	return nil
}

// Loaded returns every uri passed to Load, in order
func (m *Mock) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loaded...)
}

// Output returns the view currently receiving output
func (m *Mock) Output() *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output
}

// Outputs returns every view passed to SetOutput, nil included
func (m *Mock) Outputs() []*View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*View(nil), m.outputs...)
}

func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Mock) Repeat() domain.RepeatMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeat
}

// Plays and Pauses count transport calls
func (m *Mock) Plays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

func (m *Mock) Pauses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

// ReleaseCount returns how many times Release was called
func (m *Mock) ReleaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// MockFactory hands out mock engines and remembers them
type MockFactory struct {
	mu      sync.Mutex
	engines []*Mock
	// Err makes New fail when set
	Err error
	// LoadErr and LoadGate are copied to every engine created
	LoadErr  error
	LoadGate chan struct{}
}

// New creates the next mock engine.  Its signature matches EngineFactory.
func (f *MockFactory) New() (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	m := NewMock()
	m.LoadErr = f.LoadErr
	m.LoadGate = f.LoadGate
	f.engines = append(f.engines, m)
	return m, nil
}

// Engines returns the engines created so far
func (f *MockFactory) Engines() []*Mock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Mock(nil), f.engines...)
}

var _ Engine = (*Mock)(nil)
