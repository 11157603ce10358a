package player

// PlayerType defines the type of engine the factory creates
type PlayerType string

const (
	// PlayerTypeMPV drives an external mpv process over IPC
	PlayerTypeMPV PlayerType = "mpv"
	// PlayerTypeBeep plays local audio files in-process
	PlayerTypeBeep PlayerType = "beep"
)

// Valid reports whether t names a known engine
func (t PlayerType) Valid() bool {
	return t == PlayerTypeMPV || t == PlayerTypeBeep
}
