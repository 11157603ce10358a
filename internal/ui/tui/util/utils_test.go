package util

import (
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits", "short", 10, "short"},
		{"exact fit", "exactly10!", 10, "exactly10!"},
		{"truncated", "a much longer title", 10, "a much ..."},
		{"wide runes", "日本語のタイトル", 9, "日本語..."},
		{"tiny width", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxWidth)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, runewidth.StringWidth(got), tt.maxWidth)
		})
	}
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "ab...", PadRight("abcdefgh", 5))
	assert.Equal(t, "日本 ", PadRight("日本", 5))
}

func TestFormatPosition(t *testing.T) {
	assert.Equal(t, "0:00", FormatPosition(0))
	assert.Equal(t, "0:00", FormatPosition(-time.Second))
	assert.Equal(t, "1:05", FormatPosition(65*time.Second))
	assert.Equal(t, "1:01:01", FormatPosition(time.Hour+time.Minute+time.Second+400*time.Millisecond))
}

func TestFormatVideoSize(t *testing.T) {
	assert.Equal(t, "-", FormatVideoSize(0, 720))
	assert.Equal(t, "1280x720", FormatVideoSize(1280, 720))
}
