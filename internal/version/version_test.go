package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	oldVersion, oldBuild := Version, BuildTime
	t.Cleanup(func() { Version, BuildTime = oldVersion, oldBuild })

	Version = "1.2.3"
	BuildTime = "2026-10-19"
	assert.Equal(t, "1.2.3", GetVersion())
	assert.Equal(t, "2026-10-19", GetBuildTime())
	assert.Equal(t, "Reel v1.2.3 (built 2026-10-19)", GetVersionInfo())
}
