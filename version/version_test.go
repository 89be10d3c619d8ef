package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, AppName, info.Name)
	assert.Equal(t, "pantry dev", info.Short())
	assert.True(t, strings.HasPrefix(info.String(), "pantry dev\n"+About))
	assert.Contains(t, info.Platform, "/")
}
