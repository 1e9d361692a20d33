package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "v0.3.1"

	info := Get()
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Contains(t, info.String(), "v0.3.1 (commit ")
}
